package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/Sternrassler/cat-slideshow/pkg/request"
	"github.com/rs/zerolog"
)

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the number of items requested per page
	PageSize int
	// Timeout per page fetch (0 = no timeout)
	Timeout time.Duration
}

// DefaultConfig returns the page size used by the slideshow and no timeout.
func DefaultConfig() Config {
	return Config{
		PageSize: 20,
		Timeout:  0,
	}
}

// Response is the parsed result of one page request.
type Response struct {
	Items    []Item
	Metadata Metadata
}

// Source is implemented by anything that can fetch a single page for a key.
type Source interface {
	// FetchPage fetches page pageIndex of the collection identified by key
	FetchPage(ctx context.Context, key string, pageIndex, pageSize int) (Response, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, key string, pageIndex, pageSize int) (Response, error)

// FetchPage implements Source.
func (f SourceFunc) FetchPage(ctx context.Context, key string, pageIndex, pageSize int) (Response, error) {
	return f(ctx, key, pageIndex, pageSize)
}

// PageEvent reports the outcome of a page request that was accepted for the
// live key. Aborted and stale requests produce no event.
type PageEvent struct {
	Key       string
	PageIndex int
	Status    PageStatus
	Metadata  Metadata
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithOnPage registers a callback invoked after a page settles.
// The callback runs on the fetch goroutine with no fetcher lock held.
func WithOnPage(fn func(PageEvent)) FetcherOption {
	return func(f *Fetcher) {
		f.onPage = fn
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher fetches and caches pages of a paginated collection scoped to a key.
type Fetcher struct {
	source Source
	config Config
	cache  *PageCache
	onPage func(PageEvent)
	logger zerolog.Logger

	mu      sync.Mutex
	runners map[int]*request.Runner[Response]
	closed  bool
	wg      sync.WaitGroup
}

// NewFetcher creates a fetcher with an empty cache for the empty key.
func NewFetcher(source Source, config Config, opts ...FetcherOption) *Fetcher {
	if config.PageSize <= 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.Timeout < 0 {
		config.Timeout = 0
	}

	f := &Fetcher{
		source:  source,
		config:  config,
		cache:   NewPageCache(""),
		logger:  logging.NewLogger("fetcher"),
		runners: make(map[int]*request.Runner[Response]),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PageSize returns the configured page size.
func (f *Fetcher) PageSize() int {
	return f.config.PageSize
}

// Key returns the live selection key.
func (f *Fetcher) Key() string {
	return f.cache.Key()
}

// ResetPages aborts every in-flight request and clears the cache for newKey.
// It must run before any fetch for newKey is issued.
func (f *Fetcher) ResetPages(newKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.abortAllLocked()
	f.cache.Reset(newKey)

	f.logger.Debug().
		Str("key", newKey).
		Msg("Page cache reset")
}

// FetchPage starts fetching pageIndex for key unless the page is already known
// for the live key or key is stale. It reports whether a request was started.
func (f *Fetcher) FetchPage(pageIndex int, key string) bool {
	if pageIndex < 0 {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if !f.cache.PutIfAbsent(key, pageIndex, LoadingPage(pageIndex)) {
		return false
	}

	runner := request.NewRunner[Response]()
	f.runners[pageIndex] = runner

	f.wg.Add(1)
	go f.fetch(runner, pageIndex, key)
	return true
}

// fetch runs one page request and settles the page.
func (f *Fetcher) fetch(runner *request.Runner[Response], pageIndex int, key string) {
	defer f.wg.Done()
	start := time.Now()

	resp, err := runner.Run(context.Background(), func(ctx context.Context) (Response, error) {
		if f.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
			defer cancel()
		}
		return f.source.FetchPage(ctx, key, pageIndex, f.config.PageSize)
	})

	f.mu.Lock()
	if f.runners[pageIndex] == runner {
		delete(f.runners, pageIndex)
	}

	if request.IsAborted(err) {
		// Leave no trace so a later fetch may retry the page, unless a newer
		// request already owns the slot.
		if _, newer := f.runners[pageIndex]; !newer {
			if page, ok := f.cache.Get(pageIndex); ok && page.Status == PageLoading {
				f.cache.Delete(key, pageIndex)
			}
		}
		f.mu.Unlock()
		pageFetchesTotal.WithLabelValues("aborted").Inc()
		f.logger.Debug().
			Str("key", key).
			Int("page", pageIndex).
			Msg("Page fetch aborted")
		return
	}

	var page Page
	if err != nil {
		page = FailedPage(pageIndex, fmt.Errorf("fetch page %d: %w", pageIndex, err))
	} else {
		page = LoadedPage(pageIndex, resp.Items)
	}

	if !f.cache.Put(key, pageIndex, page) {
		f.mu.Unlock()
		pageFetchesTotal.WithLabelValues("stale").Inc()
		f.logger.Debug().
			Str("key", key).
			Int("page", pageIndex).
			Msg("Discarding stale page response")
		return
	}
	if err == nil && resp.Metadata.HasTotal {
		f.cache.SetMetadata(key, resp.Metadata)
	}
	meta, _ := f.cache.Metadata()
	onPage := f.onPage
	f.mu.Unlock()

	if err != nil {
		pageFetchesTotal.WithLabelValues("error").Inc()
		f.logger.Warn().
			Err(err).
			Str("key", key).
			Int("page", pageIndex).
			Dur("duration", time.Since(start)).
			Msg("Page fetch failed")
	} else {
		pageFetchesTotal.WithLabelValues("loaded").Inc()
		f.logger.Debug().
			Str("key", key).
			Int("page", pageIndex).
			Int("items", len(resp.Items)).
			Dur("duration", time.Since(start)).
			Msg("Page loaded")
	}

	if onPage != nil {
		onPage(PageEvent{
			Key:       key,
			PageIndex: pageIndex,
			Status:    page.Status,
			Metadata:  meta,
		})
	}
}

// Page returns the cached page at pageIndex for the live key.
func (f *Fetcher) Page(pageIndex int) (Page, bool) {
	return f.cache.Get(pageIndex)
}

// PageFor returns the cached page holding globalIndex.
func (f *Fetcher) PageFor(globalIndex int) (Page, bool) {
	if globalIndex < 0 {
		return Page{}, false
	}
	return f.cache.Get(PageIndex(globalIndex, f.config.PageSize))
}

// Metadata returns the last recorded pagination metadata for the live key.
func (f *Fetcher) Metadata() (Metadata, bool) {
	return f.cache.Metadata()
}

// ItemAt returns the item at globalIndex if its page is loaded.
func (f *Fetcher) ItemAt(globalIndex int) (Item, bool) {
	page, ok := f.PageFor(globalIndex)
	if !ok {
		return Item{}, false
	}
	return page.ItemAt(Offset(globalIndex, f.config.PageSize))
}

// URLAt returns the image URL at globalIndex if its page is loaded.
func (f *Fetcher) URLAt(globalIndex int) (string, bool) {
	item, ok := f.ItemAt(globalIndex)
	if !ok || item.URL == "" {
		return "", false
	}
	return item.URL, true
}

// InFlight returns the number of outstanding page requests.
func (f *Fetcher) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runners)
}

// Close aborts all in-flight requests and waits for them to return.
func (f *Fetcher) Close() {
	f.mu.Lock()
	f.closed = true
	f.abortAllLocked()
	f.mu.Unlock()

	f.wg.Wait()
}

// abortAllLocked closes every runner. Closing rather than aborting also
// covers fetch goroutines that have not reached Run yet.
func (f *Fetcher) abortAllLocked() {
	for index, runner := range f.runners {
		runner.Close()
		delete(f.runners, index)
	}
}
