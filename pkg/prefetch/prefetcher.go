package prefetch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Config holds prefetcher configuration.
type Config struct {
	// Window is the number of indices, starting at the current one, kept in the prefetch window
	Window int
	// MaxInFlight is the maximum number of concurrent image loads
	MaxInFlight int
	// Retry enables one extra attempt after a failed load
	Retry bool
	// RetryBackoff is the pause before the retry attempt
	RetryBackoff time.Duration
}

// DefaultConfig returns the slideshow defaults: a window of 4, 4 concurrent
// loads and a single retry after 200ms.
func DefaultConfig() Config {
	return Config{
		Window:       4,
		MaxInFlight:  4,
		Retry:        true,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// URLResolver maps a global index to an image URL. The URL is only
// meaningful when the resolution is Resolved.
type URLResolver func(index int) (string, Resolution)

// Option configures a Prefetcher.
type Option func(*Prefetcher)

// WithOnLoad registers a callback invoked when an index reaches Ready or Error.
// It runs on the load goroutine with no prefetcher lock held.
func WithOnLoad(fn func(index int, status Status)) Option {
	return func(p *Prefetcher) {
		p.onLoad = fn
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Prefetcher) {
		p.logger = logger
	}
}

// Prefetcher speculatively loads images ahead of the current index while
// never running more than MaxInFlight loads at once.
type Prefetcher struct {
	loader Loader
	config Config
	onLoad func(int, Status)
	logger zerolog.Logger
	budget *semaphore.Weighted

	mu       sync.Mutex
	statuses map[int]Status
	inFlight int
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	current  int
	resolve  URLResolver
	closed   bool
	wg       sync.WaitGroup
}

// New creates a prefetcher.
func New(loader Loader, config Config, opts ...Option) *Prefetcher {
	def := DefaultConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = def.MaxInFlight
	}
	if config.RetryBackoff < 0 {
		config.RetryBackoff = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Prefetcher{
		loader:   loader,
		config:   config,
		logger:   logging.NewLogger("prefetch"),
		budget:   semaphore.NewWeighted(int64(config.MaxInFlight)),
		statuses: make(map[int]Status),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tick moves the prefetch window to start at current and admits waiting
// indices whose URL resolves, up to the concurrency budget. Call it whenever
// the current index or the underlying page data changes.
func (p *Prefetcher) Tick(current int, resolve URLResolver) {
	if current < 0 {
		current = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.current = current
	p.resolve = resolve

	for i := current; i < current+p.config.Window; i++ {
		if _, ok := p.statuses[i]; !ok {
			p.statuses[i] = Waiting
		}
	}
	p.admitLocked()
}

// admitLocked starts loads for waiting indices in ascending order. Indices
// whose page failed settle as Error without a load and without a budget slot.
func (p *Prefetcher) admitLocked() {
	if p.resolve == nil {
		return
	}

	waiting := make([]int, 0, len(p.statuses))
	for index, status := range p.statuses {
		if status == Waiting {
			waiting = append(waiting, index)
		}
	}
	sort.Ints(waiting)

	full := false
	for _, index := range waiting {
		url, res := p.resolve(index)
		switch res {
		case Pending:
			continue
		case Unavailable:
			// No onLoad here: Tick runs under the caller's lock.
			p.statuses[index] = Error
			imageLoadsTotal.WithLabelValues("unavailable").Inc()
			continue
		}
		if full {
			continue
		}
		// Loads from a previous generation may still hold permits.
		if p.inFlight >= p.config.MaxInFlight || !p.budget.TryAcquire(1) {
			full = true
			continue
		}

		p.statuses[index] = InFlight
		p.inFlight++
		prefetchInFlight.Inc()

		p.wg.Add(1)
		go p.load(p.ctx, p.gen, index, url)
	}
}

// load runs one image load, with the optional retry, and settles the index.
func (p *Prefetcher) load(ctx context.Context, gen uint64, index int, url string) {
	defer p.wg.Done()

	err := p.loader.Load(ctx, url)
	if err != nil && p.config.Retry && ctx.Err() == nil {
		imageRetriesTotal.Inc()
		p.logger.Debug().
			Err(err).
			Int("index", index).
			Dur("backoff", p.config.RetryBackoff).
			Msg("Retrying image load")

		select {
		case <-ctx.Done():
		case <-time.After(p.config.RetryBackoff):
			err = p.loader.Load(ctx, url)
		}
	}

	p.budget.Release(1)

	p.mu.Lock()
	if gen != p.gen || p.closed {
		// Stale completion from before a Reset; the in-flight count was
		// cleared with the old map.
		p.mu.Unlock()
		imageLoadsTotal.WithLabelValues("discarded").Inc()
		// Permits freed by stale loads can admit current waiting indices.
		p.retick()
		return
	}

	status := Ready
	if err != nil {
		status = Error
	}
	p.statuses[index] = status
	p.inFlight--
	prefetchInFlight.Dec()
	p.admitLocked()
	onLoad := p.onLoad
	p.mu.Unlock()

	if status == Ready {
		imageLoadsTotal.WithLabelValues("ready").Inc()
		p.logger.Debug().Int("index", index).Msg("Image ready")
	} else {
		imageLoadsTotal.WithLabelValues("error").Inc()
		p.logger.Debug().Err(err).Int("index", index).Str("url", url).Msg("Image load failed")
	}

	if onLoad != nil {
		onLoad(index, status)
	}
}

func (p *Prefetcher) retick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.admitLocked()
	}
}

// Reset forgets every tracked index and cancels in-flight loads. Their
// completions are ignored. Call it together with the page cache reset.
func (p *Prefetcher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.gen++
	prefetchInFlight.Sub(float64(p.inFlight))
	p.statuses = make(map[int]Status)
	p.inFlight = 0
	p.current = 0
	p.resolve = nil
}

// Status returns the prefetch status of index.
func (p *Prefetcher) Status(index int) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statuses[index]
}

// Snapshot returns a copy of every tracked status.
func (p *Prefetcher) Snapshot() map[int]Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[int]Status, len(p.statuses))
	for k, v := range p.statuses {
		out[k] = v
	}
	return out
}

// InFlight returns the number of loads running for the current generation.
func (p *Prefetcher) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Close cancels all loads and waits for them to return.
func (p *Prefetcher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.cancel()
	prefetchInFlight.Sub(float64(p.inFlight))
	p.inFlight = 0
	p.mu.Unlock()

	p.wg.Wait()
}
