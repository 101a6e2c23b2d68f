package carousel

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
)

// Options configures Open.
type Options struct {
	// Carousel is the controller configuration
	Carousel Config
	// Fetch is the fetcher configuration; its PageSize defaults to Carousel.PageSize
	Fetch pagination.Config
	// Prefetch is the prefetcher configuration
	Prefetch prefetch.Config
	// InitialKey is selected right away when not empty
	InitialKey string
}

// DefaultOptions returns the slideshow defaults for every component.
func DefaultOptions() Options {
	return Options{
		Carousel: DefaultConfig(),
		Fetch:    pagination.DefaultConfig(),
		Prefetch: prefetch.DefaultConfig(),
	}
}

// Session is a controller together with the fetcher and prefetcher it owns.
// Close releases everything:
//
//	session, err := carousel.Open(ctx, src, loader, carousel.DefaultOptions())
//	if err != nil { ... }
//	defer session.Close()
type Session struct {
	*Controller

	stop      context.CancelFunc
	closeOnce sync.Once
}

// Open builds a fetcher, a prefetcher and a controller wired to each other.
// The session is closed when ctx is done or Close is called.
func Open(ctx context.Context, src pagination.Source, loader prefetch.Loader, opts Options) (*Session, error) {
	if src == nil {
		return nil, errors.New("carousel: page source is required")
	}
	if loader == nil {
		return nil, errors.New("carousel: image loader is required")
	}

	if opts.Fetch.PageSize <= 0 {
		opts.Fetch.PageSize = opts.Carousel.PageSize
	}

	var c *Controller
	fetcher := pagination.NewFetcher(src, opts.Fetch,
		pagination.WithOnPage(func(ev pagination.PageEvent) { c.HandlePage(ev) }))
	prefetcher := prefetch.New(loader, opts.Prefetch,
		prefetch.WithOnLoad(func(index int, status prefetch.Status) { c.HandleImage(index, status) }))
	c = New(fetcher, prefetcher, opts.Carousel)

	watchCtx, stop := context.WithCancel(ctx)
	s := &Session{Controller: c, stop: stop}

	go func() {
		<-watchCtx.Done()
		s.Close()
	}()

	if opts.InitialKey != "" {
		c.Select(opts.InitialKey)
	}
	return s, nil
}

// Close aborts all in-flight work and waits for it to drain. It is safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.stop()
		s.Controller.Close()
	})
}
