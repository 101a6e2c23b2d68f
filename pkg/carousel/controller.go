package carousel

import (
	"sync"

	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
	"github.com/rs/zerolog"
)

// Config holds controller configuration.
type Config struct {
	// PageSize is the number of items per page
	PageSize int
	// LookaheadDistance is how far ahead of the current index a page is requested
	LookaheadDistance int
}

// DefaultConfig returns a page size of 20 and a lookahead of 8 items.
func DefaultConfig() Config {
	return Config{
		PageSize:          20,
		LookaheadDistance: 8,
	}
}

// Controller drives the carousel state machine and keeps the fetcher and
// prefetcher in step with it.
//
// Lock order is Controller, then Prefetcher, then Fetcher. The fetcher and
// prefetcher callbacks must be routed to HandlePage and HandleImage; they run
// without any component lock held.
type Controller struct {
	fetcher    *pagination.Fetcher
	prefetcher *prefetch.Prefetcher
	config     Config
	logger     zerolog.Logger

	mu      sync.Mutex
	state   State
	closed  bool
	changes chan State
}

// New creates a controller around an existing fetcher and prefetcher. The page
// size always follows the fetcher.
func New(fetcher *pagination.Fetcher, prefetcher *prefetch.Prefetcher, config Config) *Controller {
	if config.LookaheadDistance < 0 {
		config.LookaheadDistance = 0
	}
	config.PageSize = fetcher.PageSize()

	return &Controller{
		fetcher:    fetcher,
		prefetcher: prefetcher,
		config:     config,
		logger:     logging.NewLogger("carousel"),
		state:      InitialState(fetcher.Key()),
		changes:    make(chan State, 1),
	}
}

// Select switches to key. Page cache, prefetch state and position are reset
// even when key equals the current key.
func (c *Controller) Select(key string) State {
	return c.Dispatch(SelectionChanged{Key: key})
}

// Next advances to the next index.
func (c *Controller) Next() State {
	return c.Dispatch(Advance{Delta: 1})
}

// Previous moves to the previous index.
func (c *Controller) Previous() State {
	return c.Dispatch(Advance{Delta: -1})
}

// Dispatch applies action and runs its effects. It returns the resulting state.
func (c *Controller) Dispatch(action Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.state
	}

	prev := c.state
	if sel, ok := action.(SelectionChanged); ok {
		c.fetcher.ResetPages(sel.Key)
		c.prefetcher.Reset()
		c.logger.Info().
			Str("key", sel.Key).
			Str("previous", prev.Key).
			Msg("Selection changed")
	}

	c.state = Reduce(c.state, action, c.prefetcher)
	transitionsTotal.WithLabelValues(action.Name()).Inc()

	if _, ok := action.(ImageReady); !ok {
		c.syncLocked()
	}

	if c.state != prev {
		c.logger.Debug().
			Str("action", action.Name()).
			Int("current", c.state.CurrentIndex).
			Int("visible", c.state.VisibleIndex).
			Int("max", c.state.MaxIndex).
			Msg("State changed")
		c.publishLocked()
	}
	return c.state
}

// HandlePage feeds a fetcher page event into the state machine.
func (c *Controller) HandlePage(ev pagination.PageEvent) {
	c.Dispatch(PageArrived{
		Key:       ev.Key,
		PageIndex: ev.PageIndex,
		Status:    ev.Status,
		Metadata:  ev.Metadata,
	})
}

// HandleImage feeds a prefetcher load event into the state machine.
func (c *Controller) HandleImage(index int, status prefetch.Status) {
	c.Dispatch(ImageReady{Index: index, Status: status})
}

// syncLocked requests the pages for the current and lookahead index and
// moves the prefetch window.
func (c *Controller) syncLocked() {
	key := c.state.Key
	current := c.state.CurrentIndex
	pageSize := c.config.PageSize

	c.fetcher.FetchPage(pagination.PageIndex(current, pageSize), key)

	ahead := current + c.config.LookaheadDistance
	if max, ok := c.state.KnownMax(); ok && ahead > max {
		ahead = max
	}
	c.fetcher.FetchPage(pagination.PageIndex(ahead, pageSize), key)

	c.prefetcher.Tick(current, c.resolveURL)
}

// resolveURL maps index to its image URL for the prefetcher. Indices on a
// failed page are unavailable. It reads only the fetcher and may run under
// the prefetcher lock.
func (c *Controller) resolveURL(index int) (string, prefetch.Resolution) {
	page, ok := c.fetcher.PageFor(index)
	if !ok {
		return "", prefetch.Pending
	}

	switch page.Status {
	case pagination.PageError:
		return "", prefetch.Unavailable
	case pagination.PageLoaded:
		item, ok := page.ItemAt(pagination.Offset(index, c.config.PageSize))
		if !ok {
			// Past the end of a short last page.
			return "", prefetch.Pending
		}
		if item.URL == "" {
			return "", prefetch.Unavailable
		}
		return item.URL, prefetch.Resolved
	default:
		return "", prefetch.Pending
	}
}

// publishLocked offers the state to Changes, replacing an unread value.
func (c *Controller) publishLocked() {
	select {
	case <-c.changes:
	default:
	}
	c.changes <- c.state
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changes delivers the latest state after each change. Only the most recent
// unread state is kept. The channel is closed by Close.
func (c *Controller) Changes() <-chan State {
	return c.changes
}

// VisibleItem returns the item being displayed, if any.
func (c *Controller) VisibleItem() (pagination.Item, bool) {
	s := c.State()
	if !s.HasVisible() {
		return pagination.Item{}, false
	}
	return c.fetcher.ItemAt(s.VisibleIndex)
}

// CurrentItem returns the item at the current index if its page is loaded.
func (c *Controller) CurrentItem() (pagination.Item, bool) {
	return c.fetcher.ItemAt(c.State().CurrentIndex)
}

// PageStatusAt returns the status of the page holding index.
func (c *Controller) PageStatusAt(index int) (pagination.PageStatus, bool) {
	page, ok := c.fetcher.PageFor(index)
	if !ok {
		return 0, false
	}
	return page.Status, true
}

// ImageStatus returns the prefetch status of index.
func (c *Controller) ImageStatus(index int) prefetch.Status {
	return c.prefetcher.Status(index)
}

// Close aborts all page requests and image loads and waits for them to exit.
// Later dispatches are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.changes)
	c.mu.Unlock()

	c.fetcher.Close()
	c.prefetcher.Close()

	c.logger.Debug().Str("key", c.state.Key).Msg("Carousel closed")
}
