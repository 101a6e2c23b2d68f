package pagination

import "sync"

// PageCache holds the pages fetched for one selection key.
// Switching keys is the only way entries are evicted.
type PageCache struct {
	mu       sync.RWMutex
	key      string
	pages    map[int]Page
	metadata Metadata
	hasMeta  bool
}

// NewPageCache creates an empty cache live for key.
func NewPageCache(key string) *PageCache {
	return &PageCache{
		key:   key,
		pages: make(map[int]Page),
	}
}

// Reset drops all pages and metadata and makes newKey the live key.
// Call it before dispatching any fetch for newKey.
func (c *PageCache) Reset(newKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.key = newKey
	c.pages = make(map[int]Page)
	c.metadata = Metadata{}
	c.hasMeta = false
}

// Key returns the live key.
func (c *PageCache) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// Put stores page at index if key is still live. A put for any other key is
// silently discarded and reported as false.
func (c *PageCache) Put(key string, index int, page Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != c.key {
		return false
	}
	page.Index = index
	c.pages[index] = page
	return true
}

// PutIfAbsent stores page at index if key is live and nothing is cached there yet.
func (c *PageCache) PutIfAbsent(key string, index int, page Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != c.key {
		return false
	}
	if _, ok := c.pages[index]; ok {
		return false
	}
	page.Index = index
	c.pages[index] = page
	return true
}

// Get returns the page at index for the live key.
func (c *PageCache) Get(index int) (Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	page, ok := c.pages[index]
	return page, ok
}

// Delete removes the page at index if key is live.
func (c *PageCache) Delete(key string, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != c.key {
		return
	}
	delete(c.pages, index)
}

// SetMetadata records pagination metadata for key. Last value wins.
func (c *PageCache) SetMetadata(key string, m Metadata) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if key != c.key {
		return false
	}
	c.metadata = m
	c.hasMeta = true
	return true
}

// Metadata returns the last recorded metadata for the live key.
func (c *PageCache) Metadata() (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata, c.hasMeta
}

// Len returns the number of cached pages, including loading and failed ones.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
