package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBasePath strips the API mount path from request keys, so
// "/v1/images/search" and "/images/search" share entries.
func WithBasePath(path string) ManagerOption {
	return func(m *Manager) {
		m.basePath = path
	}
}

// WithFallbackTTL sets the lifetime of responses that carry neither
// Cache-Control max-age nor Expires.
func WithFallbackTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.fallbackTTL = ttl
	}
}

// Manager keeps Cat API responses in Redis under catapi: keys.
// Entries live until their Expires time and are revalidated with the
// stored ETag or Last-Modified.
type Manager struct {
	redis       redis.UniversalClient
	basePath    string
	fallbackTTL time.Duration
}

// NewManager creates a cache manager on top of redisClient. It panics on a
// nil client.
func NewManager(redisClient redis.UniversalClient, opts ...ManagerOption) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	m := &Manager{redis: redisClient}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cacheable reports whether the response to req may be cached. Only GETs
// are cached, and searches with order=RAND never are since every call
// returns a different page.
func Cacheable(req *http.Request) bool {
	if req == nil || req.Method != http.MethodGet {
		return false
	}
	return !strings.EqualFold(req.URL.Query().Get("order"), "RAND")
}

// KeyFor returns the cache key of req.
func (m *Manager) KeyFor(req *http.Request) CacheKey {
	return KeyForRequestURL(req.URL, m.basePath)
}

// Get returns the live entry for key, or ErrCacheMiss. Expired entries are
// deleted on the way.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set writes entry with a Redis TTL matching its Expires time. Entries that
// are already expired are skipped.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Store caches a 200 response under key and returns the lifetime it got.
// Other statuses and responses marked no-store are not cached; the returned
// lifetime is zero then. The response body stays readable.
func (m *Manager) Store(ctx context.Context, key CacheKey, resp *http.Response) (time.Duration, error) {
	if resp == nil || resp.StatusCode != http.StatusOK {
		return 0, nil
	}

	entry, err := ResponseToEntry(resp, m.fallbackTTL)
	if err != nil {
		return 0, err
	}
	ttl := entry.TTL()
	if ttl <= 0 {
		return 0, nil
	}
	if err := m.Set(ctx, key, entry); err != nil {
		return 0, err
	}
	return ttl, nil
}

// Revalidated records a 304 Not Modified answer for key: the stored entry
// gets the expiry announced by resp.
func (m *Manager) Revalidated(ctx context.Context, key CacheKey, resp *http.Response) error {
	NotModifiedResponses.Inc()
	return m.UpdateTTL(ctx, key, parseExpires(resp.Header, time.Now(), m.fallbackTTL))
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL moves the expiry of the entry for key.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
