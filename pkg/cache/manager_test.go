package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips the test when none is
// running. tests/integration covers the same paths against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	// Ping to check connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	// Flush test DB before each test
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != redis.UniversalClient(client) {
		t.Error("Manager redis client not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/images/search",
	}

	entry := &CacheEntry{
		Data:         []byte(`[{"id":"abc","url":"https://cdn2.thecatapi.com/images/abc.jpg"}]`),
		ETag:         `"abc123"`,
		Expires:      time.Now().Add(5 * time.Minute),
		LastModified: time.Now().Add(-1 * time.Hour),
		StatusCode:   200,
		Headers:      http.Header{"Content-Type": []string{"application/json"}},
		CachedAt:     time.Now(),
	}

	// Set entry
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Get entry
	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Verify data
	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}
	if retrieved.StatusCode != entry.StatusCode {
		t.Errorf("StatusCode mismatch: got %d, want %d", retrieved.StatusCode, entry.StatusCode)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/breeds/missing",
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_ExpiredEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/breeds",
	}

	// Create already expired entry
	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(-1 * time.Hour), // Already expired
	}

	// Set should not cache expired entries
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Get should return cache miss
	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/breeds",
	}

	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	// Set entry
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Verify it exists
	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}

	// Delete entry
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Verify it's gone
	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_UpdateTTL(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/breeds",
	}

	// Create entry with initial TTL
	entry := &CacheEntry{
		Data:    []byte(`{"test": "data"}`),
		Expires: time.Now().Add(5 * time.Minute),
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Update TTL to a new expiration time
	newExpires := time.Now().Add(10 * time.Minute)
	if err := manager.UpdateTTL(ctx, key, newExpires); err != nil {
		t.Fatalf("UpdateTTL failed: %v", err)
	}

	// Get entry and verify new expiration
	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after UpdateTTL failed: %v", err)
	}

	// Check that the new expires time is close to what we set
	diff := retrieved.Expires.Sub(newExpires)
	if diff < -1*time.Second || diff > 1*time.Second {
		t.Errorf("Expires time not updated correctly: got %v, want %v (diff: %v)",
			retrieved.Expires, newExpires, diff)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{
		Endpoint: "/breeds",
	}

	err := manager.Set(ctx, key, nil)
	if err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()

	key := CacheKey{Endpoint: "/breeds"}
	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Ping(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)

	if err := manager.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		want   bool
	}{
		{"breeds", http.MethodGet, "https://api.thecatapi.com/v1/breeds", true},
		{"ascending search", http.MethodGet, "https://api.thecatapi.com/v1/images/search?order=ASC&page=0", true},
		{"random search", http.MethodGet, "https://api.thecatapi.com/v1/images/search?order=RAND", false},
		{"random search lowercase", http.MethodGet, "https://api.thecatapi.com/v1/images/search?order=rand", false},
		{"post", http.MethodPost, "https://api.thecatapi.com/v1/votes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, tt.url, nil)
			if got := Cacheable(req); got != tt.want {
				t.Errorf("Cacheable() = %v, want %v", got, tt.want)
			}
		})
	}

	if Cacheable(nil) {
		t.Error("Cacheable(nil) = true, want false")
	}
}

func TestManager_KeyForStripsBasePath(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, WithBasePath("/v1"))
	req, _ := http.NewRequest(http.MethodGet, "https://api.thecatapi.com/v1/images/search?page=1&limit=20", nil)

	want := "catapi:images/search:limit=20:page=1"
	if got := manager.KeyFor(req).String(); got != want {
		t.Errorf("KeyFor() = %q, want %q", got, want)
	}
}

func newPageResponse(status int, headers http.Header) *http.Response {
	if headers == nil {
		headers = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Header:     headers,
		Body:       io.NopCloser(bytes.NewReader([]byte(`[{"id":"abc"}]`))),
	}
}

func TestManager_Store(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, WithFallbackTTL(time.Minute))
	ctx := context.Background()
	key := CacheKey{Endpoint: "/images/search"}

	// Non-200 and no-store responses are skipped.
	if ttl, err := manager.Store(ctx, key, newPageResponse(http.StatusNotFound, nil)); err != nil || ttl != 0 {
		t.Errorf("Store(404) = %v, %v; want 0, nil", ttl, err)
	}
	noStore := http.Header{"Cache-Control": []string{"no-store"}}
	if ttl, err := manager.Store(ctx, key, newPageResponse(http.StatusOK, noStore)); err != nil || ttl != 0 {
		t.Errorf("Store(no-store) = %v, %v; want 0, nil", ttl, err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss, got %v", err)
	}

	// Without caching headers the fallback TTL applies.
	resp := newPageResponse(http.StatusOK, http.Header{"Etag": []string{`"v1"`}})
	ttl, err := manager.Store(ctx, key, resp)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if ttl <= 50*time.Second || ttl > time.Minute {
		t.Errorf("ttl = %v, want about 1m", ttl)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `[{"id":"abc"}]` {
		t.Errorf("response body not restored: %s", body)
	}

	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.ETag != `"v1"` {
		t.Errorf("ETag = %q, want \"v1\"", entry.ETag)
	}
}

func TestManager_Revalidated(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := CacheKey{Endpoint: "/breeds"}

	entry := &CacheEntry{
		Data:    []byte(`[]`),
		ETag:    `"v1"`,
		Expires: time.Now().Add(5 * time.Second),
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	notModified := newPageResponse(http.StatusNotModified, http.Header{"Cache-Control": []string{"max-age=600"}})
	if err := manager.Revalidated(ctx, key, notModified); err != nil {
		t.Fatalf("Revalidated failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ttl := got.TTL(); ttl < 9*time.Minute {
		t.Errorf("TTL after revalidation = %v, want about 10m", ttl)
	}
	if got.ETag != `"v1"` {
		t.Errorf("ETag = %q, want the stored one", got.ETag)
	}

	if err := manager.Revalidated(ctx, CacheKey{Endpoint: "/gone"}, notModified); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for unknown key, got %v", err)
	}
}
