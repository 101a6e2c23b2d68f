// Package cache caches upstream API responses in Redis.
//
// Breed lists and image pages requested in ascending order are stable, so
// the client stores them and revalidates with ETag or Last-Modified when the
// upstream provides one:
//
//   - Expiry from Cache-Control max-age or Expires, else a fallback TTL
//   - no-store and no-cache responses are never stored
//   - Conditional requests (If-None-Match, If-Modified-Since)
//   - Deterministic keys under the "catapi" prefix
//   - Randomly ordered searches (order=RAND) are never cached
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/images/search",
//		QueryParams: url.Values{"breed_ids": {"abys"}, "page": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream
//	}
//
// # HTTP Response Caching
//
//	manager := cache.NewManager(redisClient,
//		cache.WithBasePath("/v1"),
//		cache.WithFallbackTTL(10*time.Minute))
//
//	if cache.Cacheable(req) {
//		key := manager.KeyFor(req)
//		// after a 200
//		ttl, err := manager.Store(ctx, key, resp)
//		// after a 304
//		err = manager.Revalidated(ctx, key, resp)
//	}
//
//	// later
//	resp := cache.EntryToResponse(entry, req)
//
// # Metrics
//
//   - catapi_cache_hits_total{layer="redis"}
//   - catapi_cache_misses_total
//   - catapi_cache_size_bytes{layer="redis"}
//   - catapi_conditional_requests_total
//   - catapi_304_responses_total
//   - catapi_cache_errors_total{operation}
package cache
