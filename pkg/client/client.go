// Package client is the HTTP client of the cat image API with optional Redis
// response caching, retries and error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cat-slideshow/pkg/cache"
	"github.com/Sternrassler/cat-slideshow/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public cat API.
const DefaultBaseURL = "https://api.thecatapi.com/v1"

// Client is the cat API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, e.g. "https://api.thecatapi.com/v1"
	BaseURL string

	// APIKey is sent as x-api-key when set
	APIKey string

	// UserAgent header (required)
	UserAgent string

	// Redis enables response caching when set
	Redis redis.UniversalClient

	// CacheTTL is used for responses without caching headers
	CacheTTL time.Duration

	// Retry
	MaxRetries     int // total attempts including the first
	InitialBackoff time.Duration

	// Timeout per HTTP attempt (0 = none)
	Timeout time.Duration

	// DelayMillis delays every request, for demonstrating slow networks
	DelayMillis int
}

// DefaultConfig returns a configuration for the public API.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIKey:         apiKey,
		UserAgent:      "catslide/1.0",
		CacheTTL:       10 * time.Minute,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		Timeout:        30 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultRetryConfig().InitialBackoff
	}
	if cfg.DelayMillis < 0 {
		return nil, fmt.Errorf("delay must be >= 0 (got %d)", cfg.DelayMillis)
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger("catapi-client"),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis,
			cache.WithBasePath(base.Path),
			cache.WithFallbackTTL(cfg.CacheTTL))
	}
	return c, nil
}

// retryConfig returns the retry policy derived from the client config.
func (c *Client) retryConfig() RetryConfig {
	rc := DefaultRetryConfig()
	rc.MaxAttempts = c.config.MaxRetries
	rc.InitialBackoff = c.config.InitialBackoff
	if rc.MaxBackoff < rc.InitialBackoff {
		rc.MaxBackoff = rc.InitialBackoff * 8
	}
	return rc
}

// endpoint returns the request path relative to the base URL.
func (c *Client) endpoint(u *url.URL) string {
	path := strings.TrimPrefix(u.Path, c.baseURL.Path)
	if path == "" {
		return "/"
	}
	return path
}

// Do performs an HTTP request with caching, retries and error classification.
// 4xx responses are returned to the caller; retriable failures that persist
// end in ErrRetryExhausted.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := c.endpoint(req.URL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache
	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	useCache := c.cache != nil && cache.Cacheable(req)
	if useCache {
		cacheKey = c.cache.KeyFor(req)

		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	// Step 2: Serve fresh entries without validators, revalidate the rest
	if cachedEntry != nil {
		if !cache.ShouldMakeConditionalRequest(cachedEntry) {
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
			return cache.EntryToResponse(cachedEntry, req), nil
		}
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}

	// Step 4: Optional artificial latency
	if err := c.delay(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing request")

	// Step 5: Execute with retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.retryConfig(), c.logger, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			resp = nil
			if ctx.Err() != nil {
				// Cancelled by the caller: not an upstream failure.
				return reqErr
			}
			errClass := c.classifyError(nil, reqErr)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return &APIError{
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass := c.classifyError(resp, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Upstream request error")

			if shouldRetry(errClass) {
				apiErr := &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
					RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				}
				resp.Body.Close()
				resp = nil
				return apiErr
			}

			// Client errors are final; the caller reads the status.
			return nil
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		if err := c.cache.Revalidated(ctx, cacheKey, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry, req), nil
	}

	// Step 7: Update cache on success
	if useCache {
		ttl, err := c.cache.Store(ctx, cacheKey, resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else if ttl > 0 {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", ttl).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// delay waits DelayMillis or until ctx is done.
func (c *Client) delay(ctx context.Context) error {
	if c.config.DelayMillis <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(c.config.DelayMillis) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Get performs a GET request to an endpoint relative to the base URL.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(endpoint, "/")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Ping checks the response cache backend. It is a no-op without Redis.
func (c *Client) Ping(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Ping(ctx)
}

// Close releases idle connections. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
