// Package metrics exposes the Prometheus registry used by the slideshow.
// All metrics are defined in their respective packages (client, cache,
// pagination, prefetch, carousel) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package registers its metrics with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Names lists every metric the slideshow exports.
var Names = []string{
	// pkg/cache
	"catapi_cache_hits_total",
	"catapi_cache_misses_total",
	"catapi_cache_size_bytes",
	"catapi_conditional_requests_total",
	"catapi_304_responses_total",
	"catapi_cache_errors_total",

	// pkg/client
	"catapi_requests_total",
	"catapi_request_duration_seconds",
	"catapi_errors_total",
	"catapi_retries_total",
	"catapi_retry_backoff_seconds",
	"catapi_retry_exhausted_total",

	// pkg/pagination
	"carousel_page_fetches_total",

	// pkg/prefetch
	"carousel_prefetch_in_flight",
	"carousel_image_loads_total",
	"carousel_image_retries_total",

	// pkg/carousel
	"carousel_transitions_total",
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - catapi_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - catapi_cache_misses_total (Counter): Cache misses
//   - catapi_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - catapi_304_responses_total (Counter): 304 Not Modified responses
//   - catapi_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - catapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - catapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - catapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - catapi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Carousel Metrics (pkg/pagination, pkg/prefetch, pkg/carousel):
//   - carousel_page_fetches_total{result} (Counter): Page fetches by outcome (loaded, error, aborted, stale)
//   - carousel_prefetch_in_flight (Gauge): Image loads currently running
//   - carousel_image_loads_total{result} (Counter): Image loads by outcome (ready, error, discarded)
//   - carousel_image_retries_total (Counter): Image load retries
//   - carousel_transitions_total{action} (Counter): Dispatched carousel actions
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catapi_cache_hits_total[5m])) /
//   (sum(rate(catapi_cache_hits_total[5m])) + sum(rate(catapi_cache_misses_total[5m])))
//
//   # Broken image ratio
//   rate(carousel_image_loads_total{result="error"}[5m]) / rate(carousel_image_loads_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catapi_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(catapi_304_responses_total[5m]) / rate(catapi_requests_total[5m])
