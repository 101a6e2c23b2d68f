package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is the namespace of every cache key.
const KeyPrefix = "catapi"

// CacheKey identifies a cached upstream response.
type CacheKey struct {
	// Endpoint is the request path relative to the API base (e.g. "/images/search")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: catapi:endpoint:query1=val1:query2=val2
//
// Example:
//
//	catapi:images/search:breed_ids=abys:limit=20:order=ASC:page=0
//
// Multi-valued parameters are joined with commas in request order.
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		names := make([]string, 0, len(k.QueryParams))
		for name := range k.QueryParams {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, name+"="+strings.Join(k.QueryParams[name], ","))
		}
	}

	return strings.Join(parts, ":")
}

// KeyForRequestURL builds the cache key of a request URL. basePath is
// stripped from the path so keys do not depend on where the API is mounted.
func KeyForRequestURL(u *url.URL, basePath string) CacheKey {
	endpoint := u.Path
	if basePath = strings.TrimRight(basePath, "/"); basePath != "" {
		endpoint = strings.TrimPrefix(endpoint, basePath)
	}
	return CacheKey{
		Endpoint:    endpoint,
		QueryParams: u.Query(),
	}
}
