package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple endpoint no params",
			key: CacheKey{
				Endpoint: "/breeds",
			},
			want: "catapi:breeds",
		},
		{
			name: "endpoint with query params",
			key: CacheKey{
				Endpoint: "/images/search",
				QueryParams: url.Values{
					"limit": []string{"20"},
				},
			},
			want: "catapi:images/search:limit=20",
		},
		{
			name: "multiple query params (sorted)",
			key: CacheKey{
				Endpoint: "/images/search",
				QueryParams: url.Values{
					"page":      []string{"0"},
					"order":     []string{"ASC"},
					"limit":     []string{"20"},
					"breed_ids": []string{"abys"},
				},
			},
			want: "catapi:images/search:breed_ids=abys:limit=20:order=ASC:page=0",
		},
		{
			name: "multi-valued param",
			key: CacheKey{
				Endpoint: "/images/search/",
				QueryParams: url.Values{
					"breed_ids": []string{"abys", "beng"},
				},
			},
			want: "catapi:images/search:breed_ids=abys,beng",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{},
			want: "catapi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Endpoint: "/images/search",
		QueryParams: url.Values{
			"breed_ids": []string{"abys"},
			"limit":     []string{"20"},
			"order":     []string{"ASC"},
			"page":      []string{"1"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if result := key.String(); result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}

func TestKeyForRequestURL(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		basePath string
		want     string
	}{
		{
			name:     "strips api base path",
			rawURL:   "https://api.thecatapi.com/v1/images/search?page=2&limit=20",
			basePath: "/v1",
			want:     "catapi:images/search:limit=20:page=2",
		},
		{
			name:     "no base path",
			rawURL:   "http://127.0.0.1:1234/breeds",
			basePath: "",
			want:     "catapi:breeds",
		},
		{
			name:     "trailing slash on base path",
			rawURL:   "https://api.thecatapi.com/v1/breeds",
			basePath: "/v1/",
			want:     "catapi:breeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.rawURL)
			if err != nil {
				t.Fatalf("parse url: %v", err)
			}
			if got := KeyForRequestURL(u, tt.basePath).String(); got != tt.want {
				t.Errorf("KeyForRequestURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
