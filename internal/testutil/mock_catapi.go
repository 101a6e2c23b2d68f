// Package testutil provides a mock cat API server for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// BasePath is the API prefix served by MockCatAPI.
const BasePath = "/v1"

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatAPI is a configurable in-process cat API. Each breed has a fixed
// number of images; image URLs point back at the server and return a small
// PNG unless marked broken.
type MockCatAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	breeds    map[string]breedInfo
	broken    map[string]bool
	omitTotal bool
	delay     time.Duration

	// Tracking
	RequestCount      int
	ConditionalCount  int
	ImageRequestCount int
	SearchQueries     []string
	LastRequestHeader http.Header
}

type breedInfo struct {
	name  string
	count int
}

var pixel = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

// NewMockCatAPI creates and starts a mock server.
func NewMockCatAPI() *MockCatAPI {
	mock := &MockCatAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		breeds:   make(map[string]breedInfo),
		broken:   make(map[string]bool),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		delay := mock.delay
		mock.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if exists {
			handler(w, r)
			return
		}

		switch {
		case r.URL.Path == BasePath+"/breeds":
			mock.breedsHandler(w, r)
		case r.URL.Path == BasePath+"/images/search":
			mock.searchHandler(w, r)
		case strings.HasPrefix(r.URL.Path, "/img/"):
			mock.imageHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the server root URL.
func (m *MockCatAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API base URL to configure clients with.
func (m *MockCatAPI) BaseURL() string {
	return m.server.URL + BasePath
}

// Close shuts down the mock server.
func (m *MockCatAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.ImageRequestCount = 0
	m.SearchQueries = nil
	m.LastRequestHeader = nil
}

// AddBreed registers a breed with count images.
func (m *MockCatAPI) AddBreed(id, name string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breeds[id] = breedInfo{name: name, count: count}
}

// BreakImage makes the image with the given id answer 404.
func (m *MockCatAPI) BreakImage(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken[id] = true
}

// OmitTotal drops the pagination-count header from search responses.
func (m *MockCatAPI) OmitTotal(omit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitTotal = omit
}

// SetDelay delays every response.
func (m *MockCatAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockCatAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetImageRequestCount returns the number of image downloads.
func (m *MockCatAPI) GetImageRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ImageRequestCount
}

// GetSearchQueries returns the raw query of every search request.
func (m *MockCatAPI) GetSearchQueries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.SearchQueries...)
}

// ImageID returns the id of the n-th image of a breed.
func ImageID(breed string, n int) string {
	return fmt.Sprintf("%s-%03d", breed, n)
}

func (m *MockCatAPI) breedsHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.breeds))
	for id := range m.breeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]string, len(ids))
	for i, id := range ids {
		out[i] = map[string]string{"id": id, "name": m.breeds[id].name}
	}
	m.mu.RUnlock()

	writeJSON(w, r, out, nil)
}

func (m *MockCatAPI) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		http.Error(w, `{"message":"bad limit"}`, http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))

	m.mu.Lock()
	m.SearchQueries = append(m.SearchQueries, r.URL.RawQuery)
	ids := m.catalogLocked(q.Get("breed_ids"))
	omitTotal := m.omitTotal
	m.mu.Unlock()

	start := page * limit
	if start > len(ids) {
		start = len(ids)
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}

	images := make([]map[string]any, 0, end-start)
	for _, id := range ids[start:end] {
		images = append(images, map[string]any{
			"id":     id,
			"url":    m.server.URL + "/img/" + id + ".png",
			"width":  2,
			"height": 2,
		})
	}

	headers := map[string]string{}
	if !omitTotal {
		headers["Pagination-Count"] = strconv.Itoa(len(ids))
	}
	writeJSON(w, r, images, headers)
}

// catalogLocked lists the image ids of a breed, or of every breed when
// breed is empty.
func (m *MockCatAPI) catalogLocked(breed string) []string {
	var names []string
	if breed != "" {
		names = strings.Split(breed, ",")
	} else {
		for id := range m.breeds {
			names = append(names, id)
		}
		sort.Strings(names)
	}

	var ids []string
	for _, name := range names {
		info, ok := m.breeds[name]
		if !ok {
			continue
		}
		for i := 0; i < info.count; i++ {
			ids = append(ids, ImageID(name, i))
		}
	}
	return ids
}

func (m *MockCatAPI) imageHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/img/"), ".png")

	m.mu.Lock()
	m.ImageRequestCount++
	broken := m.broken[id]
	m.mu.Unlock()

	if broken {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(pixel)
}

// writeJSON writes v with an ETag derived from the body and answers
// matching conditional requests with 304.
func writeJSON(w http.ResponseWriter, r *http.Request, v any, headers map[string]string) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	etag := fmt.Sprintf(`"%08x"`, crc32.ChecksumIEEE(body))

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "max-age=300")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// NewJSONResponse creates a 200 OK response with validators.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"Expires": time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(retryAfter),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
