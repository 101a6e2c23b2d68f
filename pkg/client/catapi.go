package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
)

// AllBreeds is the selection key that disables the breed filter.
const AllBreeds = "all"

// PaginationCountHeader carries the total size of a search result.
const PaginationCountHeader = "Pagination-Count"

// Breed is one entry of GET /breeds.
type Breed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Image is one entry of GET /images/search.
type Image struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ImageQuery selects one page of a search.
type ImageQuery struct {
	BreedID string // empty or AllBreeds for no filter
	Page    int
	Limit   int
	Order   string // ASC when empty
}

// ImagePage is one page of search results.
type ImagePage struct {
	Images []Image
	// TotalCount is only meaningful when HasTotal is set
	TotalCount int
	HasTotal   bool
}

// Breeds lists all breeds.
func (c *Client) Breeds(ctx context.Context) ([]Breed, error) {
	resp, err := c.Get(ctx, "/breeds", nil)
	if err != nil {
		return nil, fmt.Errorf("list breeds: %w", err)
	}
	defer resp.Body.Close()

	var breeds []Breed
	if err := decodeJSON(resp, &breeds); err != nil {
		return nil, fmt.Errorf("list breeds: %w", err)
	}
	return breeds, nil
}

// SearchImages fetches one page of images.
func (c *Client) SearchImages(ctx context.Context, q ImageQuery) (ImagePage, error) {
	if q.Limit <= 0 {
		return ImagePage{}, fmt.Errorf("limit must be > 0 (got %d)", q.Limit)
	}
	if q.Page < 0 {
		return ImagePage{}, fmt.Errorf("page must be >= 0 (got %d)", q.Page)
	}
	order := q.Order
	if order == "" {
		order = "ASC"
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(q.Limit))
	query.Set("order", order)
	query.Set("page", strconv.Itoa(q.Page))
	if q.BreedID != "" && q.BreedID != AllBreeds {
		query.Set("breed_ids", q.BreedID)
	}

	resp, err := c.Get(ctx, "/images/search", query)
	if err != nil {
		return ImagePage{}, fmt.Errorf("search images: %w", err)
	}
	defer resp.Body.Close()

	var page ImagePage
	if err := decodeJSON(resp, &page.Images); err != nil {
		return ImagePage{}, fmt.Errorf("search images: %w", err)
	}

	if raw := resp.Header.Get(PaginationCountHeader); raw != "" {
		total, err := strconv.Atoi(raw)
		if err != nil || total < 0 {
			c.logger.Warn().Str("value", raw).Msg("Ignoring malformed pagination-count header")
		} else {
			page.TotalCount = total
			page.HasTotal = true
		}
	}
	return page, nil
}

// ImageSource adapts SearchImages to the page fetcher. The collection key is
// a breed id or AllBreeds.
func (c *Client) ImageSource() pagination.Source {
	return pagination.SourceFunc(func(ctx context.Context, key string, pageIndex, pageSize int) (pagination.Response, error) {
		page, err := c.SearchImages(ctx, ImageQuery{
			BreedID: key,
			Page:    pageIndex,
			Limit:   pageSize,
		})
		if err != nil {
			return pagination.Response{}, err
		}

		items := make([]pagination.Item, len(page.Images))
		for i, img := range page.Images {
			items[i] = pagination.Item{ID: img.ID, URL: img.URL}
		}
		return pagination.Response{
			Items: items,
			Metadata: pagination.Metadata{
				TotalCount: page.TotalCount,
				HasTotal:   page.HasTotal,
			},
		}, nil
	})
}

// BreedOptions returns the selectable breeds with the AllBreeds entry first.
func BreedOptions(breeds []Breed) []Breed {
	out := make([]Breed, 0, len(breeds)+1)
	out = append(out, Breed{ID: AllBreeds, Name: "All Breeds"})
	return append(out, breeds...)
}

// decodeJSON turns non-2xx responses into an APIError and decodes the body
// into v otherwise.
func decodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		class := ErrorClassClient
		if resp.StatusCode >= 500 {
			class = ErrorClassServer
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    string(body),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
