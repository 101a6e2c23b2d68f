package pagination

import "fmt"

// Item is a single carousel entry. Items are immutable once read from a page.
type Item struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PageStatus is the state of a fetched page.
type PageStatus int

const (
	// PageLoading marks a page whose request is in flight.
	PageLoading PageStatus = iota

	// PageLoaded marks a page whose items are available.
	PageLoaded

	// PageError marks a page whose request failed.
	PageError
)

// String returns the lowercase name of the status.
func (s PageStatus) String() string {
	switch s {
	case PageLoading:
		return "loading"
	case PageLoaded:
		return "loaded"
	case PageError:
		return "error"
	default:
		return fmt.Sprintf("PageStatus(%d)", int(s))
	}
}

// Page is one fetched unit of the collection. Build pages with LoadingPage,
// LoadedPage or FailedPage; Items is only populated for loaded pages and Err
// only for failed ones.
type Page struct {
	Index  int
	Status PageStatus
	Items  []Item
	Err    error
}

// LoadingPage returns a placeholder for a page whose request is in flight.
func LoadingPage(index int) Page {
	return Page{Index: index, Status: PageLoading}
}

// LoadedPage returns a page holding items. The slice is copied.
func LoadedPage(index int, items []Item) Page {
	cp := make([]Item, len(items))
	copy(cp, items)
	return Page{Index: index, Status: PageLoaded, Items: cp}
}

// FailedPage returns a page whose request failed with err.
func FailedPage(index int, err error) Page {
	return Page{Index: index, Status: PageError, Err: err}
}

// ItemAt returns the item at offset within the page.
func (p Page) ItemAt(offset int) (Item, bool) {
	if p.Status != PageLoaded || offset < 0 || offset >= len(p.Items) {
		return Item{}, false
	}
	return p.Items[offset], true
}

// Metadata is pagination information carried by a response.
type Metadata struct {
	// TotalCount is the number of items across all pages for the current query.
	TotalCount int

	// HasTotal is false when the response did not report a total.
	HasTotal bool
}

// MaxIndex returns the last valid global index, or false if unknown.
func (m Metadata) MaxIndex() (int, bool) {
	if !m.HasTotal {
		return 0, false
	}
	return m.TotalCount - 1, true
}
