package carousel

import (
	"github.com/Sternrassler/cat-slideshow/pkg/pagination"
	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
)

// Action is an input to the carousel state machine. The set of actions is
// closed: only the types in this file implement it.
type Action interface {
	// Name labels the action in logs and metrics.
	Name() string
	isAction()
}

// SelectionChanged switches the carousel to a new selection key.
type SelectionChanged struct {
	Key string
}

// Advance moves the current index by Delta, which must be -1 or +1.
type Advance struct {
	Delta int
}

// MetadataArrived reports the total item count for the live key.
type MetadataArrived struct {
	TotalCount int
}

// PageArrived reports a settled page request.
type PageArrived struct {
	Key       string
	PageIndex int
	Status    pagination.PageStatus
	Metadata  pagination.Metadata
}

// ImageReady reports a terminal prefetch status for an index.
type ImageReady struct {
	Index  int
	Status prefetch.Status
}

func (SelectionChanged) Name() string { return "select" }
func (MetadataArrived) Name() string  { return "metadata" }
func (PageArrived) Name() string      { return "page" }
func (ImageReady) Name() string       { return "image" }

// Name returns "next" or "previous" for valid deltas.
func (a Advance) Name() string {
	if a.Delta < 0 {
		return "previous"
	}
	return "next"
}

func (SelectionChanged) isAction() {}
func (Advance) isAction()          {}
func (MetadataArrived) isAction()  {}
func (PageArrived) isAction()      {}
func (ImageReady) isAction()       {}
