package carousel

import (
	"fmt"

	"github.com/Sternrassler/cat-slideshow/pkg/prefetch"
)

// StatusView exposes read-only prefetch statuses to the reducer.
type StatusView interface {
	Status(index int) prefetch.Status
}

// StatusFunc adapts a function to StatusView.
type StatusFunc func(index int) prefetch.Status

// Status implements StatusView.
func (f StatusFunc) Status(index int) prefetch.Status {
	return f(index)
}

// Reduce applies action to state and returns the new state. It has no side
// effects. It panics on an Advance with a delta other than -1 or +1 and on an
// action it does not know.
func Reduce(state State, action Action, view StatusView) State {
	switch a := action.(type) {
	case SelectionChanged:
		return InitialState(a.Key)

	case Advance:
		return advance(state, a.Delta, view)

	case MetadataArrived:
		return withTotal(state, a.TotalCount)

	case PageArrived:
		if a.Key != state.Key || !a.Metadata.HasTotal {
			return state
		}
		return withTotal(state, a.Metadata.TotalCount)

	case ImageReady:
		if a.Status != prefetch.Ready || a.Index != state.CurrentIndex || state.VisibleIndex == a.Index {
			return state
		}
		// Late events from a previous selection must not promote.
		if view.Status(a.Index) != prefetch.Ready {
			return state
		}
		state.VisibleIndex = a.Index
		return state

	default:
		panic(fmt.Sprintf("carousel: unknown action %T", action))
	}
}

func advance(state State, delta int, view StatusView) State {
	if delta != 1 && delta != -1 {
		panic(fmt.Sprintf("carousel: invalid advance delta %d", delta))
	}

	limit := state.CurrentIndex
	if max, ok := state.KnownMax(); ok {
		limit = max
	}

	candidate := clamp(state.CurrentIndex+delta, 0, limit)

	if view.Status(candidate) == prefetch.Error {
		if ready, ok := nearestReady(candidate, delta, limit, view); ok {
			candidate = ready
		}
	}

	state.CurrentIndex = candidate
	if delta > 0 {
		state.Direction = Next
	} else {
		state.Direction = Previous
	}
	if view.Status(candidate) == prefetch.Ready {
		state.VisibleIndex = candidate
	}
	return state
}

// nearestReady scans from index in the direction of delta up to limit and
// returns the first ready index. Untracked and pending indices are passed over.
func nearestReady(index, delta, limit int, view StatusView) (int, bool) {
	for i := index + delta; i >= 0 && i <= limit; i += delta {
		if view.Status(i) == prefetch.Ready {
			return i, true
		}
	}
	return 0, false
}

func withTotal(state State, total int) State {
	max := total - 1
	if max < 0 {
		max = 0
	}
	state.MaxIndex = max
	if state.CurrentIndex > max {
		state.CurrentIndex = max
	}
	if state.VisibleIndex > max {
		state.VisibleIndex = NoIndex
	}
	return state
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
