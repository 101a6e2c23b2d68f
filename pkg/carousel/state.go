package carousel

import "fmt"

// NoIndex marks the absence of a visible index.
const NoIndex = -1

// UnknownIndex marks a MaxIndex that has not been reported yet.
const UnknownIndex = -1

// Direction is the most recent navigation direction.
type Direction int

const (
	// Next is forward navigation (and the initial direction).
	Next Direction = iota

	// Previous is backward navigation.
	Previous
)

// String returns "next" or "previous".
func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "next":
		*d = Next
	case "previous":
		*d = Previous
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// State is the carousel position for one selection key.
type State struct {
	Key          string    `json:"key"`
	CurrentIndex int       `json:"currentIndex"`
	VisibleIndex int       `json:"visibleIndex"`
	Direction    Direction `json:"direction"`
	MaxIndex     int       `json:"maxIndex"`
}

// InitialState returns the state every selection starts from.
func InitialState(key string) State {
	return State{
		Key:          key,
		CurrentIndex: 0,
		VisibleIndex: NoIndex,
		Direction:    Next,
		MaxIndex:     UnknownIndex,
	}
}

// HasVisible reports whether an image is being shown.
func (s State) HasVisible() bool {
	return s.VisibleIndex != NoIndex
}

// KnownMax returns MaxIndex and whether it is known.
func (s State) KnownMax() (int, bool) {
	if s.MaxIndex == UnknownIndex {
		return 0, false
	}
	return s.MaxIndex, true
}

// Loading reports whether the current index is not displayed yet.
func (s State) Loading() bool {
	return s.VisibleIndex != s.CurrentIndex
}

// CanNext reports whether Advance(+1) can move the current index.
func (s State) CanNext() bool {
	max, ok := s.KnownMax()
	return ok && s.CurrentIndex < max
}

// CanPrevious reports whether Advance(-1) can move the current index.
func (s State) CanPrevious() bool {
	return s.CurrentIndex > 0
}
