package prefetch

// Status is the prefetch state of one global index.
type Status int

const (
	// Unseen indices have never entered the prefetch window.
	Unseen Status = iota

	// Waiting indices are in the window but not yet admitted.
	Waiting

	// InFlight indices have an image load running.
	InFlight

	// Ready indices have a decodable image.
	Ready

	// Error indices failed to load (after the optional retry).
	Error
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Waiting:
		return "waiting"
	case InFlight:
		return "in-flight"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Ready or Error.
func (s Status) Terminal() bool {
	return s == Ready || s == Error
}

// Resolution is the outcome of looking up the image URL for an index.
type Resolution int

const (
	// Pending means the page holding the index is not loaded yet.
	Pending Resolution = iota

	// Resolved means the URL is known and the image can be loaded.
	Resolved

	// Unavailable means the page holding the index failed. The index
	// settles as Error without a load.
	Unavailable
)
