// Package request runs one cancellable network-bound operation at a time and
// exposes its lifecycle as a status value.
package request

import (
	"context"
	"errors"
	"sync"
)

// ErrAborted is returned by Run when the call was cancelled through Abort,
// a newer Run, Close, or cancellation of the parent context.
// It is a terminal state, not a failure.
var ErrAborted = errors.New("request aborted")

// Status is the lifecycle state of a Runner.
type Status int

const (
	// StatusIdle means no call has been started yet.
	StatusIdle Status = iota

	// StatusLoading means a call is in flight.
	StatusLoading

	// StatusLoaded means the last call completed successfully.
	StatusLoaded

	// StatusError means the last call failed; State().Err holds the cause.
	StatusError

	// StatusAborted means the last call was cancelled before completing.
	StatusAborted
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Operation is a single cancellable call. It must honor ctx.
type Operation[T any] func(ctx context.Context) (T, error)

// State is a snapshot of a Runner.
type State[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Runner allows at most one outstanding call. Starting a new call aborts the
// previous one, and an aborted call never reports Loaded or Error.
// Callers needing concurrent calls use separate runners.
type Runner[T any] struct {
	mu     sync.Mutex
	state  State[T]
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

// NewRunner creates an idle runner.
func NewRunner[T any]() *Runner[T] {
	return &Runner[T]{}
}

// Run executes op and blocks until it returns or is aborted.
// It returns ErrAborted when the call was superseded or cancelled, regardless
// of what op itself returned.
func (r *Runner[T]) Run(ctx context.Context, op Operation[T]) (T, error) {
	var zero T

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return zero, ErrAborted
	}
	r.abortLocked()
	r.seq++
	seq := r.seq
	callCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state = State[T]{Status: StatusLoading}
	r.mu.Unlock()

	value, err := op(callCtx)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Superseded by another Run, or aborted via Abort/Close.
	if seq != r.seq || r.state.Status != StatusLoading {
		cancel()
		return zero, ErrAborted
	}
	r.cancel = nil
	cancel()

	if err != nil && (IsAborted(err) || errors.Is(ctx.Err(), context.Canceled)) {
		r.state = State[T]{Status: StatusAborted}
		return zero, ErrAborted
	}
	if err != nil {
		r.state = State[T]{Status: StatusError, Err: err}
		return zero, err
	}

	r.state = State[T]{Status: StatusLoaded, Value: value}
	return value, nil
}

// Abort cancels the in-flight call, if any, and moves the runner to Aborted.
func (r *Runner[T]) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
}

func (r *Runner[T]) abortLocked() {
	if r.state.Status != StatusLoading {
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.state = State[T]{Status: StatusAborted}
}

// Close aborts any in-flight call. Subsequent Run calls return ErrAborted
// without invoking their operation.
func (r *Runner[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortLocked()
	r.closed = true
}

// State returns a snapshot of the runner.
func (r *Runner[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the current lifecycle status.
func (r *Runner[T]) Status() Status {
	return r.State().Status
}

// IsAborted reports whether err represents cancellation rather than failure.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
