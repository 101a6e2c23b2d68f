package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Loaded(t *testing.T) {
	r := NewRunner[string]()
	require.Equal(t, StatusIdle, r.Status())

	got, err := r.Run(context.Background(), func(ctx context.Context) (string, error) {
		return "page", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "page", got)

	state := r.State()
	assert.Equal(t, StatusLoaded, state.Status)
	assert.Equal(t, "page", state.Value)
	assert.NoError(t, state.Err)
}

func TestRunner_ErrorIsRetained(t *testing.T) {
	r := NewRunner[int]()
	boom := errors.New("upstream 500")

	_, err := r.Run(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)

	state := r.State()
	assert.Equal(t, StatusError, state.Status)
	assert.ErrorIs(t, state.Err, boom)
}

func TestRunner_SecondRunAbortsFirst(t *testing.T) {
	r := NewRunner[string]()

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		_, err := r.Run(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			// Resolve successfully even though the runner moved on.
			return "stale", nil
		})
		firstDone <- err
	}()
	<-started

	got, err := r.Run(context.Background(), func(ctx context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)

	close(release)
	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("first call never returned")
	}

	state := r.State()
	assert.Equal(t, StatusLoaded, state.Status)
	assert.Equal(t, "fresh", state.Value)
}

func TestRunner_FirstCallContextCancelledBySecondRun(t *testing.T) {
	r := NewRunner[string]()

	started := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		_, err := r.Run(context.Background(), func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
		firstDone <- err
	}()
	<-started

	blockSecond := make(chan struct{})
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		_, _ = r.Run(context.Background(), func(ctx context.Context) (string, error) {
			<-blockSecond
			return "second", nil
		})
	}()

	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("first call was not cancelled")
	}

	close(blockSecond)
	<-secondDone
	assert.Equal(t, StatusLoaded, r.Status())
}

func TestRunner_AbortSwallowsFailure(t *testing.T) {
	r := NewRunner[int]()

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, errors.New("connection reset")
		})
		done <- err
	}()
	<-started

	r.Abort()
	assert.Equal(t, StatusAborted, r.Status())

	err := <-done
	assert.ErrorIs(t, err, ErrAborted)

	state := r.State()
	assert.Equal(t, StatusAborted, state.Status)
	assert.NoError(t, state.Err)
}

func TestRunner_AbortWhenIdleIsNoop(t *testing.T) {
	r := NewRunner[int]()
	r.Abort()
	assert.Equal(t, StatusIdle, r.Status())
}

func TestRunner_ParentContextCancelled(t *testing.T) {
	r := NewRunner[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StatusAborted, r.Status())
}

func TestRunner_DeadlineIsAnError(t *testing.T) {
	r := NewRunner[int]()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusError, r.Status())
}

func TestRunner_CloseRejectsNewCalls(t *testing.T) {
	r := NewRunner[int]()
	r.Close()

	called := false
	_, err := r.Run(context.Background(), func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrAborted)
	assert.False(t, called)
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusLoading, "loading"},
		{StatusLoaded, "loaded"},
		{StatusError, "error"},
		{StatusAborted, "aborted"},
		{Status(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(context.Canceled))
	assert.True(t, IsAborted(errors.Join(errors.New("fetch"), context.Canceled)))
	assert.False(t, IsAborted(context.DeadlineExceeded))
	assert.False(t, IsAborted(errors.New("boom")))
}
