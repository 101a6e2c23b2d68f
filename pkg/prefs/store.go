// Package prefs persists small user preferences, such as the selected
// breed, in a key-value store.
package prefs

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("prefs: store closed")

// Store is a string key-value store.
type Store interface {
	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Close releases the store.
	Close() error
}
