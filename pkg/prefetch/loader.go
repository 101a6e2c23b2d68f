package prefetch

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"net/http"
)

// Loader loads a single image. Load returns nil once the image is confirmed
// decodable and an error on any failure, including cancellation of ctx.
type Loader interface {
	Load(ctx context.Context, url string) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) error

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, url string) error {
	return f(ctx, url)
}

// HTTPLoader downloads an image and decodes its header.
type HTTPLoader struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPLoader creates an HTTPLoader. A nil client means http.DefaultClient.
func NewHTTPLoader(client *http.Client, userAgent string) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{Client: client, UserAgent: userAgent}
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create image request: %w", err)
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("image request failed: status %d", resp.StatusCode)
	}

	if _, _, err := image.DecodeConfig(resp.Body); err != nil {
		return fmt.Errorf("image not decodable: %w", err)
	}
	return nil
}
