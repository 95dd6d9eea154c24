// Package source downloads reference datasets over HTTP.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rubiojr/rentgeo/pkg/spatial"
)

const DefaultTimeout = 30 * time.Second

// Client fetches dataset files.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new Client with default settings.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewClientWithHTTP creates a Client using the given HTTP client.
func NewClientWithHTTP(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Fetch downloads url and returns the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return body, nil
}

// FetchAll downloads every dataset concurrently. It fails if any download
// fails.
func (c *Client) FetchAll(ctx context.Context, urls map[spatial.Kind]string) (map[spatial.Kind][]byte, error) {
	var mu sync.Mutex
	out := make(map[spatial.Kind][]byte, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for kind, url := range urls {
		g.Go(func() error {
			data, err := c.Fetch(gctx, url)
			if err != nil {
				return fmt.Errorf("fetching %s from %s: %w", kind, url, err)
			}
			mu.Lock()
			out[kind] = data
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
