// Package transport fetches the remote component files of an indirect
// document. Connectivity failures and non-success responses are distinct so
// callers can map them to their own error taxonomy.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Fetcher retrieves the bytes of one remote file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StatusError reports that the server was reached but answered with a
// non-success status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Status)
}

// HTTPFetcher fetches over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}

// MapFetcher serves files from memory. It backs tests and tools that assemble
// indirect documents without a server; missing keys answer like a 404. Fetch
// is safe for concurrent use: dependency batches fetch in parallel.
type MapFetcher struct {
	Files map[string][]byte

	mu    sync.Mutex
	Calls int
}

func (f *MapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.Calls++
	data, ok := f.Files[url]
	f.mu.Unlock()
	if !ok {
		return nil, &StatusError{URL: url, StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	return data, nil
}
