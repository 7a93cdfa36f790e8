package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// maxResourceSize bounds a single HTTP resource read.
const maxResourceSize = 64 << 20

// HTTP implements Source by fetching base+name over HTTP.
type HTTP struct {
	base       string
	httpClient *http.Client
}

// NewHTTP creates an HTTP source. A nil client gets a 30 second timeout.
func NewHTTP(base string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: base, httpClient: client}
}

// Read fetches the named resource. 404 maps to os.ErrNotExist.
func (h *HTTP) Read(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+name, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("storage: fetch %s: %w", name, os.ErrNotExist)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage: fetch %s: status %d", name, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("storage: read body %s: %w", name, err)
	}
	return data, nil
}
