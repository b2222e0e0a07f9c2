// Package fetcher obtains page HTML, either over plain HTTP or from a headless browser.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; chip-gate/1.0)"
	maxBodyBytes     = 8 << 20
)

// Fetcher downloads raw HTML over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
	}
}

// NewWithClient uses client instead of the default one.
func NewWithClient(client *http.Client) *Fetcher {
	f := NewFetcher()
	if client != nil {
		f.client = client
	}
	return f
}

// GetHTML returns the body of url. Non-200 responses and non-HTML content types are errors.
func (f *Fetcher) GetHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unexpected content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}
