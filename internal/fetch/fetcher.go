// Package fetch downloads linked documents referenced by candidate
// messages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxDocumentBytes caps how much of a linked document is read; receipts
// are small and anything larger is not worth OCR time.
const maxDocumentBytes = 10 << 20

// Config holds fetcher options.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

// Fetcher implements document download with bounded retries.
type Fetcher struct {
	client *retryablehttp.Client
}

// New creates a document fetcher.
func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 2
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &Fetcher{client: client}
}

// Get downloads a document, returning its bytes and declared content
// type. The read is capped at maxDocumentBytes.
func (f *Fetcher) Get(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, uri)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	slog.Debug("Fetched linked document",
		"uri", uri,
		"content_type", contentType,
		"bytes", len(content))

	return content, contentType, nil
}
