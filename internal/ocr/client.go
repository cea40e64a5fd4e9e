// Package ocr provides a client for a remote OCR service.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Config holds OCR service configuration.
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls a remote OCR service over HTTP. An empty recognition
// result is a normal outcome, not an error.
type Client struct {
	httpClient *retryablehttp.Client
	endpoint   string
	apiKey     string
}

// NewClient creates a new OCR client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OCR endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 2
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = retries
	httpClient.HTTPClient.Timeout = timeout
	httpClient.Logger = nil

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

type recognizeRequest struct {
	Image string `json:"image"`
}

type recognizeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Recognize sends image or document bytes to the OCR service and returns
// the recognized text.
func (c *Client) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", nil
	}

	jsonBody, err := json.Marshal(recognizeRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/recognize", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OCR service error (status %d): %s", resp.StatusCode, string(body))
	}

	var response recognizeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("OCR service error: %s", response.Error)
	}

	return response.Text, nil
}
