// Package render provides a client and resource pool for a headless
// rendering service that captures HTML as images.
package render

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/service"
)

// Config holds renderer service configuration.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	// PoolSize bounds concurrent renders; render slots are expensive.
	PoolSize int
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:  20 * time.Second,
		PoolSize: 2,
	}
}

// Client talks to the headless rendering service over HTTP.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a renderer client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("renderer endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type renderRequest struct {
	HTML string `json:"html"`
}

type renderResponse struct {
	Image string `json:"image"`
}

type regionResponse struct {
	Found  bool `json:"found"`
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Width  int  `json:"width"`
	Height int  `json:"height"`
}

type cropRequest struct {
	Image  string `json:"image"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Render captures the HTML as a full-page image.
func (c *Client) Render(ctx context.Context, html string) ([]byte, error) {
	var resp renderResponse
	if err := c.post(ctx, "/v1/render", renderRequest{HTML: html}, &resp); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.Image)
}

// LocateReceiptRegion asks the service for a receipt-shaped sub-region
// of a rendered page. Returns nil when none is found.
func (c *Client) LocateReceiptRegion(ctx context.Context, page []byte) (*service.BoundingBox, error) {
	var resp regionResponse
	payload := map[string]string{"image": base64.StdEncoding.EncodeToString(page)}
	if err := c.post(ctx, "/v1/locate-region", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, nil
	}
	return &service.BoundingBox{X: resp.X, Y: resp.Y, Width: resp.Width, Height: resp.Height}, nil
}

// Crop returns the sub-image described by the bounding box.
func (c *Client) Crop(ctx context.Context, page []byte, box service.BoundingBox) ([]byte, error) {
	var resp renderResponse
	req := cropRequest{
		Image:  base64.StdEncoding.EncodeToString(page),
		X:      box.X,
		Y:      box.Y,
		Width:  box.Width,
		Height: box.Height,
	}
	if err := c.post(ctx, "/v1/crop", req, &resp); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(resp.Image)
}

// Healthy pings the service with a short deadline.
func (c *Client) Healthy(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(pingCtx, http.MethodGet, c.endpoint+"/healthz", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// post sends a JSON request and decodes the JSON response.
func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, strings.NewReader(string(jsonBody)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("renderer error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
