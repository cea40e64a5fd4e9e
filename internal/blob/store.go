// Package blob stores evidence attachments on the local filesystem,
// keyed by a slash-separated path.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/tally/internal/service"
)

// Store writes blobs under a root directory and returns file:// URLs.
type Store struct {
	root string
}

// New creates a filesystem blob store rooted at dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Upload writes data under key and returns a URL referencing it. Keys
// use forward slashes; path traversal segments are rejected.
func (s *Store) Upload(ctx context.Context, data []byte, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return "", fmt.Errorf("invalid blob key: %s", key)
		}
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob path: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve blob path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

var _ service.BlobStore = (*Store)(nil)
