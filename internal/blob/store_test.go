package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), []byte("pdf-bytes"), "receipts/r1/invoice.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)
}

func TestUploadOverwrites(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Upload(ctx, []byte("first"), "receipts/r1/invoice.pdf")
	require.NoError(t, err)
	url, err := store.Upload(ctx, []byte("second"), "receipts/r1/invoice.pdf")
	require.NoError(t, err)

	data, err := os.ReadFile(strings.TrimPrefix(url, "file://"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestUploadRejectsBadKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "receipts/../../etc/passwd", "receipts//invoice.pdf"} {
		_, uploadErr := store.Upload(ctx, []byte("x"), key)
		assert.Error(t, uploadErr, "key %q", key)
	}

	// nothing escaped the root
	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "escape", e.Name())
	}
}

func TestUploadCancelledContext(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Upload(ctx, []byte("x"), "receipts/r1/invoice.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
