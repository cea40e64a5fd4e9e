package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64URL(t *testing.T) {
	payload := []byte("Receipt from Anthropic. Total: $20.00")

	t.Run("padded", func(t *testing.T) {
		decoded, err := decodeBase64URL(base64.URLEncoding.EncodeToString(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("unpadded", func(t *testing.T) {
		decoded, err := decodeBase64URL(base64.RawURLEncoding.EncodeToString(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, decoded)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := decodeBase64URL("!!not base64!!")
		assert.Error(t, err)
	})
}
