package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, `subject:("Order Confirmation")`, searchQuery(" Order Confirmation "))
	assert.Equal(t, "from:orders@example.com newer_than:7d", searchQuery("from:orders@example.com newer_than:7d"))
}

func TestDecodeBase64URL(t *testing.T) {
	raw := []byte("Subject: hi\r\n\r\n??>>")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		got, err := decodeBase64URL(enc.EncodeToString(raw))
		require.NoError(t, err)
		assert.Equal(t, raw, got)
	}

	_, err := decodeBase64URL("not base64 !!")
	assert.Error(t, err)
}
