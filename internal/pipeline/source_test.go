package pipeline

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/internal"
)

func TestDecodeDocumentPlainText(t *testing.T) {
	doc, err := DecodeDocument("order.txt", []byte("Placed: Thu Mar 14 10:00:00 EST 2024\n"))
	require.NoError(t, err)
	assert.Equal(t, internal.SourceText, doc.Source)
	assert.Equal(t, "Placed: Thu Mar 14 10:00:00 EST 2024\n", doc.Text)

	doc, err = DecodeDocument("ORDER", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, internal.SourceText, doc.Source)
}

func TestReadDocumentEmailTextPart(t *testing.T) {
	doc, err := ReadDocument(filepath.Join("testdata", "order_confirmation.eml"))
	require.NoError(t, err)
	assert.Equal(t, internal.SourceEmail, doc.Source)
	assert.Equal(t, "Order Confirmation 3101234567", doc.Subject)
	assert.Contains(t, doc.Text, "Placed: Thu Mar 14 10:00:00 EST 2024")
	assert.Contains(t, doc.Text, "*Estimated Order Total")
}

func TestReadDocumentEmailHTMLOnly(t *testing.T) {
	doc, err := ReadDocument(filepath.Join("testdata", "shipment_html.eml"))
	require.NoError(t, err)

	lines := strings.Split(doc.Text, "\n")
	assert.Contains(t, lines, "Ordered: Thu Jan 05 09:30:00 EST 2023")
	assert.Contains(t, lines, "Item No. P-100 Qty Shipped: 3 EA Unit Price: $4.25 Amount: $12.75")
	assert.Contains(t, lines, "$12.75")
	assert.NotContains(t, doc.Text, "color: red")
}

func TestHTMLToText(t *testing.T) {
	text, err := htmlToText(`<div>Placed: Thu Mar 14 10:00:00 EST 2024<br>Attention: Jane Doe</div><script>var x = 1;</script><p>  Description:   Pipette   Tips </p>`)
	require.NoError(t, err)
	assert.Equal(t, "Placed: Thu Mar 14 10:00:00 EST 2024\nAttention: Jane Doe\nDescription: Pipette Tips", text)
}

func TestReadDocumentMissingFile(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
