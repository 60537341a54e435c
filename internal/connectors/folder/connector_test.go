package folder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMessage(t *testing.T, dir, name, subject, messageID string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	raw := "From: orders@example.com\r\n" +
		"Subject: " + subject + "\r\n" +
		"Date: Thu, 14 Mar 2024 10:05:00 -0400\r\n"
	if messageID != "" {
		raw += "Message-ID: " + messageID + "\r\n"
	}
	raw += "Content-Type: text/plain\r\n\r\nbody\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(raw), 0o644))
}

func TestFetchInbox(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, "a.eml", "Order Confirmation 1", "<a@example.com>")
	writeMessage(t, dir, "b.eml", "Newsletter", "<b@example.com>")
	writeMessage(t, dir, "c.eml", "order confirmation 2", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	c := NewConnector(dir)
	msgs, err := c.FetchInbox(context.Background(), "INBOX", "Order Confirmation", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "<a@example.com>", msgs[0].MessageID)
	assert.Equal(t, "folder", msgs[0].Provider)
	assert.Equal(t, "2024-03-14T14:05:00Z", msgs[0].ReceivedAt)
	assert.Equal(t, "c.eml", msgs[1].MessageID)

	all, err := c.FetchInbox(context.Background(), "", "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFetchInboxLabelSubdirectory(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, filepath.Join(dir, "fisher"), "a.eml", "Order", "<a@example.com>")

	msgs, err := NewConnector(dir).FetchInbox(context.Background(), "fisher", "", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	msgs, err = NewConnector(dir).FetchInbox(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
