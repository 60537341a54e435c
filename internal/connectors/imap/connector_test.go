package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderscan/internal/config"
)

func TestNewConnectorRequiresCredentials(t *testing.T) {
	_, err := NewConnector(config.Config{IMAPHost: "imap.example.com", IMAPUser: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAP_PASSWORD")
}

func TestSearchCriteria(t *testing.T) {
	c := searchCriteria(" Order Confirmation ")
	assert.Equal(t, []string{imap.SeenFlag}, c.WithoutFlags)
	assert.Equal(t, "Order Confirmation", c.Header.Get("Subject"))

	assert.Empty(t, searchCriteria("").Header.Get("Subject"))
}

func TestToFetched(t *testing.T) {
	msg := &imap.Message{
		Uid:          42,
		InternalDate: time.Date(2024, 3, 14, 15, 0, 0, 0, time.FixedZone("EDT", -4*3600)),
		Envelope: &imap.Envelope{
			Subject: "Order Confirmation",
			From:    []*imap.Address{{PersonalName: "Orders", MailboxName: "orders", HostName: "example.com"}, {MailboxName: "noreply", HostName: "example.com"}},
		},
	}
	got := toFetched(msg, []byte("raw"))
	assert.Equal(t, "imap", got.Provider)
	assert.Equal(t, "imap-42", got.MessageID)
	assert.Equal(t, "Order Confirmation", got.Subject)
	assert.Equal(t, "Orders <orders@example.com>, noreply@example.com", got.From)
	assert.Equal(t, "2024-03-14T19:00:00Z", got.ReceivedAt)
}
