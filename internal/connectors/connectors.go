package connectors

import (
	"context"

	"orderscan/internal"
)

// MailConnector fetches raw messages from a mailbox. An empty query matches
// every message in label.
type MailConnector interface {
	FetchInbox(ctx context.Context, label, query string, max int) ([]internal.FetchedMailMessage, error)
}
