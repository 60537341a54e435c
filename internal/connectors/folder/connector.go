// Package folder reads .eml files dropped into a local directory, for
// mailboxes exported by hand or synced by another tool.
package folder

import (
	"bytes"
	"context"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"orderscan/internal"
)

type Connector struct {
	dir string
}

func NewConnector(dir string) *Connector {
	return &Connector{dir: dir}
}

// FetchInbox reads up to max messages. label names a subdirectory; empty
// and INBOX mean the directory itself. query filters on the subject,
// ignoring case.
func (c *Connector) FetchInbox(ctx context.Context, label, query string, max int) ([]internal.FetchedMailMessage, error) {
	dir := c.dir
	if label != "" && !strings.EqualFold(label, "INBOX") {
		dir = filepath.Join(dir, label)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	query = strings.ToLower(strings.TrimSpace(query))
	var out []internal.FetchedMailMessage
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if max > 0 && len(out) >= max {
			break
		}
		msg, err := readMessage(path)
		if err != nil {
			return nil, err
		}
		if query != "" && !strings.Contains(strings.ToLower(msg.Subject), query) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func readMessage(path string) (internal.FetchedMailMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return internal.FetchedMailMessage{}, err
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.FetchedMailMessage{}, err
	}

	messageID := strings.TrimSpace(env.GetHeader("Message-ID"))
	if messageID == "" {
		messageID = filepath.Base(path)
	}

	received := time.Now().UTC()
	if date, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		received = date.UTC()
	} else if info, err := os.Stat(path); err == nil {
		received = info.ModTime().UTC()
	}

	return internal.FetchedMailMessage{
		Provider:   "folder",
		MessageID:  messageID,
		Subject:    env.GetHeader("Subject"),
		From:       env.GetHeader("From"),
		ReceivedAt: received.Format(time.RFC3339),
		Raw:        raw,
	}, nil
}
