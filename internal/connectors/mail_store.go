package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"orderscan/internal"
	"orderscan/internal/storage"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

type StoredMessage struct {
	Row     internal.DocumentRow
	Created bool
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store writes the raw message once under its content hash and registers
// it as a fetched document. Created is false for a message seen before.
func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (StoredMessage, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return StoredMessage{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return StoredMessage{}, err
		}
	}

	existing, err := s.db.GetDocumentByProviderMessageID(msg.Provider, msg.MessageID)
	if err != nil {
		return StoredMessage{}, err
	}
	row, err := s.db.UpsertDocument(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, internal.StatusFetched)
	if err != nil {
		return StoredMessage{}, err
	}
	return StoredMessage{Row: row, Created: existing == nil}, nil
}
