package connectors

import (
	"context"

	"go.uber.org/zap"

	"orderscan/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	log       *zap.SugaredLogger
}

type FetchResult struct {
	Fetched int
	Stored  int
	New     int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log *zap.SugaredLogger) *FetchService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log,
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label, query string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, query, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		stored, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		res.Stored++
		if stored.Created {
			res.New++
			s.log.Debugw("message stored", "provider", msg.Provider, "messageId", msg.MessageID, "documentId", stored.Row.ID)
		}
	}

	s.log.Infow("mailbox fetched", "label", label, "fetched", res.Fetched, "new", res.New)
	return res, nil
}
