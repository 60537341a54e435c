package listener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"orderscan/internal"
	"orderscan/internal/config"
	"orderscan/internal/connectors"
	"orderscan/internal/connectors/folder"
	gmailconnector "orderscan/internal/connectors/gmail"
	imapconnector "orderscan/internal/connectors/imap"
	"orderscan/internal/metrics"
	"orderscan/internal/pipeline"
	"orderscan/internal/server"
	"orderscan/internal/storage"
)

// LastCycleKey is the metadata key holding the time of the last cycle.
const LastCycleKey = "listener.lastCycleAt"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	log       *zap.SugaredLogger
	metrics   *metrics.Registry
	provider  string
	fetcher   *connectors.FetchService
	processor *pipeline.ProcessingService

	// mu keeps the immediate first cycle and scheduled cycles apart.
	mu sync.Mutex
}

type CycleResult struct {
	Fetched  int
	New      int
	Parsed   int
	Skipped  int
	Failed   int
	Exported int
}

func NewService(db *storage.DB, cfg config.Config, connector connectors.MailConnector, log *zap.SugaredLogger, m *metrics.Registry) (*Service, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	processor, err := pipeline.NewProcessingService(db, cfg, log, m)
	if err != nil {
		return nil, err
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		log:       log,
		metrics:   m,
		provider:  ProviderName(cfg),
		fetcher:   connectors.NewFetchService(db, cfg.RawMailDir, connector, log),
		processor: processor,
	}, nil
}

func ProviderName(cfg config.Config) string {
	return strings.ToLower(strings.TrimSpace(cfg.MailListenerProvider))
}

// NewConnector builds the mail connector named by MAIL_LISTENER_PROVIDER.
func NewConnector(ctx context.Context, cfg config.Config) (connectors.MailConnector, error) {
	switch provider := ProviderName(cfg); provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	case "folder":
		return folder.NewConnector(cfg.MailFolderDir), nil
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

// Run executes one cycle immediately and then on every interval until ctx
// is cancelled. With METRICS_ADDR set it also serves the HTTP API.
func (s *Service) Run(ctx context.Context) error {
	interval := max(s.cfg.MailListenerIntervalSec, 1)
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})), cron.WithLogger(cronLogger{s.log}))
	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", interval), func() { s.runCycleLogged(ctx) }); err != nil {
		return err
	}

	var srv *http.Server
	serveErr := make(chan error, 1)
	if s.cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           server.NewRouter(server.NewController(s.db, s.metrics, s.log)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
		s.log.Infow("http server listening", "addr", s.cfg.MetricsAddr)
	}

	s.runCycleLogged(ctx)
	c.Start()
	s.log.Infow("mail listener started", "provider", s.provider, "intervalSec", interval)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	<-c.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runErr = multierr.Append(runErr, srv.Shutdown(shutdownCtx))
	}
	s.log.Infow("mail listener stopped")
	return runErr
}

func (s *Service) runCycleLogged(ctx context.Context) {
	res, err := s.RunCycle(ctx)
	if err != nil {
		s.log.Errorw("listener cycle error", "error", err)
	}
	if err := s.db.SetMetadata(LastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warnw("record cycle time", "error", err)
	}
	s.log.Infow("listener cycle done",
		"provider", s.provider,
		"fetched", res.Fetched,
		"new", res.New,
		"parsed", res.Parsed,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"exported", res.Exported,
	)
}

// RunCycle fetches new mail, parses pending documents and, when enabled,
// exports parsed orders. Document failures are reported in the returned
// error without stopping the cycle.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res CycleResult
	fetched, err := s.fetcher.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerQuery, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, fmt.Errorf("fetch: %w", err)
	}
	res.Fetched, res.New = fetched.Fetched, fetched.New
	s.metrics.Fetched.Add(float64(fetched.New))

	batch, errs := s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, s.provider)
	res.Parsed, res.Skipped, res.Failed = batch.Parsed, batch.Skipped, batch.Failed

	if s.cfg.MailListenerAutoExport {
		exported, err := s.ExportParsed(s.provider)
		res.Exported = exported
		errs = multierr.Append(errs, err)
	}
	return res, errs
}

// ExportParsed writes every parsed order of provider to the output
// directory and marks its document exported.
func (s *Service) ExportParsed(provider string) (int, error) {
	docs, err := s.db.ListDocumentsByStatus(internal.StatusParsed, provider, 200)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, doc := range docs {
		rec, err := s.db.MustOrder(doc.ID)
		if err != nil {
			return exported, err
		}
		path, err := pipeline.ExportOrderCSV(rec, s.cfg.OutputDir)
		if err != nil {
			return exported, err
		}
		if s.cfg.ExportXLSX {
			xlsxPath := filepath.Join(s.cfg.OutputDir, pipeline.OrderFileName(rec)+".xlsx")
			if err := pipeline.ExportOrderXLSX(rec, xlsxPath); err != nil {
				return exported, err
			}
		}
		if err := s.db.UpdateDocumentStatus(doc.ID, internal.StatusExported); err != nil {
			return exported, err
		}
		exported++
		s.metrics.Exported.Inc()
		s.log.Infow("order exported", "documentId", doc.ID, "path", path)
	}
	return exported, nil
}

// cronLogger adapts the sugared logger to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
