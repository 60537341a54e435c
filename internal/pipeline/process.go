package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"orderscan/internal"
	"orderscan/internal/config"
	"orderscan/internal/metrics"
	"orderscan/internal/parser"
	"orderscan/internal/storage"
)

type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	log     *zap.SugaredLogger
	parser  *parser.Parser
	metrics *metrics.Registry
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *zap.SugaredLogger, m *metrics.Registry) (*ProcessingService, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if m == nil {
		m = metrics.NewRegistry()
	}
	p, err := parser.New(parser.Options{Variant: cfg.Variant, Logger: log})
	if err != nil {
		return nil, err
	}
	return &ProcessingService{db: db, cfg: cfg, log: log, parser: p, metrics: m}, nil
}

type ProcessResult struct {
	DocumentID int
	Status     internal.DocumentStatus
	Variant    string
	LineItems  int
	Err        error
}

type BatchResult struct {
	Parsed  int
	Skipped int
	Failed  int
	Results []ProcessResult
}

// outcome is what analyzing one document produced, before anything is
// written to storage.
type outcome struct {
	doc     internal.DocumentRow
	status  internal.DocumentStatus
	detect  DetectResult
	record  internal.OrderRecord
	kind    string
	err     error
	timings map[string]float64
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	doc, err := s.db.GetDocumentByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	if doc == nil {
		return ProcessResult{}, fmt.Errorf("document not found: provider=%s messageId=%s", provider, messageID)
	}
	return s.ProcessDocument(ctx, *doc)
}

// ProcessDocument parses one stored document and records the result. A
// parse failure is returned as an error after the document has been marked
// failed.
func (s *ProcessingService) ProcessDocument(ctx context.Context, doc internal.DocumentRow) (ProcessResult, error) {
	if err := ctx.Err(); err != nil {
		return ProcessResult{}, err
	}
	res, err := s.persist(s.analyze(doc))
	if err != nil {
		return res, err
	}
	return res, res.Err
}

// ProcessPending parses fetched documents concurrently and persists the
// results one at a time in list order. Failed documents do not stop the
// batch; their errors are combined into the returned error.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (BatchResult, error) {
	pending, err := s.db.ListDocumentsByStatus(internal.StatusFetched, provider, limit)
	if err != nil {
		return BatchResult{}, err
	}

	outcomes := make([]outcome, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Workers, 1))
	for i, doc := range pending {
		i, doc := i, doc // per-iteration copies for go < 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.analyze(doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	var batch BatchResult
	var errs error
	for _, o := range outcomes {
		res, err := s.persist(o)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("document %d: %w", o.doc.ID, err))
			continue
		}
		batch.Results = append(batch.Results, res)
		switch res.Status {
		case internal.StatusParsed:
			batch.Parsed++
		case internal.StatusSkipped:
			batch.Skipped++
		case internal.StatusFailed:
			batch.Failed++
			errs = multierr.Append(errs, fmt.Errorf("document %d: %w", o.doc.ID, res.Err))
		}
	}
	return batch, errs
}

// analyze reads, decodes, detects and parses doc without touching storage.
func (s *ProcessingService) analyze(doc internal.DocumentRow) outcome {
	o := outcome{doc: doc, timings: map[string]float64{}}
	start := time.Now()
	defer func() { o.timings["totalMs"] = float64(time.Since(start).Milliseconds()) }()

	raw, err := os.ReadFile(doc.RawRef)
	if err != nil {
		o.status, o.kind, o.err = internal.StatusFailed, "io", err
		return o
	}
	decoded, err := DecodeDocument(doc.RawRef, raw)
	if err != nil {
		o.status, o.kind, o.err = internal.StatusFailed, "decode", err
		return o
	}

	o.detect = DetectOrder(firstNonEmpty(decoded.Subject, doc.Subject), decoded.Text, s.cfg.DetectThreshold)
	if !o.detect.IsOrder {
		o.status = internal.StatusSkipped
		return o
	}

	parseStart := time.Now()
	rec, err := s.parser.ParseString(decoded.Text)
	elapsed := time.Since(parseStart)
	o.timings["parseMs"] = float64(elapsed.Microseconds()) / 1000
	s.metrics.ParseSeconds.Observe(elapsed.Seconds())
	if err != nil {
		o.status, o.kind, o.err = internal.StatusFailed, string(parser.KindOf(err)), err
		if o.kind == "" {
			o.kind = "read"
		}
		return o
	}
	o.status, o.record = internal.StatusParsed, rec
	return o
}

func (s *ProcessingService) persist(o outcome) (ProcessResult, error) {
	res := ProcessResult{DocumentID: o.doc.ID, Status: o.status, Err: o.err}
	counts := map[string]int{"lineItems": 0}

	switch o.status {
	case internal.StatusParsed:
		if _, err := s.db.SaveOrder(o.doc.ID, o.record); err != nil {
			return res, err
		}
		res.Variant = o.record.Variant
		res.LineItems = len(o.record.LineItems)
		counts["lineItems"] = res.LineItems
		s.metrics.LineItems.Add(float64(res.LineItems))
		s.log.Infow("order parsed", "documentId", o.doc.ID, "variant", res.Variant, "lineItems", res.LineItems, "lastName", o.record.LastName)

	case internal.StatusSkipped:
		if err := s.db.UpdateDocumentStatus(o.doc.ID, internal.StatusSkipped); err != nil {
			return res, err
		}
		s.log.Debugw("document is not an order", "documentId", o.doc.ID, "score", o.detect.Score, "reason", o.detect.Reason)

	case internal.StatusFailed:
		if err := s.db.MarkDocumentFailed(o.doc.ID, o.kind, o.err.Error()); err != nil {
			return res, err
		}
		s.metrics.ParseErrors.WithLabelValues(o.kind).Inc()
		s.log.Warnw("document failed", "documentId", o.doc.ID, "kind", o.kind, "error", o.err)
	}
	s.metrics.Documents.WithLabelValues(string(o.status)).Inc()

	if err := s.db.InsertRun(uuid.NewString(), o.doc.ID, o.timings, counts); err != nil {
		s.log.Warnw("run not recorded", "documentId", o.doc.ID, "error", err)
	}
	return res, nil
}

type FileResult struct {
	Path   string
	Record internal.OrderRecord
	Err    error
}

// ParseFiles parses local documents concurrently. Results keep the order of
// paths; a failed file does not stop the others.
func ParseFiles(ctx context.Context, p *parser.Parser, paths []string, workers int) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		i, path := i, path // per-iteration copies for go < 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = FileResult{Path: path}
			doc, err := ReadDocument(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Record, results[i].Err = p.ParseString(doc.Text)
			return nil
		})
	}
	return results, g.Wait()
}

// FileErrors combines the errors of failed results.
func FileErrors(results []FileResult) error {
	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Path, r.Err))
		}
	}
	return errs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

