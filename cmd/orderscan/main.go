package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"orderscan/internal/config"
	"orderscan/internal/connectors"
	"orderscan/internal/listener"
	"orderscan/internal/logging"
	"orderscan/internal/metrics"
	"orderscan/internal/parser"
	"orderscan/internal/pipeline"
	"orderscan/internal/server"
	"orderscan/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "parse":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", cfg.OutputDir, "output directory")
		variant := fs.String("variant", cfg.Variant, "confirmation|shipment (default: detect)")
		xlsx := fs.Bool("xlsx", cfg.ExportXLSX, "also write .xlsx")
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() == 0 {
			must(fmt.Errorf("parse needs at least one FILE"))
		}
		must(runParse(ctx, log, fs.Args(), *out, *variant, *xlsx, cfg.Workers))

	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap|folder")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		query := fs.String("query", cfg.MailListenerQuery, "subject filter")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg)
		defer db.Close()
		cfg.MailListenerProvider = *provider
		conn, err := listener.NewConnector(ctx, cfg)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(ctx, *label, *query, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d new=%d\n", *provider, result.Fetched, result.New)

	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "only documents of this provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg)
		defer db.Close()
		processor, err := pipeline.NewProcessingService(db, cfg, log, nil)
		must(err)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, firstNonEmpty(*provider, listener.ProviderName(cfg)), *messageID)
			must(err)
			fmt.Printf("processed document id=%d status=%s variant=%s lineItems=%d\n", res.DocumentID, res.Status, res.Variant, res.LineItems)
			return
		}
		res, err := processor.ProcessPending(ctx, *batch, *provider)
		fmt.Printf("processed pending parsed=%d skipped=%d failed=%d\n", res.Parsed, res.Skipped, res.Failed)
		must(err)

	case "mail:listen":
		db := openDB(cfg)
		defer db.Close()
		conn, err := listener.NewConnector(ctx, cfg)
		must(err)
		s, err := listener.NewService(db, cfg, conn, log, nil)
		must(err)
		must(s.Run(ctx))

	case "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		documentID := fs.Int("documentId", 0, "internal document id")
		out := fs.String("out", cfg.OutputDir, "output directory")
		xlsx := fs.Bool("xlsx", cfg.ExportXLSX, "also write .xlsx")
		_ = fs.Parse(os.Args[2:])
		if *documentID == 0 {
			must(fmt.Errorf("--documentId is required"))
		}

		db := openDB(cfg)
		defer db.Close()
		rec, err := db.MustOrder(*documentID)
		must(err)
		path, err := pipeline.ExportOrderCSV(rec, *out)
		must(err)
		if *xlsx {
			must(pipeline.ExportOrderXLSX(rec, filepath.Join(*out, pipeline.OrderFileName(rec)+".xlsx")))
		}
		fmt.Printf("exported %d rows to %s\n", len(rec.LineItems), path)

	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", firstNonEmpty(cfg.MetricsAddr, ":8080"), "listen address")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg)
		defer db.Close()
		must(serve(ctx, log, db, *addr))

	case "stats":
		db := openDB(cfg)
		defer db.Close()
		totals, err := db.SumOrderTotals()
		must(err)
		variants := make([]string, 0, len(totals))
		for v := range totals {
			variants = append(variants, v)
		}
		sort.Strings(variants)
		for _, v := range variants {
			fmt.Printf("%s total=%s\n", v, totals[v].StringFixed(2))
		}
		last, err := db.GetMetadata(listener.LastCycleKey)
		must(err)
		if last != nil {
			fmt.Printf("last listener cycle %s\n", *last)
		}

	default:
		usage()
		os.Exit(1)
	}
}

// runParse parses local files and writes one CSV per order. Files that fail
// are reported and the remaining ones are still written.
func runParse(ctx context.Context, log *zap.SugaredLogger, paths []string, out, variant string, xlsx bool, workers int) error {
	p, err := parser.New(parser.Options{Variant: variant, Logger: log})
	if err != nil {
		return err
	}
	results, err := pipeline.ParseFiles(ctx, p, paths, workers)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			log.Warnw("parse failed", "file", r.Path, "kind", parser.KindOf(r.Err), "error", r.Err)
			continue
		}
		path, err := pipeline.ExportOrderCSV(r.Record, out)
		if err != nil {
			return err
		}
		if xlsx {
			if err := pipeline.ExportOrderXLSX(r.Record, filepath.Join(out, pipeline.OrderFileName(r.Record)+".xlsx")); err != nil {
				return err
			}
		}
		fmt.Printf("%s -> %s (%s, %d line items)\n", r.Path, path, r.Record.Variant, len(r.Record.LineItems))
	}
	return pipeline.FileErrors(results)
}

func serve(ctx context.Context, log *zap.SugaredLogger, db *storage.DB, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(server.NewController(db, metrics.NewRegistry(), log)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Infow("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func usage() {
	fmt.Println("usage: orderscan <command>")
	fmt.Println("commands:")
	fmt.Println("  parse [--out=DIR] [--variant=confirmation|shipment] [--xlsx] FILE...")
	fmt.Println("  mail:fetch --provider=gmail|imap|folder --label=INBOX --query=\"Order Confirmation\" --max=50")
	fmt.Println("  mail:process [--provider=...] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  export:csv --documentId=1 [--out=DIR] [--xlsx]")
	fmt.Println("  serve [--addr=:8080]")
	fmt.Println("  stats")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
