package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orderscan/internal/config"
	"orderscan/internal/listener"
	"orderscan/internal/logging"
	"orderscan/internal/metrics"
	"orderscan/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := listener.NewConnector(ctx, cfg)
	must(err)
	svc, err := listener.NewService(db, cfg, conn, log, metrics.NewRegistry())
	must(err)

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
