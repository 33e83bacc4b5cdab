package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogulcanaydogan/restock-guardian/internal/app"
	"github.com/ogulcanaydogan/restock-guardian/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("RSG_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("restock guardian started",
		"listen", cfg.Server.Listen,
		"storage", cfg.Storage.Driver,
		"transport", a.Dispatcher.Transport().Name(),
		"recipients", len(a.Dispatcher.Recipients()),
	)

	if err := a.Serve(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}
