// Package app wires configuration, storage, alerting and the HTTP API into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/restock-guardian/internal/config"
	"github.com/ogulcanaydogan/restock-guardian/internal/server"
	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/inventory"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
	"github.com/ogulcanaydogan/restock-guardian/pkg/storage"
)

// App holds the wired components.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       storage.Storage
	Registry    *prometheus.Registry
	Metrics     *alerts.Metrics
	Dispatcher  *alerts.Dispatcher
	Coordinator *alerts.Coordinator
	Inventory   *inventory.Service
}

// NewLogger creates a structured logger from config.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// OpenStorage opens the configured storage backend.
func OpenStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var (
		store *storage.SQLStore
		err   error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		store, err = storage.NewPostgres(ctx, storage.PostgresConfig{
			URL:             cfg.Storage.URL,
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
		})
	case "sqlite", "":
		store, err = storage.NewSQLite(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewTransport builds the configured alert transport behind a circuit breaker.
func NewTransport(cfg *config.Config, logger *slog.Logger) (alerts.Transport, error) {
	var t alerts.Transport
	switch cfg.Alerts.Transport {
	case "twilio", "":
		t = alerts.NewTwilioTransport(alerts.TwilioConfig{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			From:       cfg.SMS.From,
			BaseURL:    cfg.SMS.BaseURL,
			Timeout:    cfg.SMS.Timeout,
		})
	case "webhook":
		t = alerts.NewWebhookTransport(cfg.Webhook.URL, cfg.Webhook.Secret)
	case "slack":
		t = alerts.NewSlackTransport(cfg.Slack.WebhookURL)
	default:
		return nil, fmt.Errorf("unsupported alert transport %q", cfg.Alerts.Transport)
	}

	if err := t.Validate(); err != nil {
		// Not fatal: inventory still works, sends report the configuration error.
		logger.Warn("alert transport not configured", "transport", t.Name(), "error", err)
	}

	return alerts.NewBreakerTransport(t, alerts.BreakerConfig{
		FailureThreshold: cfg.SMS.Breaker.Failures,
		Window:           cfg.SMS.Breaker.Window,
		Delay:            cfg.SMS.Breaker.Delay,
	}, logger), nil
}

// Option adjusts how New wires the application.
type Option func(*options)

type options struct {
	passive bool
}

// Passive stops inventory mutations from triggering automatic alerts. One-shot
// commands use it because their alerted set would start empty on every run.
func Passive() Option {
	return func(o *options) { o.passive = true }
}

// passiveAlerter forwards manual sends and forgets but never auto-alerts.
type passiveAlerter struct {
	*alerts.Coordinator
}

func (passiveAlerter) OnSnapshot(context.Context, []model.Product) alerts.CheckResult {
	return alerts.CheckResult{Outcome: alerts.OutcomeNone}
}

// New opens storage and wires every component.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	transport, err := NewTransport(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := alerts.NewMetrics(reg)

	if len(cfg.Alerts.Recipients) == 0 {
		logger.Warn("no alert recipients configured")
	}
	dispatcher := alerts.NewDispatcher(transport, cfg.Alerts.Recipients, logger, metrics)
	coordinator := alerts.NewCoordinator(alerts.CoordinatorConfig{
		Cooldown:    cfg.Alerts.Cooldown,
		MaxAttempts: cfg.Alerts.MaxAttempts,
		Brand:       cfg.Alerts.Brand,
	}, dispatcher, store, logger, metrics)

	var alerter inventory.Alerter = coordinator
	if o.passive {
		alerter = passiveAlerter{coordinator}
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Registry:    reg,
		Metrics:     metrics,
		Dispatcher:  dispatcher,
		Coordinator: coordinator,
		Inventory:   inventory.NewService(store, alerter, logger),
	}, nil
}

// Close releases storage.
func (a *App) Close() error {
	return a.Store.Close()
}

// Serve runs the HTTP API and the snapshot watcher until ctx is cancelled,
// then shuts the server down gracefully.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	apiServer := server.NewServer(a.Inventory, a.Registry, cfg.Defaults.Actor, a.Logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("api server started", "listen", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return inventory.NewWatcher(a.Inventory, cfg.Alerts.WatchInterval, a.Logger).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		a.Logger.Info("api server stopped")
		return nil
	})

	return g.Wait()
}
