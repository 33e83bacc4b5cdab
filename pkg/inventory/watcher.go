package inventory

import (
	"context"
	"log/slog"
	"time"
)

// DefaultWatchInterval is how often the watcher re-reads the product list.
const DefaultWatchInterval = time.Minute

// Watcher is the single worker that evaluates snapshots. It runs one after
// every change signalled by the service, and periodically so changes written
// to the store by other processes still produce alerts.
type Watcher struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher.
func NewWatcher(service *Service, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{service: service, interval: interval, logger: logger}
}

// Run evaluates a snapshot immediately, then on every change signal and
// every tick until ctx is done. It always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("snapshot watcher started", "interval", w.interval)
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot watcher stopped")
			return nil
		case <-w.service.Changed():
			w.check(ctx)
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	res := w.service.Snapshot(ctx)
	w.logger.Debug("snapshot evaluated", "outcome", res.Outcome, "items", len(res.Items))
}
