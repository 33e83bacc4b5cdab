package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ActivityRecorder writes audit entries.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, entry *model.ActivityEntry) error
}

// Sender delivers a formatted message to the configured recipients.
type Sender interface {
	DispatchConfigured(ctx context.Context, msg string) (*DispatchOutcome, error)
}

// State is the coordinator's position in the alert cycle.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateDispatching State = "dispatching"
)

// Outcome describes what a snapshot evaluation did.
type Outcome string

const (
	OutcomeNone       Outcome = "none"        // nothing newly low
	OutcomeInProgress Outcome = "in_progress" // another dispatch is running
	OutcomeCooldown   Outcome = "cooldown"    // last attempt too recent
	OutcomeDispatched Outcome = "dispatched"
	OutcomeFailed     Outcome = "failed"
)

// CheckResult reports the result of one snapshot evaluation.
type CheckResult struct {
	Outcome  Outcome          `json:"outcome"`
	Items    []model.Product  `json:"items,omitempty"`
	Dispatch *DispatchOutcome `json:"dispatch,omitempty"`
	Err      error            `json:"-"`
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Cooldown    time.Duration
	MaxAttempts int
	Actor       string
	Brand       string
	Clock       Clock
}

const (
	DefaultCooldown    = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultActor       = "system"
)

// Coordinator decides when a product snapshot warrants a low-stock alert.
// It alerts at most once per continuous low-stock period for each product,
// allows one dispatch in flight, and enforces a cooldown between attempts.
type Coordinator struct {
	cfg       CoordinatorConfig
	formatter Formatter
	sender    Sender
	audit     ActivityRecorder
	logger    *slog.Logger
	metrics   *Metrics

	mu         sync.Mutex
	state      State
	inProgress bool
	lastAlert  time.Time
	alerted    map[string]struct{}
	low        map[string]struct{}
	attempts   map[string]int
}

// NewCoordinator creates a coordinator. audit and metrics may be nil.
func NewCoordinator(cfg CoordinatorConfig, sender Sender, audit ActivityRecorder, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Actor == "" {
		cfg.Actor = DefaultActor
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cfg:       cfg,
		formatter: Formatter{Brand: cfg.Brand},
		sender:    sender,
		audit:     audit,
		logger:    logger,
		metrics:   metrics,
		state:     StateIdle,
		alerted:   make(map[string]struct{}),
		low:       make(map[string]struct{}),
		attempts:  make(map[string]int),
	}
}

// OnSnapshot evaluates the full current product list. It is safe to call
// concurrently and in bursts; at most one call dispatches at a time. Once a
// dispatch starts it runs to completion even if ctx is cancelled.
func (c *Coordinator) OnSnapshot(ctx context.Context, products []model.Product) CheckResult {
	c.mu.Lock()
	lowStock := model.LowStock(products)
	c.prune(lowStock)

	if c.inProgress {
		c.mu.Unlock()
		c.metrics.IncSnapshot(string(OutcomeInProgress))
		return CheckResult{Outcome: OutcomeInProgress}
	}
	c.state = StateChecking

	var newly []model.Product
	for _, p := range lowStock {
		if _, ok := c.alerted[p.ID]; !ok {
			newly = append(newly, p)
		}
	}

	now := c.cfg.Clock.Now()
	switch {
	case len(newly) == 0:
		c.state = StateIdle
		c.mu.Unlock()
		c.metrics.IncSnapshot(string(OutcomeNone))
		return CheckResult{Outcome: OutcomeNone}
	case !c.lastAlert.IsZero() && now.Sub(c.lastAlert) < c.cfg.Cooldown:
		c.state = StateIdle
		c.mu.Unlock()
		c.metrics.IncSnapshot(string(OutcomeCooldown))
		return CheckResult{Outcome: OutcomeCooldown, Items: newly}
	}

	c.inProgress = true
	c.lastAlert = now
	c.state = StateDispatching
	c.mu.Unlock()

	result := c.dispatch(context.WithoutCancel(ctx), newly)
	c.metrics.IncSnapshot(string(result.Outcome))
	return result
}

func (c *Coordinator) dispatch(ctx context.Context, items []model.Product) (result CheckResult) {
	result = CheckResult{Outcome: OutcomeFailed, Items: items}
	defer func() {
		c.mu.Lock()
		c.inProgress = false
		c.state = StateIdle
		c.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("alert dispatch panicked", "panic", r)
			result.Err = fmt.Errorf("alert dispatch panicked: %v", r)
			c.recordFailure(items)
		}
	}()

	names := productNames(items)
	c.logger.Info("dispatching low stock alert", "items", len(items), "names", names)

	outcome, err := c.sender.DispatchConfigured(ctx, c.formatter.Format(items))
	result.Dispatch = outcome
	if err == nil && outcome.Sent() == 0 {
		err = ErrNothingDelivered
	}
	if err != nil {
		result.Err = err
		c.logger.Error("low stock alert failed",
			"items", len(items),
			"names", names,
			"sent", outcome.Sent(),
			"skipped", outcome.Skipped(),
			"error", err,
		)
		if !isConfigError(err) {
			c.recordFailure(items)
		}
		return result
	}

	c.mu.Lock()
	for _, p := range items {
		// Skip items restocked by a snapshot that arrived mid-dispatch.
		if _, ok := c.low[p.ID]; ok {
			c.alerted[p.ID] = struct{}{}
		}
		delete(c.attempts, p.ID)
	}
	c.metrics.SetAlerted(len(c.alerted))
	c.mu.Unlock()

	result.Outcome = OutcomeDispatched
	c.logger.Info("low stock alert sent",
		"items", len(items),
		"sent", outcome.Sent(),
		"skipped", outcome.Skipped(),
	)
	c.record(ctx, &model.ActivityEntry{
		Actor:   c.cfg.Actor,
		Action:  model.ActionAutoAlert,
		Details: fmt.Sprintf("Automatic SMS alert sent for %d low stock items: %s", len(items), strings.Join(names, ", ")),
	})
	return result
}

// recordFailure counts a failed attempt for each item; items that reach the
// attempt limit are marked alerted so they stop retrying.
func (c *Coordinator) recordFailure(items []model.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range items {
		c.attempts[p.ID]++
		if c.attempts[p.ID] < c.cfg.MaxAttempts {
			continue
		}
		if _, ok := c.low[p.ID]; !ok {
			continue
		}
		c.alerted[p.ID] = struct{}{}
		c.logger.Warn("giving up on low stock alert",
			"product_id", p.ID,
			"product", p.Name,
			"attempts", c.attempts[p.ID],
		)
	}
	c.metrics.SetAlerted(len(c.alerted))
}

// isConfigError reports whether err means no delivery was attempted at all.
// Such failures do not count toward MaxAttempts.
func isConfigError(err error) bool {
	return errors.Is(err, ErrNoRecipients) || errors.Is(err, ErrTransportNotConfigured)
}

// prune drops alerted ids and attempt counters for products no longer low.
// Callers must hold c.mu.
func (c *Coordinator) prune(lowStock []model.Product) {
	clear(c.low)
	for _, p := range lowStock {
		c.low[p.ID] = struct{}{}
	}
	for id := range c.alerted {
		if _, ok := c.low[id]; !ok {
			delete(c.alerted, id)
		}
	}
	for id := range c.attempts {
		if _, ok := c.low[id]; !ok {
			delete(c.attempts, id)
		}
	}
	c.metrics.SetAlerted(len(c.alerted))
}

// SendNow sends an alert for every low-stock product immediately, ignoring
// the cooldown and the alerted set. It does not change the alerted set.
func (c *Coordinator) SendNow(ctx context.Context, actor string, products []model.Product) (*DispatchOutcome, error) {
	lowStock := model.LowStock(products)
	if len(lowStock) == 0 {
		return nil, ErrNothingLow
	}
	if actor == "" {
		actor = c.cfg.Actor
	}

	outcome, err := c.sender.DispatchConfigured(ctx, c.formatter.Format(lowStock))
	if err != nil {
		c.metrics.IncSnapshot("manual_failed")
		return outcome, fmt.Errorf("send low stock alert: %w", err)
	}
	c.metrics.IncSnapshot("manual")

	c.record(ctx, &model.ActivityEntry{
		Actor:  actor,
		Action: model.ActionManualAlert,
		Details: fmt.Sprintf("Manual SMS alert for %d low stock items: %s (%s)",
			len(lowStock), strings.Join(productNames(lowStock), ", "), outcome.Summary()),
	})
	return outcome, nil
}

// Forget removes a product from the alerted set, e.g. after it is deleted.
func (c *Coordinator) Forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.alerted, id)
	delete(c.low, id)
	delete(c.attempts, id)
	c.metrics.SetAlerted(len(c.alerted))
}

// Alerted returns the alerted product ids, sorted.
func (c *Coordinator) Alerted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.alerted))
	for id := range c.alerted {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// State returns the current coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cooldown returns the configured cooldown window.
func (c *Coordinator) Cooldown() time.Duration {
	return c.cfg.Cooldown
}

func (c *Coordinator) record(ctx context.Context, entry *model.ActivityEntry) {
	if c.audit == nil {
		return
	}
	if err := c.audit.RecordActivity(ctx, entry); err != nil {
		c.logger.Warn("failed to record alert activity", "action", entry.Action, "error", err)
	}
}

func productNames(items []model.Product) []string {
	names := make([]string, len(items))
	for i, p := range items {
		names[i] = p.Name
	}
	return names
}
