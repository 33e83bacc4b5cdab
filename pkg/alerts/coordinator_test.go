package alerts_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSender records messages. Each call returns the configured outcome.
type fakeSender struct {
	mu       sync.Mutex
	messages []string
	sent     int
	skipped  int
	err      error

	// block, when set, holds the call until released.
	block   chan struct{}
	entered chan struct{}
}

func (s *fakeSender) DispatchConfigured(_ context.Context, msg string) (*alerts.DispatchOutcome, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if s.err != nil {
		return &alerts.DispatchOutcome{Success: false}, s.err
	}
	out := &alerts.DispatchOutcome{Success: true}
	for range s.sent {
		out.Results = append(out.Results, alerts.DispatchResult{Status: alerts.StatusSent, DeliveryID: "SM1"})
	}
	for range s.skipped {
		out.Results = append(out.Results, alerts.DispatchResult{Status: alerts.StatusSkipped})
	}
	return out, nil
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.ActivityEntry
	err     error
}

func (a *fakeAudit) RecordActivity(_ context.Context, e *model.ActivityEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *e)
	return nil
}

func newTestCoordinator(sender alerts.Sender, audit alerts.ActivityRecorder, clock alerts.Clock) *alerts.Coordinator {
	return alerts.NewCoordinator(alerts.CoordinatorConfig{
		Cooldown: 30 * time.Second,
		Clock:    clock,
	}, sender, audit, discardLogger(), nil)
}

func product(id, name string, qty, threshold int) model.Product {
	return model.Product{ID: id, Name: name, Quantity: qty, RestockThreshold: threshold, Supplier: "Kingeleke"}
}

func TestCoordinator_DispatchesNewlyLowItems(t *testing.T) {
	sender := &fakeSender{sent: 1}
	audit := &fakeAudit{}
	c := newTestCoordinator(sender, audit, newFakeClock())

	res := c.OnSnapshot(context.Background(), []model.Product{
		product("a", "Tapioca Pearls", 10, 5),
		product("b", "Matcha Powder", 1, 2),
		product("c", "Oolong Tea", 3, 3),
	})

	require.NoError(t, res.Err)
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "b", res.Items[0].ID)
	assert.Equal(t, "c", res.Items[1].ID)

	require.Equal(t, 1, sender.calls())
	assert.Contains(t, sender.messages[0], "Matcha Powder")
	assert.Contains(t, sender.messages[0], "Oolong Tea")
	assert.NotContains(t, sender.messages[0], "Tapioca Pearls")

	assert.Equal(t, []string{"b", "c"}, c.Alerted())
	assert.Equal(t, alerts.StateIdle, c.State())

	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionAutoAlert, audit.entries[0].Action)
	assert.Equal(t, "system", audit.entries[0].Actor)
	assert.Equal(t, "Automatic SMS alert sent for 2 low stock items: Matcha Powder, Oolong Tea", audit.entries[0].Details)
}

func TestCoordinator_CooldownSuppressesDispatch(t *testing.T) {
	sender := &fakeSender{sent: 1}
	clock := newFakeClock()
	c := newTestCoordinator(sender, nil, clock)

	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	require.Equal(t, 1, sender.calls())

	clock.Advance(10 * time.Second)
	res := c.OnSnapshot(context.Background(), []model.Product{
		product("a", "A", 1, 2),
		product("b", "B", 0, 2),
	})
	assert.Equal(t, alerts.OutcomeCooldown, res.Outcome)
	assert.Equal(t, 1, sender.calls())

	clock.Advance(25 * time.Second)
	res = c.OnSnapshot(context.Background(), []model.Product{
		product("a", "A", 1, 2),
		product("b", "B", 0, 2),
	})
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "b", res.Items[0].ID)
	assert.Equal(t, 2, sender.calls())
}

func TestCoordinator_Idempotent(t *testing.T) {
	sender := &fakeSender{sent: 1}
	clock := newFakeClock()
	c := newTestCoordinator(sender, nil, clock)
	snapshot := []model.Product{product("a", "A", 1, 2), product("b", "B", 9, 2)}

	c.OnSnapshot(context.Background(), snapshot)
	for range 5 {
		clock.Advance(time.Minute)
		res := c.OnSnapshot(context.Background(), snapshot)
		assert.Equal(t, alerts.OutcomeNone, res.Outcome)
	}
	assert.Equal(t, 1, sender.calls())
}

func TestCoordinator_PrunesRestockedItems(t *testing.T) {
	sender := &fakeSender{sent: 1}
	clock := newFakeClock()
	c := newTestCoordinator(sender, nil, clock)

	// Snapshot A: X is low and not yet alerted.
	res := c.OnSnapshot(context.Background(), []model.Product{product("x", "X", 1, 1)})
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	assert.Equal(t, []string{"x"}, c.Alerted())

	// Snapshot B: within cooldown, X still low.
	clock.Advance(5 * time.Second)
	res = c.OnSnapshot(context.Background(), []model.Product{product("x", "X", 1, 1)})
	assert.Equal(t, alerts.OutcomeNone, res.Outcome)
	assert.Equal(t, 1, sender.calls())

	// Snapshot C: after cooldown, X restocked.
	clock.Advance(time.Minute)
	res = c.OnSnapshot(context.Background(), []model.Product{product("x", "X", 5, 1)})
	assert.Equal(t, alerts.OutcomeNone, res.Outcome)
	assert.Empty(t, c.Alerted())
	assert.Equal(t, 1, sender.calls())

	// X drops again: a new low-stock period alerts again.
	clock.Advance(time.Minute)
	res = c.OnSnapshot(context.Background(), []model.Product{product("x", "X", 0, 1)})
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	assert.Equal(t, 2, sender.calls())
}

func TestCoordinator_PruneRunsDuringCooldown(t *testing.T) {
	sender := &fakeSender{sent: 1}
	clock := newFakeClock()
	c := newTestCoordinator(sender, nil, clock)

	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2), product("b", "B", 1, 2)})
	assert.Equal(t, []string{"a", "b"}, c.Alerted())

	clock.Advance(time.Second)
	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 10, 2), product("b", "B", 1, 2)})
	assert.Equal(t, []string{"b"}, c.Alerted())
}

func TestCoordinator_FailedDispatchNotAlerted(t *testing.T) {
	sender := &fakeSender{err: alerts.ErrNoRecipients}
	audit := &fakeAudit{}
	clock := newFakeClock()
	c := newTestCoordinator(sender, audit, clock)

	res := c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	assert.Equal(t, alerts.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, alerts.ErrNoRecipients)
	assert.Empty(t, c.Alerted())
	assert.Empty(t, audit.entries)
	assert.Equal(t, alerts.StateIdle, c.State())

	// The failed attempt still starts the cooldown.
	clock.Advance(time.Second)
	res = c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	assert.Equal(t, alerts.OutcomeCooldown, res.Outcome)

	// After cooldown the next snapshot retries.
	sender.err = nil
	sender.sent = 1
	clock.Advance(time.Minute)
	res = c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	assert.Equal(t, []string{"a"}, c.Alerted())
}

func TestCoordinator_NothingDeliveredIsFailure(t *testing.T) {
	sender := &fakeSender{skipped: 2}
	c := newTestCoordinator(sender, nil, newFakeClock())

	res := c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	assert.Equal(t, alerts.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, alerts.ErrNothingDelivered)
	assert.Empty(t, c.Alerted())
}

func TestCoordinator_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{err: errors.New("provider down")}
	clock := newFakeClock()
	c := alerts.NewCoordinator(alerts.CoordinatorConfig{
		Cooldown:    30 * time.Second,
		MaxAttempts: 2,
		Clock:       clock,
	}, sender, nil, discardLogger(), nil)
	snapshot := []model.Product{product("a", "A", 1, 2)}

	c.OnSnapshot(context.Background(), snapshot)
	assert.Empty(t, c.Alerted())

	clock.Advance(time.Minute)
	c.OnSnapshot(context.Background(), snapshot)
	assert.Equal(t, []string{"a"}, c.Alerted())

	clock.Advance(time.Minute)
	res := c.OnSnapshot(context.Background(), snapshot)
	assert.Equal(t, alerts.OutcomeNone, res.Outcome)
	assert.Equal(t, 2, sender.calls())
}

func TestCoordinator_ConfigErrorsDoNotCountAsAttempts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no recipients", alerts.ErrNoRecipients},
		{"transport not configured", fmt.Errorf("twilio: missing auth token: %w", alerts.ErrTransportNotConfigured)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.err}
			clock := newFakeClock()
			c := alerts.NewCoordinator(alerts.CoordinatorConfig{
				Cooldown:    30 * time.Second,
				MaxAttempts: 2,
				Clock:       clock,
			}, sender, nil, discardLogger(), nil)
			snapshot := []model.Product{product("a", "A", 1, 2)}

			for range 4 {
				res := c.OnSnapshot(context.Background(), snapshot)
				assert.Equal(t, alerts.OutcomeFailed, res.Outcome)
				assert.Empty(t, c.Alerted())
				clock.Advance(time.Minute)
			}

			// Once configured, the item still gets its alert.
			sender.err = nil
			sender.sent = 1
			res := c.OnSnapshot(context.Background(), snapshot)
			assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
			assert.Equal(t, []string{"a"}, c.Alerted())
			assert.Equal(t, 5, sender.calls())
		})
	}
}

func TestCoordinator_InProgressRejectsConcurrentSnapshot(t *testing.T) {
	sender := &fakeSender{
		sent:    1,
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	clock := newFakeClock()
	c := newTestCoordinator(sender, nil, clock)

	done := make(chan alerts.CheckResult)
	go func() {
		done <- c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	}()
	<-sender.entered
	assert.Equal(t, alerts.StateDispatching, c.State())

	clock.Advance(time.Hour)
	res := c.OnSnapshot(context.Background(), []model.Product{
		product("a", "A", 1, 2),
		product("b", "B", 1, 2),
	})
	assert.Equal(t, alerts.OutcomeInProgress, res.Outcome)

	close(sender.block)
	first := <-done
	assert.Equal(t, alerts.OutcomeDispatched, first.Outcome)
	assert.Equal(t, 1, sender.calls())
	assert.Equal(t, alerts.StateIdle, c.State())
}

func TestCoordinator_RestockDuringDispatchNotAlerted(t *testing.T) {
	sender := &fakeSender{
		sent:    1,
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c := newTestCoordinator(sender, nil, newFakeClock())

	done := make(chan alerts.CheckResult)
	go func() {
		done <- c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	}()
	<-sender.entered

	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 20, 2)})
	close(sender.block)
	<-done

	assert.Empty(t, c.Alerted())
}

func TestCoordinator_AuditFailureIgnored(t *testing.T) {
	sender := &fakeSender{sent: 1}
	audit := &fakeAudit{err: errors.New("db locked")}
	c := newTestCoordinator(sender, audit, newFakeClock())

	res := c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	assert.Equal(t, alerts.OutcomeDispatched, res.Outcome)
	assert.Equal(t, []string{"a"}, c.Alerted())
}

func TestCoordinator_Forget(t *testing.T) {
	sender := &fakeSender{sent: 1}
	c := newTestCoordinator(sender, nil, newFakeClock())

	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	require.Equal(t, []string{"a"}, c.Alerted())

	c.Forget("a")
	assert.Empty(t, c.Alerted())
}

func TestCoordinator_SendNow(t *testing.T) {
	sender := &fakeSender{sent: 2, skipped: 1}
	audit := &fakeAudit{}
	clock := newFakeClock()
	c := newTestCoordinator(sender, audit, clock)

	// Start a cooldown; the manual path ignores it.
	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})

	out, err := c.SendNow(context.Background(), "maria", []model.Product{
		product("a", "A", 1, 2),
		product("b", "B", 7, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Sent())
	assert.Equal(t, 2, sender.calls())

	require.Len(t, audit.entries, 2)
	manual := audit.entries[1]
	assert.Equal(t, model.ActionManualAlert, manual.Action)
	assert.Equal(t, "maria", manual.Actor)
	assert.Contains(t, manual.Details, "2 sent, 1 skipped")
}

func TestCoordinator_SendNowNothingLow(t *testing.T) {
	sender := &fakeSender{sent: 1}
	c := newTestCoordinator(sender, nil, newFakeClock())

	_, err := c.SendNow(context.Background(), "", []model.Product{product("a", "A", 9, 2)})
	assert.ErrorIs(t, err, alerts.ErrNothingLow)
	assert.Equal(t, 0, sender.calls())
}

func TestCoordinator_Metrics(t *testing.T) {
	sender := &fakeSender{sent: 1}
	clock := newFakeClock()
	metrics := alerts.NewMetrics(prometheus.NewRegistry())
	c := alerts.NewCoordinator(alerts.CoordinatorConfig{Clock: clock}, sender, nil, discardLogger(), metrics)

	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2)})
	c.OnSnapshot(context.Background(), []model.Product{product("a", "A", 1, 2), product("b", "B", 1, 2)})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotChecks.WithLabelValues("dispatched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SnapshotChecks.WithLabelValues("cooldown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AlertedItems))
	assert.Equal(t, alerts.DefaultCooldown, c.Cooldown())
}
