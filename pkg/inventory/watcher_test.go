package inventory_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/restock-guardian/pkg/inventory"
	"github.com/ogulcanaydogan/restock-guardian/pkg/model"
	"github.com/ogulcanaydogan/restock-guardian/pkg/storage"
)

// blockingSender holds every dispatch until release is closed.
type blockingSender struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSender) DispatchConfigured(_ context.Context, _ string) (*alerts.DispatchOutcome, error) {
	s.entered <- struct{}{}
	<-s.release
	return &alerts.DispatchOutcome{
		Success: true,
		Results: []alerts.DispatchResult{{To: "+1", Status: alerts.StatusSent, DeliveryID: "SM1"}},
	}, nil
}

func startWatcher(t *testing.T, svc *inventory.Service, interval time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- inventory.NewWatcher(svc, interval, nil).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestWatcher_PicksUpExternalChanges(t *testing.T) {
	f := newFixture(t)

	// Written straight to the store, bypassing the service.
	require.NoError(t, f.store.CreateProduct(context.Background(), &model.Product{
		Name:             "Lychee Jelly",
		Supplier:         "Kingeleke",
		Quantity:         1,
		RestockThreshold: 3,
		Price:            decimal.NewFromInt(7),
	}))
	assert.Equal(t, 0, f.sender.calls())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- inventory.NewWatcher(f.svc, 10*time.Millisecond, nil).Run(ctx)
	}()

	assert.Eventually(t, func() bool { return f.sender.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// Further ticks would not re-alert the same period.
	assert.Equal(t, 1, f.sender.calls())
}

func TestWatcher_EvaluatesAfterServiceChange(t *testing.T) {
	f := newFixture(t)
	startWatcher(t, f.svc, time.Hour)

	// The initial check finds nothing; the change signal drives the alert.
	f.addProduct(t, "Grass Jelly", 0, 2, "6.00")
	assert.Eventually(t, func() bool { return f.sender.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(f.coordinator.Alerted()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestService_MutationDoesNotWaitForDispatch(t *testing.T) {
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sender := &blockingSender{entered: make(chan struct{}, 1), release: make(chan struct{})}
	coord := alerts.NewCoordinator(alerts.CoordinatorConfig{}, sender, store, logger, nil)
	svc := inventory.NewService(store, coord, logger)
	startWatcher(t, svc, time.Hour)
	t.Cleanup(func() { close(sender.release) })

	ctx := context.Background()
	p := &model.Product{Name: "Matcha Powder", Supplier: "Kingeleke", Quantity: 1, RestockThreshold: 2}

	returned := make(chan error, 1)
	go func() { returned <- svc.CreateProduct(ctx, "maria", p) }()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateProduct blocked on alert delivery")
	}

	// The dispatch is running in the background, still held by the sender.
	select {
	case <-sender.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("automatic alert was never dispatched")
	}
	assert.Equal(t, alerts.StateDispatching, coord.State())

	// Further writes still return while the dispatch is in flight.
	_, err = svc.SetQuantity(ctx, "maria", p.ID, 0)
	require.NoError(t, err)
}
