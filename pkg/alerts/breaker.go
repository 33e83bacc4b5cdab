package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// BreakerConfig configures the circuit breaker around a transport.
type BreakerConfig struct {
	FailureThreshold uint          // failures within Window that open the breaker
	Window           uint          // executions considered
	Delay            time.Duration // open -> half-open delay
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Window:           10,
		Delay:            30 * time.Second,
	}
}

// BreakerTransport wraps a Transport with a circuit breaker so a provider
// that keeps failing is skipped fast instead of timing out per recipient.
// Ineligible-destination rejections do not count as failures.
type BreakerTransport struct {
	next    Transport
	breaker circuitbreaker.CircuitBreaker[string]
}

// NewBreakerTransport wraps next with a circuit breaker.
func NewBreakerTransport(next Transport, cfg BreakerConfig, logger *slog.Logger) *BreakerTransport {
	def := DefaultBreakerConfig()
	if cfg.Window == 0 {
		cfg.Window = def.Window
	}
	if cfg.FailureThreshold == 0 || cfg.FailureThreshold > cfg.Window {
		cfg.FailureThreshold = min(def.FailureThreshold, cfg.Window)
	}
	if cfg.Delay <= 0 {
		cfg.Delay = def.Delay
	}

	builder := circuitbreaker.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return err != nil && !IsIneligibleDestination(err) && !errors.Is(err, context.Canceled)
		}).
		WithFailureThresholdRatio(cfg.FailureThreshold, cfg.Window).
		WithDelay(cfg.Delay).
		WithSuccessThreshold(1)

	if logger != nil {
		name := next.Name()
		builder = builder.OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn("transport circuit breaker state change",
				"transport", name,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		})
	}

	return &BreakerTransport{next: next, breaker: builder.Build()}
}

func (b *BreakerTransport) Name() string { return b.next.Name() }

func (b *BreakerTransport) Validate() error { return b.next.Validate() }

func (b *BreakerTransport) Send(ctx context.Context, to, body string) (string, error) {
	id, err := failsafe.With[string](b.breaker).WithContext(ctx).Get(func() (string, error) {
		return b.next.Send(ctx, to, body)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "", fmt.Errorf("%s transport unavailable: %w", b.next.Name(), err)
	}
	return id, err
}

// IsOpen reports whether the breaker is currently rejecting sends.
func (b *BreakerTransport) IsOpen() bool {
	return b.breaker.IsOpen()
}
