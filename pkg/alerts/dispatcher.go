package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Dispatcher delivers one message to a list of recipients through a
// Transport. Per-recipient failures are recorded as skipped and never abort
// the remaining recipients.
type Dispatcher struct {
	transport  Transport
	recipients []string
	logger     *slog.Logger
	metrics    *Metrics
}

// NewDispatcher creates a dispatcher. recipients is the configured list used
// by DispatchConfigured; entries are trimmed and blanks dropped.
func NewDispatcher(transport Transport, recipients []string, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		transport:  transport,
		recipients: cleanRecipients(recipients),
		logger:     logger,
		metrics:    metrics,
	}
}

// Recipients returns a copy of the configured recipient list.
func (d *Dispatcher) Recipients() []string {
	return append([]string(nil), d.recipients...)
}

// Transport returns the underlying transport.
func (d *Dispatcher) Transport() Transport {
	return d.transport
}

// DispatchConfigured sends msg to the configured recipients. An empty
// configured list is a configuration error.
func (d *Dispatcher) DispatchConfigured(ctx context.Context, msg string) (*DispatchOutcome, error) {
	if len(d.recipients) == 0 {
		d.metrics.IncDispatch("config_error")
		return &DispatchOutcome{Success: false}, ErrNoRecipients
	}
	return d.Dispatch(ctx, msg, d.recipients)
}

// Dispatch sends msg to each recipient in turn. An empty recipient list
// succeeds with no results. The only error returned is a transport
// configuration error, in which case no recipient is attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, msg string, recipients []string) (*DispatchOutcome, error) {
	if d.transport == nil {
		d.metrics.IncDispatch("config_error")
		return &DispatchOutcome{Success: false}, ErrTransportNotConfigured
	}
	if err := d.transport.Validate(); err != nil {
		d.metrics.IncDispatch("config_error")
		return &DispatchOutcome{Success: false}, err
	}

	name := d.transport.Name()
	out := &DispatchOutcome{Success: true, Results: make([]DispatchResult, 0, len(recipients))}
	for _, raw := range recipients {
		to := strings.TrimSpace(raw)
		if to == "" {
			continue
		}
		res := d.sendOne(ctx, name, to, msg)
		d.metrics.IncRecipient(name, res.Status)
		out.Results = append(out.Results, res)
	}

	d.logger.Info("alert dispatched",
		"transport", name,
		"sent", out.Sent(),
		"skipped", out.Skipped(),
	)
	d.metrics.IncDispatch("completed")
	return out, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, transport, to, msg string) DispatchResult {
	id, err := d.transport.Send(ctx, to, msg)
	switch {
	case err == nil:
		return DispatchResult{To: to, Status: StatusSent, DeliveryID: id}
	case IsIneligibleDestination(err):
		d.logger.Warn("recipient not eligible, skipping",
			"transport", transport,
			"to", to,
		)
		return DispatchResult{To: to, Status: StatusSkipped, Reason: "unverified destination"}
	default:
		d.logger.Error("alert delivery failed",
			"transport", transport,
			"to", to,
			"error", err,
		)
		return DispatchResult{To: to, Status: StatusSkipped, Reason: err.Error()}
	}
}

// ParseRecipients splits a comma-separated recipient list.
func ParseRecipients(s string) []string {
	return cleanRecipients(strings.Split(s, ","))
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Summary renders the sent/skipped counts for display.
func (o *DispatchOutcome) Summary() string {
	return fmt.Sprintf("%d sent, %d skipped", o.Sent(), o.Skipped())
}
