package alerts

import (
	"context"
	"errors"
	"fmt"
)

// IneligibleDestinationCode is the Twilio error code for a destination that
// cannot receive messages from this account (e.g. unverified on a trial account).
const IneligibleDestinationCode = 21608

var (
	// ErrTransportNotConfigured is returned when the transport lacks credentials.
	ErrTransportNotConfigured = errors.New("alert transport not configured")

	// ErrNoRecipients is returned when no recipients are configured.
	ErrNoRecipients = errors.New("no alert recipients configured")

	// ErrNothingDelivered is reported when every recipient was skipped.
	ErrNothingDelivered = errors.New("alert not delivered to any recipient")

	// ErrNothingLow is returned by a manual send when no product is low on stock.
	ErrNothingLow = errors.New("no low stock items")
)

// Transport delivers a single message to a single destination.
type Transport interface {
	// Name returns the transport identifier.
	Name() string

	// Validate reports a configuration problem, wrapping ErrTransportNotConfigured.
	Validate() error

	// Send delivers body to one destination and returns the provider delivery id.
	// Implementations must be safe for concurrent use.
	Send(ctx context.Context, to, body string) (string, error)
}

// ProviderError is an error response returned by a messaging provider.
type ProviderError struct {
	Status  int
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("provider error %d (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

// IsIneligibleDestination reports whether err is the provider's soft
// "destination not eligible" rejection.
func IsIneligibleDestination(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == IneligibleDestinationCode
}

// DeliveryStatus is the per-recipient result of a dispatch.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusSkipped DeliveryStatus = "skipped"
)

// DispatchResult is the outcome for one recipient.
type DispatchResult struct {
	To         string         `json:"to"`
	Status     DeliveryStatus `json:"status"`
	DeliveryID string         `json:"delivery_id,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// DispatchOutcome collects per-recipient results of one dispatch call.
type DispatchOutcome struct {
	Success bool             `json:"success"`
	Results []DispatchResult `json:"results"`
}

// Sent returns the number of recipients the message was delivered to.
func (o *DispatchOutcome) Sent() int { return o.count(StatusSent) }

// Skipped returns the number of recipients that were skipped.
func (o *DispatchOutcome) Skipped() int { return o.count(StatusSkipped) }

func (o *DispatchOutcome) count(status DeliveryStatus) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, r := range o.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}
