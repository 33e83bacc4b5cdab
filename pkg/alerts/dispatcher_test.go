package alerts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/restock-guardian/pkg/alerts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_IneligibleRecipientIsSkipped(t *testing.T) {
	fake := &fakeTwilio{ineligible: map[string]bool{"+15550000002": true}}
	server := newFakeTwilio(t, fake)
	metrics := alerts.NewMetrics(prometheus.NewRegistry())

	d := alerts.NewDispatcher(newTestTwilio(server.URL), nil, discardLogger(), metrics)
	out, err := d.Dispatch(context.Background(), "low stock", []string{
		"+15550000001", " +15550000002 ", "+15550000003",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	require.Len(t, out.Results, 3)
	assert.Equal(t, 2, out.Sent())
	assert.Equal(t, 1, out.Skipped())

	assert.Equal(t, alerts.StatusSent, out.Results[0].Status)
	assert.NotEmpty(t, out.Results[0].DeliveryID)
	assert.Equal(t, "+15550000002", out.Results[1].To)
	assert.Equal(t, alerts.StatusSkipped, out.Results[1].Status)
	assert.Equal(t, "unverified destination", out.Results[1].Reason)
	assert.Equal(t, alerts.StatusSent, out.Results[2].Status)

	assert.Equal(t, 3, fake.calls())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecipientResults.WithLabelValues("twilio", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecipientResults.WithLabelValues("twilio", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dispatches.WithLabelValues("completed")))
}

func TestDispatcher_TransportFailureContinues(t *testing.T) {
	fake := &fakeTwilio{failing: map[string]bool{"+15550000001": true}}
	server := newFakeTwilio(t, fake)

	d := alerts.NewDispatcher(newTestTwilio(server.URL), nil, discardLogger(), nil)
	out, err := d.Dispatch(context.Background(), "low stock", []string{"+15550000001", "+15550000002"})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Sent())
	assert.Equal(t, alerts.StatusSkipped, out.Results[0].Status)
	assert.Contains(t, out.Results[0].Reason, "500")
}

func TestDispatcher_AllSkippedStillSucceeds(t *testing.T) {
	fake := &fakeTwilio{ineligible: map[string]bool{"+1": true, "+2": true}}
	server := newFakeTwilio(t, fake)

	d := alerts.NewDispatcher(newTestTwilio(server.URL), nil, discardLogger(), nil)
	out, err := d.Dispatch(context.Background(), "msg", []string{"+1", "+2"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 0, out.Sent())
	assert.Equal(t, 2, out.Skipped())
}

func TestDispatcher_EmptyRecipients(t *testing.T) {
	fake := &fakeTwilio{}
	server := newFakeTwilio(t, fake)

	d := alerts.NewDispatcher(newTestTwilio(server.URL), nil, discardLogger(), nil)
	out, err := d.Dispatch(context.Background(), "msg", nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Empty(t, out.Results)
	assert.Equal(t, 0, fake.calls())
}

func TestDispatcher_DispatchConfigured(t *testing.T) {
	fake := &fakeTwilio{}
	server := newFakeTwilio(t, fake)

	d := alerts.NewDispatcher(newTestTwilio(server.URL), []string{"+1", " ", "+2 "}, discardLogger(), nil)
	assert.Equal(t, []string{"+1", "+2"}, d.Recipients())

	out, err := d.DispatchConfigured(context.Background(), "msg")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Sent())
	assert.Equal(t, "2 sent, 0 skipped", out.Summary())
}

func TestDispatcher_NoConfiguredRecipients(t *testing.T) {
	fake := &fakeTwilio{}
	server := newFakeTwilio(t, fake)

	d := alerts.NewDispatcher(newTestTwilio(server.URL), nil, discardLogger(), nil)
	out, err := d.DispatchConfigured(context.Background(), "msg")
	assert.ErrorIs(t, err, alerts.ErrNoRecipients)
	assert.False(t, out.Success)
	assert.Equal(t, 0, fake.calls())
}

func TestDispatcher_MissingCredentials(t *testing.T) {
	tr := alerts.NewTwilioTransport(alerts.TwilioConfig{})
	d := alerts.NewDispatcher(tr, []string{"+1"}, discardLogger(), nil)

	out, err := d.DispatchConfigured(context.Background(), "msg")
	assert.ErrorIs(t, err, alerts.ErrTransportNotConfigured)
	assert.False(t, out.Success)
	assert.Empty(t, out.Results)
}

func TestParseRecipients(t *testing.T) {
	assert.Equal(t, []string{"+1", "+2"}, alerts.ParseRecipients(" +1, ,+2,"))
	assert.Empty(t, alerts.ParseRecipients(""))
}

// stubTransport fails every send with err.
type stubTransport struct {
	err   error
	calls int
}

func (s *stubTransport) Name() string    { return "stub" }
func (s *stubTransport) Validate() error { return nil }
func (s *stubTransport) Send(context.Context, string, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestBreakerTransport_OpensAfterFailures(t *testing.T) {
	stub := &stubTransport{err: errors.New("connection refused")}
	b := alerts.NewBreakerTransport(stub, alerts.BreakerConfig{FailureThreshold: 2, Window: 2}, discardLogger())
	assert.Equal(t, "stub", b.Name())

	for range 2 {
		_, err := b.Send(context.Background(), "+1", "msg")
		require.Error(t, err)
	}
	assert.True(t, b.IsOpen())

	_, err := b.Send(context.Background(), "+1", "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, 2, stub.calls)
}

func TestBreakerTransport_IneligibleDoesNotTrip(t *testing.T) {
	stub := &stubTransport{err: &alerts.ProviderError{Status: 400, Code: alerts.IneligibleDestinationCode, Message: "unverified"}}
	b := alerts.NewBreakerTransport(stub, alerts.BreakerConfig{FailureThreshold: 1, Window: 1}, nil)

	for range 3 {
		_, err := b.Send(context.Background(), "+1", "msg")
		assert.True(t, alerts.IsIneligibleDestination(err))
	}
	assert.False(t, b.IsOpen())
	assert.Equal(t, 3, stub.calls)
}
