package alerts

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the alert pipeline collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SnapshotChecks   *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	RecipientResults *prometheus.CounterVec
	AlertedItems     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SnapshotChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restock",
				Name:      "snapshot_checks_total",
				Help:      "Inventory snapshots evaluated by the alert coordinator, by result.",
			},
			[]string{"result"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restock",
				Name:      "alert_dispatches_total",
				Help:      "Alert dispatch calls, by outcome.",
			},
			[]string{"outcome"},
		),
		RecipientResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "restock",
				Name:      "alert_recipient_results_total",
				Help:      "Per-recipient delivery results, by transport and status.",
			},
			[]string{"transport", "status"},
		),
		AlertedItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "restock",
				Name:      "alerted_items",
				Help:      "Products currently in the alerted set.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.SnapshotChecks, m.Dispatches, m.RecipientResults, m.AlertedItems)
	}
	return m
}

func (m *Metrics) IncSnapshot(result string) {
	if m == nil || m.SnapshotChecks == nil {
		return
	}
	m.SnapshotChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) IncDispatch(outcome string) {
	if m == nil || m.Dispatches == nil {
		return
	}
	m.Dispatches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRecipient(transport string, status DeliveryStatus) {
	if m == nil || m.RecipientResults == nil {
		return
	}
	m.RecipientResults.WithLabelValues(transport, string(status)).Inc()
}

func (m *Metrics) SetAlerted(n int) {
	if m == nil || m.AlertedItems == nil {
		return
	}
	m.AlertedItems.Set(float64(n))
}
