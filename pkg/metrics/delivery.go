package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records ingestion, lifecycle and settlement activity.
type DeliveryMetrics struct {
	ingested      *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	settlements   *prometheus.CounterVec
	ingestSeconds *prometheus.HistogramVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	ingested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_ingested_total",
		Help: "Webhook payloads processed, by source and outcome.",
	}, []string{"source", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Successful order lifecycle transitions, by new status.",
	}, []string{"status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notification dispatch attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_actions_total",
		Help: "Settlement protocol actions, by action.",
	}, []string{"action"})
	ingestSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_ingest_duration_seconds",
		Help:    "Duration of payload normalization and store in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reg.MustRegister(ingested, transitions, notifications, settlements, ingestSeconds)
	return &DeliveryMetrics{
		ingested:      ingested,
		transitions:   transitions,
		notifications: notifications,
		settlements:   settlements,
		ingestSeconds: ingestSeconds,
	}
}

// IncIngested increments the ingest counter for a source and outcome.
func (m *DeliveryMetrics) IncIngested(source, outcome string) {
	if m == nil || m.ingested == nil {
		return
	}
	m.ingested.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncTransition increments the transition counter for the new status.
func (m *DeliveryMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncNotification increments the notification dispatch counter.
func (m *DeliveryMetrics) IncNotification(kind, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncSettlementAction increments the settlement action counter.
func (m *DeliveryMetrics) IncSettlementAction(action string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(action)).Inc()
}

// ObserveIngestDuration records how long a payload took to normalize and store.
func (m *DeliveryMetrics) ObserveIngestDuration(source string, duration time.Duration) {
	if m == nil || m.ingestSeconds == nil {
		return
	}
	m.ingestSeconds.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
