package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics records the fate of processor events moving through the
// ingestion pipeline.
type EventMetrics struct {
	received  *prometheus.CounterVec
	duplicate prometheus.Counter
	invalid   *prometheus.CounterVec
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewEventMetrics registers the event pipeline metrics on the provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_received_total",
		Help: "Processor events accepted at the webhook endpoint.",
	}, []string{"kind"})
	duplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "events_duplicate_total",
		Help: "Processor events dropped as replays of an already-recorded event id.",
	})
	invalid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_invalid_total",
		Help: "Processor events whose payload failed validation against the processor.",
	}, []string{"kind"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_processed_total",
		Help: "Processor events fully handled and marked processed.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_failed_total",
		Help: "Processor events whose handler raised an error.",
	}, []string{"kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_processing_duration_seconds",
		Help:    "Time spent dispatching a single processor event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	reg.MustRegister(received, duplicate, invalid, processed, failed, duration)
	return &EventMetrics{
		received:  received,
		duplicate: duplicate,
		invalid:   invalid,
		processed: processed,
		failed:    failed,
		duration:  duration,
	}
}

// IncReceived increments the received counter for the event kind.
func (m *EventMetrics) IncReceived(kind string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeKind(kind)).Inc()
}

// IncDuplicate increments the duplicate counter.
func (m *EventMetrics) IncDuplicate() {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.Inc()
}

// IncInvalid increments the invalid counter for the event kind.
func (m *EventMetrics) IncInvalid(kind string) {
	if m == nil || m.invalid == nil {
		return
	}
	m.invalid.WithLabelValues(normalizeKind(kind)).Inc()
}

// IncProcessed increments the processed counter for the event kind.
func (m *EventMetrics) IncProcessed(kind string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeKind(kind)).Inc()
}

// IncFailed increments the failure counter for the event kind.
func (m *EventMetrics) IncFailed(kind string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeKind(kind)).Inc()
}

// ObserveDuration records how long dispatching an event took.
func (m *EventMetrics) ObserveDuration(kind string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeKind(kind)).Observe(duration.Seconds())
}

func normalizeKind(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}
