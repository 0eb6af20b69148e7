package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EvidencesCreated     prometheus.Counter
	NotificationsEmitted prometheus.Counter
	AuditEventsRelayed   prometheus.Counter

	EAVWriteDuration prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec

	SchemaCacheHits   prometheus.Counter
	SchemaCacheMisses prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EvidencesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_evidences_created_total",
			Help: "Total number of evidences created in the system",
		}),
		NotificationsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_notifications_emitted_total",
			Help: "Total number of workflow notifications emitted",
		}),
		AuditEventsRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_audit_events_relayed_total",
			Help: "Total number of outbox audit events relayed to Kafka",
		}),
		EAVWriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_eav_bulk_write_duration_seconds",
			Help:    "Latency of bulk dynamic-attribute writes",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		SchemaCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_schema_cache_hits_total",
			Help: "Evidence-type schema cache hits",
		}),
		SchemaCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_schema_cache_misses_total",
			Help: "Evidence-type schema cache misses",
		}),
	}
}

// ObserveEAVWrite records the duration of a bulk dynamic-attribute write.
func (m *Metrics) ObserveEAVWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.EAVWriteDuration.Observe(d.Seconds())
}

// IncrementEvidencesCreated increments the evidences created counter by 1.
func (m *Metrics) IncrementEvidencesCreated() {
	if m == nil {
		return
	}
	m.EvidencesCreated.Inc()
}

// IncrementNotificationsEmitted increments the notification counter by 1.
func (m *Metrics) IncrementNotificationsEmitted() {
	if m == nil {
		return
	}
	m.NotificationsEmitted.Inc()
}

// AddAuditEventsRelayed counts outbox entries relayed to Kafka.
func (m *Metrics) AddAuditEventsRelayed(n int) {
	if m == nil {
		return
	}
	m.AuditEventsRelayed.Add(float64(n))
}

// RecordCacheHit counts a schema-cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.SchemaCacheHits.Inc()
}

// RecordCacheMiss counts a schema-cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.SchemaCacheMisses.Inc()
}
