package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Components
// accept a nil *Metrics so tests can run without touching the default
// registry.
type Metrics struct {
	StorePuts        *prometheus.CounterVec
	PersistAttempts  *prometheus.CounterVec
	PersistFailures  *prometheus.CounterVec
	PersistCoalesced *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		StorePuts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberdesk_store_puts_total",
			Help: "Collection upserts applied by the store, per collection",
		}, []string{"collection"}),
		PersistAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberdesk_cache_persist_attempts_total",
			Help: "Background persistence attempts scheduled by the cache",
		}, []string{"collection"}),
		PersistFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberdesk_cache_persist_failures_total",
			Help: "Background persistence attempts that failed after retries",
		}, []string{"collection"}),
		PersistCoalesced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memberdesk_cache_persist_coalesced_total",
			Help: "Writes absorbed into an already-pending persist",
		}, []string{"collection"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memberdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) RecordStorePut(collection string) {
	if m == nil {
		return
	}
	m.StorePuts.WithLabelValues(collection).Inc()
}

func (m *Metrics) RecordPersistAttempt(collection string) {
	if m == nil {
		return
	}
	m.PersistAttempts.WithLabelValues(collection).Inc()
}

func (m *Metrics) RecordPersistFailure(collection string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) RecordPersistCoalesced(collection string) {
	if m == nil {
		return
	}
	m.PersistCoalesced.WithLabelValues(collection).Inc()
}

func (m *Metrics) ObserveHTTPDuration(route, method string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(route, method).Observe(seconds)
}
