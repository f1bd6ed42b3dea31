package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #region collectors
// Metrics holds the decision-path collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	Decisions          *prometheus.CounterVec
	RetrievalFailures  *prometheus.CounterVec
	GenerationRejected *prometheus.CounterVec
	Latency            prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_decisions_total",
			Help: "Terminal decisions by status, reason and category.",
		}, []string{"status", "reason", "category"}),
		RetrievalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_retrieval_failures_total",
			Help: "Retrieval passes that ended in a tagged failure.",
		}, []string{"reason"}),
		GenerationRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agri_generation_rejections_total",
			Help: "Generated answers discarded by the audit.",
		}, []string{"reason"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agri_decision_latency_seconds",
			Help:    "Wall time of one decision, cache hits included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	reg.MustRegister(m.Decisions, m.RetrievalFailures, m.GenerationRejected, m.Latency)
	return m
}

// #endregion collectors

// #region record
// RecordDecision counts one terminal decision and its latency.
func (m *Metrics) RecordDecision(status, reason, category string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(status, reason, category).Inc()
	m.Latency.Observe(elapsed.Seconds())
}

// RecordRetrievalFailure counts one failed retrieval pass.
func (m *Metrics) RecordRetrievalFailure(reason string) {
	if m == nil {
		return
	}
	m.RetrievalFailures.WithLabelValues(reason).Inc()
}

// RecordRejection counts one discarded answer.
func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.GenerationRejected.WithLabelValues(reason).Inc()
}

// #endregion record

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
