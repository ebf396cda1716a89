// Package metrics exposes Prometheus collectors for checker outcomes.
package metrics

import (
	"net/http"

	"github.com/louisbranch/flagchecker/internal/services/checker/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flagchecker"

// Batch outcome labels.
const (
	BatchEvaluated = "evaluated"
	BatchRejected  = "rejected"
)

// Metrics owns the checker registry and its collectors.
type Metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	batches     *prometheus.CounterVec
	batchSize   prometheus.Histogram
	accepted    prometheus.Gauge
}

// New registers the checker collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Flags judged, by outcome status.",
		}, []string{"status"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Submission requests, by whether they reached the evaluator.",
		}, []string{"outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Flags per evaluated submission request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		accepted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accepted_flags",
			Help:      "Flags currently in the accepted set.",
		}),
	}
	m.registry.MustRegister(
		m.submissions,
		m.batches,
		m.batchSize,
		m.accepted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, status := range domain.Statuses {
		m.submissions.WithLabelValues(status.String())
	}
	return m
}

// ObserveResults records one evaluated batch.
func (m *Metrics) ObserveResults(results []domain.Result) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(BatchEvaluated).Inc()
	m.batchSize.Observe(float64(len(results)))
	for _, result := range results {
		m.submissions.WithLabelValues(result.Status.String()).Inc()
	}
}

// ObserveRejected records a request that failed entry gating.
func (m *Metrics) ObserveRejected() {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(BatchRejected).Inc()
}

// SetAccepted publishes the accepted set size.
func (m *Metrics) SetAccepted(count int) {
	if m == nil {
		return
	}
	m.accepted.Set(float64(count))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
