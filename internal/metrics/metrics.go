// Package metrics exposes Prometheus instrumentation for the retrieval
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RetrievalMetrics holds the registry and collectors for retrieval requests.
type RetrievalMetrics struct {
	registry *prometheus.Registry

	requestsTotal  *prometheus.CounterVec
	degradedTotal  *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	resultChunks   prometheus.Histogram
	ingestedChunks prometheus.Counter
}

// NewRetrievalMetrics creates a registry with all retrieval collectors
// registered.
func NewRetrievalMetrics() *RetrievalMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infofinder",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Retrieval requests by terminal state.",
		},
		[]string{"outcome"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "infofinder",
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Requests with an unavailable signal, by source.",
		},
		[]string{"source"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "infofinder",
			Subsystem: "retrieval",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each retrieval stage in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	resultChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "infofinder",
			Subsystem: "retrieval",
			Name:      "result_chunks",
			Help:      "Number of chunks returned per request.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)
	ingestedChunks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "infofinder",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total chunks committed to the store.",
		},
	)

	registry.MustRegister(requestsTotal, degradedTotal, stageDuration, resultChunks, ingestedChunks)

	return &RetrievalMetrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		degradedTotal:  degradedTotal,
		stageDuration:  stageDuration,
		resultChunks:   resultChunks,
		ingestedChunks: ingestedChunks,
	}
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *RetrievalMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncRequests counts a finished request by terminal state.
func (m *RetrievalMetrics) IncRequests(outcome string) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
}

// IncDegraded counts an unavailable signal.
func (m *RetrievalMetrics) IncDegraded(source string) {
	m.degradedTotal.WithLabelValues(source).Inc()
}

// ObserveStageDuration records how long a retrieval stage took.
func (m *RetrievalMetrics) ObserveStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveResultCount records the size of a retrieval response.
func (m *RetrievalMetrics) ObserveResultCount(n int) {
	m.resultChunks.Observe(float64(n))
}

// AddIngestedChunks counts chunks committed by ingestion.
func (m *RetrievalMetrics) AddIngestedChunks(n int) {
	m.ingestedChunks.Add(float64(n))
}
