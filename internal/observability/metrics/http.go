// Package metrics exposes Prometheus instrumentation on a private registry,
// so only this service's series appear on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragQueriesTotal    *prometheus.CounterVec
	ragNoContextTotal  *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragConfidence      *prometheus.HistogramVec

	ingestTotal    *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	ingestChunks   *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rda",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rda",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rda",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ragQueriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rda",
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total RAG queries by outcome.",
		},
		[]string{"service", "status"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rda",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total RAG queries answered without retrieved sources.",
		},
		[]string{"service"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rda",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	ragConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rda",
			Subsystem: "rag",
			Name:      "confidence",
			Help:      "Distribution of answer confidence scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	ingestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rda",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total document ingestions by outcome.",
		},
		[]string{"service", "status"},
	)
	ingestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rda",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Document ingestion duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	ingestChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rda",
			Subsystem: "ingest",
			Name:      "chunks",
			Help:      "Distribution of chunks produced per ingested document.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal, requestDuration, requestInFlight,
		ragQueriesTotal, ragNoContextTotal, ragRetrievedChunks, ragConfidence,
		ingestTotal, ingestDuration, ingestChunks,
	)

	return &HTTPServerMetrics{
		registry: registry,
		service:  service,

		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,

		ragQueriesTotal:    ragQueriesTotal,
		ragNoContextTotal:  ragNoContextTotal,
		ragRetrievedChunks: ragRetrievedChunks,
		ragConfidence:      ragConfidence,

		ingestTotal:    ingestTotal,
		ingestDuration: ingestDuration,
		ingestChunks:   ingestChunks,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) ObserveRequest(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(m.service, method, path, status).Inc()
	m.requestDuration.WithLabelValues(m.service, method, path).Observe(elapsed.Seconds())
}

func (m *HTTPServerMetrics) RequestStarted() {
	if m != nil {
		m.requestInFlight.Inc()
	}
}

func (m *HTTPServerMetrics) RequestFinished() {
	if m != nil {
		m.requestInFlight.Dec()
	}
}

func (m *HTTPServerMetrics) ObserveQuery(status string, retrievedChunks int, confidence float64) {
	if m == nil {
		return
	}
	m.ragQueriesTotal.WithLabelValues(m.service, status).Inc()
	if status != "ok" {
		return
	}
	m.ragRetrievedChunks.WithLabelValues(m.service).Observe(float64(retrievedChunks))
	m.ragConfidence.WithLabelValues(m.service).Observe(confidence)
	if retrievedChunks == 0 {
		m.ragNoContextTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *HTTPServerMetrics) ObserveIngest(status string, chunks int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(m.service, status).Inc()
	if status != "ok" {
		return
	}
	m.ingestDuration.WithLabelValues(m.service).Observe(elapsed.Seconds())
	m.ingestChunks.WithLabelValues(m.service).Observe(float64(chunks))
}
