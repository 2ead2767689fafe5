// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Search Domain Metrics
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of requests sent to the search domain",
		},
		[]string{"operation", "index", "status"}, // status: "ok", "error", "rejected"
	)

	SearchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_request_duration_seconds",
			Help:    "Duration of search domain requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "index"},
	)

	SearchHits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_hits_returned",
			Help:    "Number of hits returned per search",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"index"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Ingestion Metrics
	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of ingested NATS messages",
		},
		[]string{"subject", "result"}, // result: "ok", "invalid", "error"
	)

	IngestDocumentsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_documents_written_total",
			Help: "Total number of documents written by ingestion",
		},
		[]string{"index"},
	)

	IngestProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_processing_duration_seconds",
			Help:    "Time to process one ingested message",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"subject"},
	)

	// OTA Metrics
	OTAOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ota_operations_total",
			Help: "Total number of OTA operations",
		},
		[]string{"operation", "result"},
	)

	// Parameter Store Metrics
	ParamOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "param_operations_total",
			Help: "Total number of parameter store operations",
		},
		[]string{"backend", "operation", "result"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSearch records one request to the search domain.
func RecordSearch(operation, index, status string, duration time.Duration) {
	SearchRequestsTotal.WithLabelValues(operation, index, status).Inc()
	SearchRequestDuration.WithLabelValues(operation, index).Observe(duration.Seconds())
}

// RecordSearchHits records the number of hits a search returned.
func RecordSearchHits(index string, hits int) {
	SearchHits.WithLabelValues(index).Observe(float64(hits))
}

// RecordIngest records the outcome of one ingested message.
func RecordIngest(subject, result string, duration time.Duration) {
	IngestMessagesTotal.WithLabelValues(subject, result).Inc()
	IngestProcessingDuration.WithLabelValues(subject).Observe(duration.Seconds())
}

// RecordIngestWrites records documents written to an index.
func RecordIngestWrites(index string, count int) {
	IngestDocumentsWritten.WithLabelValues(index).Add(float64(count))
}

// RecordOTAOperation records an OTA operation outcome.
func RecordOTAOperation(operation string, err error) {
	OTAOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordParamOperation records a parameter store operation outcome.
func RecordParamOperation(backend, operation string, err error) {
	ParamOperationsTotal.WithLabelValues(backend, operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
