// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
served at /metrics by the API router.

# Available Metrics

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint (chi route pattern), status_code
  - api_request_duration_seconds: Request latency (histogram)
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Search Metrics:
  - search_requests_total: Labels: operation, index, status
  - search_request_duration_seconds: Labels: operation, index
  - search_hits_returned: Hits per search, labelled by index

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Labels: name, result
  - circuit_breaker_consecutive_failures
  - circuit_breaker_state_transitions_total: Labels: name, from_state, to_state

Ingestion Metrics:
  - ingest_messages_total: Labels: subject, result
  - ingest_documents_written_total: Labels: index
  - ingest_processing_duration_seconds: Labels: subject

OTA and Parameter Metrics:
  - ota_operations_total: Labels: operation, result
  - param_operations_total: Labels: backend, operation, result
*/
package metrics
