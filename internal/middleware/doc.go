// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: reuses or generates an X-Request-ID and seeds the logging context
  - PrometheusMetrics: request counters and latency labelled by chi route pattern

Both are written as http.HandlerFunc wrappers and adapted to chi by the api package.
*/
package middleware
