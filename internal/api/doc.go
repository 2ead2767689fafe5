// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package api provides the HTTP REST API layer for Fleetmanager.

It serves the fleet UI: vehicle maps and lists, trips, events and routes,
OTA software update jobs, dashboard tables, weekly charts and configuration
parameters. Handlers decode and validate the request, call one domain
service and write its result.

Key Components:

  - Router: chi route table and middleware stack (chi_router.go)
  - Handler: request handlers, one file per area (handlers_*.go)
  - ResponseWriter: JSON bodies and the error envelope (response.go)
  - writeServiceError: the single mapping from service errors to HTTP status (errors.go)

Routes:

All fleet routes live under the configured base path and require a Cognito
bearer token:

	GET  /vehicles/aggregate?filters=      map clusters and a vehicle page
	GET  /vehicles/filter?filters=         vehicle list
	GET  /vehicles/{vin}                   single vehicle
	GET  /vehicles/{vin}/trips?filters=    trip history
	GET  /vehicles/{vin}/events?filters=   event history
	GET  /vehicles/route/{trip_id}         encoded trip route
	GET  /config?parameter=                read a parameter
	PUT  /config                           write a parameter
	POST /ota/create[/{device_id}]         create an OTA job
	GET  /ota?token=                       list OTA jobs
	GET  /ota/{job_id}/devices?token=      job executions
	GET  /ota/{job_id}/devices/status?filters=a,b
	POST /dashboard/{tirepressure,battery,notcharging,efficency}
	GET  /charts/stats?year=&startWeek=&weeks=

/health/live, /health/ready and /metrics are served without authentication.

OTA job creation and PUT /config are recorded in the audit trail when
Services.Audit is set, whether the service call succeeds or fails.

Response Format:

Successful fleet routes write the result DTO as the whole body. Errors use
the envelope:

	{
	  "success": false,
	  "error": {"code": "NOT_FOUND", "message": "No Vehicle data", "request_id": "..."},
	  "meta": {"timestamp": "..."}
	}

Unrecognised service errors are 400 with the error text as message.

Middleware Stack:

  - Request ID (internal/middleware) and logging context
  - RealIP and panic recovery
  - CORS (go-chi/cors)
  - Rate limiting per client IP (go-chi/httprate)
  - Security headers and gzip compression
  - Prometheus request metrics labelled by route pattern
  - Cognito bearer token authentication (internal/auth)
*/
package api
