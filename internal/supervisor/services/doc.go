// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package services adapts fleetmanager components to suture.Service.

Every wrapper implements

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, which suture uses to name the service in its events.

# Available Services

HTTPServerService:
  - Runs an *http.Server, translating ListenAndServe into Serve
  - Drains in-flight requests on cancellation within a shutdown timeout

PeriodicService:
  - Runs a Task on a ticker, logging failed runs instead of returning them
  - Used for Badger value log garbage collection of the parameter store
  - A non-positive interval returns suture.ErrDoNotRestart

The ingest subscriber implements suture.Service itself and needs no wrapper.
*/
package services
