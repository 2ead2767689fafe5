// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package audit records who changed the fleet: OTA job creation and
// configuration parameter updates, successful or not.
//
// # Architecture
//
//	Logger.Log() -> Event Buffer (chan) -> Async Writer -> application log
//	                     |                      |
//	                 Non-blocking           optional Store (BadgerDB)
//
// Events are buffered in a channel so handlers never wait on the store. A
// full buffer drops the event with a warning. Close drains what is queued.
//
// # Usage Example
//
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	defer logger.Close()
//
//	logger.Log(audit.FromRequest(r, audit.EventTypeOTAJobCreated, audit.OutcomeSuccess, "create").
//	    WithTarget("job", result.JobID))
//
// # Retention
//
// BadgerStore keys events by timestamp. Retention returns a task that
// deletes events older than the configured number of days; the server runs
// it from a periodic service in the storage layer.
//
// # See Also
//
//   - internal/auth: the principal recorded as the event actor
//   - internal/api: OTA and configuration handlers that emit events
package audit
