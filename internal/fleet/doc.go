// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package fleet serves vehicle lists, single vehicles, trip and event
// history, and trip routes from the telemetry indexes.
//
// Paged results carry an offset for the next page, or null once a page
// comes back short. Missing vehicles, trips and routes are reported as
// *NotFoundError, which matches ErrNotFound.
package fleet
