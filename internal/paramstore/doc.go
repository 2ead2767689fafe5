// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package paramstore stores the operator-editable configuration parameters
// exposed on /config.
//
// Two backends implement Store: SSMStore for AWS deployments and
// BadgerStore for local ones. Both reject values that are all digits or that
// do not start with a word character followed by a non-space character.
//
// CachedStore fronts either backend with a short-lived read cache. Writes
// through the same instance drop the cached copy at once; writes made
// elsewhere show up once the TTL runs out.
package paramstore
