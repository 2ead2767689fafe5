// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package ingest writes vehicle messages from NATS into the search indexes.
//
// Each message kind arrives on its own subject (<prefix>.telemetry,
// <prefix>.trip, ...) through a queue group, so several replicas share the
// load. Keys are lowercased before processing. Messages that fail
// validation are counted as invalid and dropped; other failures are logged
// and counted as errors. Core NATS has no redelivery, so neither kind is
// retried.
package ingest
