// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package logging provides the zerolog-based structured logger used across
// the fleet API, the search client and the ingestion workers.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("index", "latest_telemetry").Msg("Search client ready")
//	logging.Ctx(ctx).Warn().Str("vin", vin).Msg("No vehicle data")
//
// # Configuration
//
// Level, format and caller come from the application config
// (LOG_LEVEL, LOG_FORMAT, LOG_CALLER).
//
// Always terminate event chains with Msg or Send, otherwise nothing is written:
//
//	logging.Info().Str("key", "value").Msg("message")
package logging
