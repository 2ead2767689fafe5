// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by every handler. It reports json field
// names and registers two domain tags:
//   - paramvalue: configuration parameter values (word character first, not only digits)
//   - deviceid: IoT thing names
//
// Failures are returned as *RequestValidationError and rendered by the api
// package as a 400 VALIDATION_ERROR.
package validation
