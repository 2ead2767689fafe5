// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Request structs for query parameters, validated with go-playground/validator tags.
//
// The validation tags follow the go-playground/validator v10 syntax:
//   - min,max: numeric or slice length bounds
//   - dive: validate each slice element
//   - deviceid: IoT thing name (registered in internal/validation)

package api

// StatsRequest represents the validated query parameters for /charts/stats.
//
// Fields:
//   - Year: calendar year the weeks belong to
//   - StartWeek: first %W week number (0-53)
//   - Weeks: number of consecutive weeks (1-52)
type StatsRequest struct {
	Year      int `validate:"min=1970,max=9999"`
	StartWeek int `validate:"min=0,max=53"`
	Weeks     int `validate:"min=1,max=52"`
}

// StatusRequest carries the device ids of /ota/{job_id}/devices/status.
// The upper bound is enforced by the OTA service so its error text reaches the UI.
type StatusRequest struct {
	DeviceIDs []string `validate:"min=1,dive,deviceid"`
}
