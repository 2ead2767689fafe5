// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package dashboard computes the fleet dashboard panels and weekly chart
// statistics.
//
// Each panel first resolves a page of vehicles with their last report time,
// then reads up to a day of history per vehicle from the cardata index, and
// finally joins that history with the current snapshot from the latest
// index. Vehicles with no history in the window are left out of the rows but
// still count towards total_count.
package dashboard
