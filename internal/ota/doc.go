// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

// Package ota manages over-the-air software update jobs.
//
// Jobs are created through the Commands service, which runs as a Lambda
// behind an API Gateway proxy route: a draft is POSTed to /commands and then
// PATCHed to PUBLISHED. Job listings, per-device progress and job documents
// come straight from AWS IoT Jobs. Device IDs are upper-cased thing names;
// the telemetry indexes store them lower-cased.
package ota
