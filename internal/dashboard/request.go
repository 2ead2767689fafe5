// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package dashboard

// Request is the body of every dashboard aggregate call.
type Request struct {
	Filters Filters `json:"filters"`
}

// Filters narrows the dashboard to a page of vehicles.
type Filters struct {
	Location        LocationFilter `json:"location"`
	Vehicle         VehicleFilter  `json:"vehicle"`
	Ignition        Ignition       `json:"ignition"`
	LastSeenOffset  int            `json:"last_seen_offset" validate:"min=0"`
	PaginationCount int            `json:"pagination_count"`
}

// LocationFilter lists map areas to include.
type LocationFilter struct {
	Options []LocationOption `json:"options" validate:"dive"`
}

// LocationOption is one area. BBox is [top_long, left_lat, bot_long, right_lat].
type LocationOption struct {
	Label string     `json:"label,omitempty"`
	BBox  [4]float64 `json:"bbox"`
}

// VehicleFilter selects vehicles. Only VIN options narrow the query.
type VehicleFilter struct {
	VIN   VINOptions    `json:"vin"`
	Make  StringOptions `json:"make"`
	Model StringOptions `json:"model"`
	Year  StringOptions `json:"year"`
}

// VINOptions are VINs picked in the UI.
type VINOptions struct {
	Options []VINOption `json:"options" validate:"dive"`
}

// VINOption is one picked VIN.
type VINOption struct {
	Label string `json:"label" validate:"required"`
}

// StringOptions is a plain multi-select.
type StringOptions struct {
	Options []string `json:"options"`
}

// Ignition filters on engine state.
type Ignition struct {
	On bool `json:"on"`
}

// VINs returns the picked VIN labels in order.
func (f Filters) VINs() []string {
	vins := make([]string, 0, len(f.Vehicle.VIN.Options))
	for _, o := range f.Vehicle.VIN.Options {
		vins = append(vins, o.Label)
	}
	return vins
}
