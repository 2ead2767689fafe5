// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package vehicledata

// Filters narrows a vehicle search. Every empty field is ignored.
//
// Boundaries are map viewports in [left, bottom, right, top] order
// (west lon, south lat, east lon, north lat).
type Filters struct {
	Software     map[string]string `json:"software"`
	Anomalies    []string          `json:"anomalies"`
	TroubleCodes []string          `json:"troubleCodes"`
	Vehicle      VehicleFilter     `json:"vehicle"`
	Boundaries   [][]float64       `json:"boundaries" validate:"dive,len=4"`
	Timestamp    string            `json:"timestamp,omitempty"`
	Dates        *DateRange        `json:"dates,omitempty"`
}

// SoftwareVersion returns the requested software version, if any.
func (f Filters) SoftwareVersion() string {
	return f.Software["swVersion"]
}

// VehicleFilter selects vehicles by identity and attributes.
type VehicleFilter struct {
	VIN   []string `json:"vin"`
	Make  []string `json:"make"`
	Model []string `json:"model"`
	Year  []int    `json:"year"`
}

// DateRange bounds sendtimestamp. Both ends must be set to apply.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Set reports whether both ends of the range are present.
func (d *DateRange) Set() bool {
	return d != nil && d.Start != "" && d.End != ""
}

// Pagination is offset based paging over hits.
type Pagination struct {
	Offset     int `json:"offset" validate:"min=0"`
	MaxResults int `json:"maxResults" validate:"min=0,max=10000"`
}

// NextOffset returns the offset of the next page, or nil when count shows
// the current page was the last one.
func (p Pagination) NextOffset(count int) *int {
	if count != p.MaxResults {
		return nil
	}
	next := p.Offset + p.MaxResults
	return &next
}

// Clusters requests map clustering at the given zoom level.
type Clusters struct {
	Zoom *float64 `json:"zoom,omitempty" validate:"omitempty,min=0,max=30"`
}

// AggregateRequest drives the aggregated vehicle map view.
type AggregateRequest struct {
	Filters    Filters    `json:"filters"`
	Pagination Pagination `json:"pagination"`
	Clusters   Clusters   `json:"clusters"`
}

// FilterRequest drives the filtered vehicle list.
type FilterRequest struct {
	Filters Filters `json:"filters"`
}

// TimelineFilters narrows trip and event history.
type TimelineFilters struct {
	Dates *DateRange `json:"dates,omitempty"`
}

// TimelineRequest pages through a vehicle's trips or events.
type TimelineRequest struct {
	Pagination Pagination      `json:"pagination"`
	Filters    TimelineFilters `json:"filters"`
}
