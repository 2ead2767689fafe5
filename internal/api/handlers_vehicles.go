// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// VehiclesAggregate returns map clusters and a page of vehicles.
func (h *Handler) VehiclesAggregate(w http.ResponseWriter, r *http.Request) {
	var req vehicledata.AggregateRequest
	if err := decodeFilters(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.fleet.Aggregated(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// VehiclesFilter returns every vehicle matching the filters.
func (h *Handler) VehiclesFilter(w http.ResponseWriter, r *http.Request) {
	var req vehicledata.FilterRequest
	if err := decodeFilters(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.fleet.Filtered(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// Vehicle returns the latest snapshot of one vehicle.
func (h *Handler) Vehicle(w http.ResponseWriter, r *http.Request) {
	result, err := h.fleet.Single(r.Context(), chi.URLParam(r, "vin"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// VehicleTrips pages through a vehicle's trips.
func (h *Handler) VehicleTrips(w http.ResponseWriter, r *http.Request) {
	var req vehicledata.TimelineRequest
	if err := decodeFilters(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.fleet.Trips(r.Context(), chi.URLParam(r, "vin"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// VehicleEvents pages through a vehicle's events.
func (h *Handler) VehicleEvents(w http.ResponseWriter, r *http.Request) {
	var req vehicledata.TimelineRequest
	if err := decodeFilters(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.fleet.Events(r.Context(), chi.URLParam(r, "vin"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// TripRoute returns the encoded route driven on a trip.
func (h *Handler) TripRoute(w http.ResponseWriter, r *http.Request) {
	result, err := h.fleet.Route(r.Context(), chi.URLParam(r, "trip_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}
