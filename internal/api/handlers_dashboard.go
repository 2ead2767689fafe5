// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/fleetmanager/internal/dashboard"
)

// dashboardTable adapts one dashboard operation to a POST handler.
func dashboardTable[T any](op func(context.Context, dashboard.Request) (*dashboard.Result[T], error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dashboard.Request
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, r, err)
			return
		}

		result, err := op(r.Context(), req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		NewResponseWriter(w, r).JSON(result)
	}
}

// DashboardTirePressure lists current tire pressures and their trend.
func (h *Handler) DashboardTirePressure(w http.ResponseWriter, r *http.Request) {
	dashboardTable(h.dashboard.TirePressure)(w, r)
}

// DashboardBattery lists state of charge ranges.
func (h *Handler) DashboardBattery(w http.ResponseWriter, r *http.Request) {
	dashboardTable(h.dashboard.Battery)(w, r)
}

// DashboardNotCharging lists hours since each vehicle last peaked in charge.
func (h *Handler) DashboardNotCharging(w http.ResponseWriter, r *http.Request) {
	dashboardTable(h.dashboard.NotCharging)(w, r)
}

// DashboardEfficiency lists energy used per distance driven.
func (h *Handler) DashboardEfficiency(w http.ResponseWriter, r *http.Request) {
	dashboardTable(h.dashboard.Efficiency)(w, r)
}

// ChartsStats returns weekly efficiency statistics. Missing query values fall
// back to the configured window; a zero configured year means this year.
func (h *Handler) ChartsStats(w http.ResponseWriter, r *http.Request) {
	year := h.charts.Year
	if year == 0 {
		year = h.now().Year()
	}

	req, err := h.statsRequest(r, year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.dashboard.WeeklyStats(r.Context(), req.Year, req.StartWeek, req.Weeks)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

func (h *Handler) statsRequest(r *http.Request, defaultYear int) (StatsRequest, error) {
	var req StatsRequest
	var err error
	if req.Year, err = getIntParam(r, "year", defaultYear); err != nil {
		return req, err
	}
	if req.StartWeek, err = getIntParam(r, "startWeek", h.charts.StartWeek); err != nil {
		return req, err
	}
	if req.Weeks, err = getIntParam(r, "weeks", h.charts.Weeks); err != nil {
		return req, err
	}
	return req, validateRequest(&req)
}
