// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"context"
	"time"

	"github.com/tomtom215/fleetmanager/internal/audit"
	"github.com/tomtom215/fleetmanager/internal/config"
	"github.com/tomtom215/fleetmanager/internal/dashboard"
	"github.com/tomtom215/fleetmanager/internal/fleet"
	"github.com/tomtom215/fleetmanager/internal/ota"
	"github.com/tomtom215/fleetmanager/internal/paramstore"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// FleetService serves vehicle, trip, event and route reads.
type FleetService interface {
	Aggregated(ctx context.Context, req vehicledata.AggregateRequest) (*fleet.AggregatedResult, error)
	Filtered(ctx context.Context, req vehicledata.FilterRequest) (*fleet.FilteredResult, error)
	Single(ctx context.Context, vin string) (*fleet.VehicleDetail, error)
	Trips(ctx context.Context, vin string, req vehicledata.TimelineRequest) (*fleet.TripsResult, error)
	Events(ctx context.Context, vin string, req vehicledata.TimelineRequest) (*fleet.EventsResult, error)
	Route(ctx context.Context, tripID string) (*fleet.Route, error)
}

// DashboardService serves the dashboard tables and weekly charts.
type DashboardService interface {
	TirePressure(ctx context.Context, req dashboard.Request) (*dashboard.Result[dashboard.TirePressureRow], error)
	Battery(ctx context.Context, req dashboard.Request) (*dashboard.Result[dashboard.BatteryRow], error)
	NotCharging(ctx context.Context, req dashboard.Request) (*dashboard.Result[dashboard.NotChargingRow], error)
	Efficiency(ctx context.Context, req dashboard.Request) (*dashboard.Result[dashboard.EfficiencyRow], error)
	WeeklyStats(ctx context.Context, year, startWeek, weeks int) (*dashboard.StatsResult, error)
}

// OTAService creates software update jobs and reports on them.
type OTAService interface {
	Create(ctx context.Context, req ota.CreateRequest, deviceID string) (*ota.CreateResult, error)
	ListJobs(ctx context.Context, token string) (*ota.JobsResult, error)
	JobDevices(ctx context.Context, jobID, token string) (*ota.JobDevicesResult, error)
	DeviceStatuses(ctx context.Context, jobID string, deviceIDs []string) (*ota.StatusesResult, error)
}

// Auditor records fleet write operations.
type Auditor interface {
	Log(event *audit.Event)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: request decoding helpers
//   - handlers_health.go: liveness and readiness probes
//   - handlers_vehicles.go: vehicles, trips, events and routes
//   - handlers_dashboard.go: dashboard tables and charts
//   - handlers_ota.go: OTA jobs
//   - handlers_config.go: configuration parameters
type Handler struct {
	fleet     FleetService
	dashboard DashboardService
	ota       OTAService
	params    paramstore.Store
	search    Pinger
	audit     Auditor
	charts    config.ChartsConfig
	startTime time.Time
	now       func() time.Time
}

// Services groups the domain services a Handler serves.
type Services struct {
	Fleet     FleetService
	Dashboard DashboardService
	OTA       OTAService
	Params    paramstore.Store
	Search    Pinger
	// Audit is optional.
	Audit Auditor
}

// NewHandler creates a new API handler. charts supplies the default weekly
// stats window when a request omits it.
func NewHandler(svc Services, charts config.ChartsConfig) *Handler {
	return &Handler{
		fleet:     svc.Fleet,
		dashboard: svc.Dashboard,
		ota:       svc.OTA,
		params:    svc.Params,
		search:    svc.Search,
		audit:     svc.Audit,
		charts:    charts,
		startTime: time.Now(),
		now:       time.Now,
	}
}

func (h *Handler) record(e *audit.Event) {
	if h.audit != nil {
		h.audit.Log(e)
	}
}
