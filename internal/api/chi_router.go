// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fleetmanager/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID)) // X-Request-ID plus logging context
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// ========================
	// Fleet API
	// ========================
	// Every route below requires a bearer token.
	api := func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(router.middleware.Authenticate))

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/aggregate", router.handler.VehiclesAggregate)
			r.Get("/filter", router.handler.VehiclesFilter)
			r.Get("/route/{trip_id}", router.handler.TripRoute)
			r.Get("/{vin}", router.handler.Vehicle)
			r.Get("/{vin}/trips", router.handler.VehicleTrips)
			r.Get("/{vin}/events", router.handler.VehicleEvents)
		})

		r.Get("/config", router.handler.ConfigGet)
		r.With(router.chiMiddleware.RateLimitWrite()).Put("/config", router.requireWriter(router.handler.ConfigPut))

		r.Route("/ota", func(r chi.Router) {
			r.Get("/", router.handler.OTAJobs)
			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitWrite())
				r.Post("/create", router.requireWriter(router.handler.OTACreate))
				r.Post("/create/{device_id}", router.requireWriter(router.handler.OTACreate))
			})
			r.Get("/{job_id}/devices", router.handler.OTAJobDevices)
			r.Get("/{job_id}/devices/status", router.handler.OTADeviceStatuses)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Post("/tirepressure", router.handler.DashboardTirePressure)
			r.Post("/battery", router.handler.DashboardBattery)
			r.Post("/notcharging", router.handler.DashboardNotCharging)
			r.Post("/efficency", router.handler.DashboardEfficiency)
		})

		r.Get("/charts/stats", router.handler.ChartsStats)
	}

	if router.basePath == "/" {
		r.Group(api)
	} else {
		r.Route(router.basePath, api)
	}

	return r
}

// requireWriter restricts a route to the configured write group, if any.
func (router *Router) requireWriter(next http.HandlerFunc) http.HandlerFunc {
	if router.writeGroup == "" {
		return next
	}
	return router.middleware.RequireGroup(router.writeGroup, next)
}
