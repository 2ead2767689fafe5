// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"context"
	"net/http"
	"time"
)

// readinessTimeout bounds the search ping made by the readiness probe.
const readinessTimeout = 3 * time.Second

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Envelope(http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the search domain answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	searchConnected := false
	if h.search != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		searchConnected = h.search.Ping(ctx) == nil
		cancel()
	}

	statusCode := http.StatusOK
	if !searchConnected {
		statusCode = http.StatusServiceUnavailable
	}

	NewResponseWriter(w, r).Envelope(statusCode, map[string]interface{}{
		"search_connected": searchConnected,
		"ready_to_serve":   searchConnected,
		"uptime":           time.Since(h.startTime).Seconds(),
	})
}
