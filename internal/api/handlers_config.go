// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"net/http"

	"github.com/tomtom215/fleetmanager/internal/audit"
	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/paramstore"
)

// ConfigGet returns one configuration parameter as {name: value}.
func (h *Handler) ConfigGet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("parameter")
	if name == "" {
		NewResponseWriter(w, r).BadRequest("Missing parameter name")
		return
	}

	p, err := h.params.Get(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(map[string]string{p.Name: p.Value})
}

// ConfigPut creates or overwrites a configuration parameter.
func (h *Handler) ConfigPut(w http.ResponseWriter, r *http.Request) {
	var p paramstore.Parameter
	if err := decodeBody(r, &p); err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.params.Put(r.Context(), p); err != nil {
		h.record(audit.FromRequest(r, audit.EventTypeConfigChanged, audit.OutcomeFailure, "update").
			WithTarget("parameter", p.Name))
		writeServiceError(w, r, err)
		return
	}
	h.record(audit.FromRequest(r, audit.EventTypeConfigChanged, audit.OutcomeSuccess, "update").
		WithTarget("parameter", p.Name))
	logging.Ctx(r.Context()).Info().Str("parameter", sanitizeLogValue(p.Name)).Msg("Parameter updated")
	NewResponseWriter(w, r).NoContent()
}
