// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fleetmanager/internal/audit"
	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/ota"
	"github.com/tomtom215/fleetmanager/internal/validation"
)

// OTACreate drafts and publishes a software update job. Without a device_id
// path value the job targets every vehicle matching the request filters.
func (h *Handler) OTACreate(w http.ResponseWriter, r *http.Request) {
	var req ota.CreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	deviceID := chi.URLParam(r, "device_id")
	if deviceID != "" && !validation.IsDeviceID(deviceID) {
		NewResponseWriter(w, r).ValidationError("device_id must be a valid device id", map[string]interface{}{
			"field": "device_id",
			"tag":   "deviceid",
		})
		return
	}

	meta := map[string]string{"desired_version": req.DesiredVersion, "device_id": deviceID}
	result, err := h.ota.Create(r.Context(), req, deviceID)
	if err != nil {
		h.record(audit.FromRequest(r, audit.EventTypeOTAJobCreated, audit.OutcomeFailure, "create").
			WithMetadata(meta))
		writeServiceError(w, r, err)
		return
	}
	h.record(audit.FromRequest(r, audit.EventTypeOTAJobCreated, audit.OutcomeSuccess, "create").
		WithTarget("job", result.JobID).
		WithMetadata(meta))
	logging.Ctx(r.Context()).Info().
		Str("job_id", result.JobID).
		Str("desired_version", sanitizeLogValue(req.DesiredVersion)).
		Msg("OTA job published")
	NewResponseWriter(w, r).JSON(result)
}

// OTAJobs lists snapshot jobs, one page at a time.
func (h *Handler) OTAJobs(w http.ResponseWriter, r *http.Request) {
	result, err := h.ota.ListJobs(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// OTAJobDevices lists a job's executions with the vehicle each device is in.
func (h *Handler) OTAJobDevices(w http.ResponseWriter, r *http.Request) {
	result, err := h.ota.JobDevices(r.Context(), chi.URLParam(r, "job_id"), r.URL.Query().Get("token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}

// OTADeviceStatuses describes the job execution on each listed device.
func (h *Handler) OTADeviceStatuses(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("filters")
	if raw == "" {
		NewResponseWriter(w, r).Error(http.StatusBadRequest, ErrCodeMissingFilters, ErrMissingDevices.Error())
		return
	}

	req := StatusRequest{DeviceIDs: parseCommaSeparated(raw)}
	if err := validateRequest(&req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.ota.DeviceStatuses(r.Context(), chi.URLParam(r, "job_id"), req.DeviceIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(result)
}
