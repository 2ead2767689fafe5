// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/fleetmanager/internal/fleet"
	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/paramstore"
	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/validation"
)

// Common API errors
var (
	// ErrMissingFilters is returned when a route that reads a filters query
	// value receives none.
	ErrMissingFilters = errors.New("Missing filter parameters") //nolint:staticcheck // client contract text

	// ErrMissingDevices is returned by the device status route without ids.
	ErrMissingDevices = errors.New("Missing filter parameters (list device ids)") //nolint:staticcheck // client contract text
)

// writeServiceError maps a service error to its HTTP response. Anything not
// recognised is a 400 carrying the error text, which is what the UI expects.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	var serr *search.Error
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
	case errors.Is(err, fleet.ErrNotFound), errors.Is(err, paramstore.ErrNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, search.ErrCircuitOpen):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Search domain unavailable")
		rw.ServiceUnavailable(err.Error())
	case errors.As(err, &serr):
		logging.Ctx(r.Context()).Error().
			Int("status", serr.Status).
			Str("type", sanitizeLogValue(serr.Type)).
			Str("reason", sanitizeLogValue(serr.Reason)).
			Msg("Search request failed")
		rw.Error(http.StatusBadRequest, ErrCodeSearchError, serr.Type)
	default:
		logging.Ctx(r.Context()).Error().Str("error", sanitizeLogValue(err.Error())).Msg("General error")
		rw.BadRequest(err.Error())
	}
}
