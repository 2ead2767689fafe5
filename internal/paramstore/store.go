// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package paramstore

import (
	"context"
	"errors"

	"github.com/tomtom215/fleetmanager/internal/validation"
)

// ErrNotFound is returned when a parameter does not exist.
var ErrNotFound = errors.New("parameter not found")

// AllowedPattern is the value pattern enforced by the parameter service.
const AllowedPattern = `^(?!\d+$)\w+\S+`

// Parameter is a named configuration value.
type Parameter struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Value       string `json:"value" validate:"required,paramvalue"`
}

// Store reads and writes configuration parameters.
type Store interface {
	Get(ctx context.Context, name string) (Parameter, error)
	Put(ctx context.Context, p Parameter) error
}

// Validate checks that every field is set and that the value is
// acceptable.
func (p Parameter) Validate() error {
	if verr := validation.ValidateStruct(&p); verr != nil {
		return verr
	}
	return nil
}
