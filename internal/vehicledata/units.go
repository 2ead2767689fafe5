// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package vehicledata

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Unit conversion factors.
const (
	// MetersToMiles is kept for callers holding true metres. Vehicle
	// odometers report kilometres in the "metres" field and use KmToMiles.
	MetersToMiles = 0.000621371
	KmToMiles     = 0.621371
	MlToGallons   = 0.000264
	KPaToPSI      = 0.145038
)

// Round2 rounds x to two decimals, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Number is a float that also accepts quoted values. Device firmware is
// inconsistent about sending numbers as strings.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		b = bytes.Trim(b, `"`)
		if len(b) == 0 {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid number %s: %w", b, err)
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 {
	return float64(n)
}

// Truncate drops the fractional part, matching how pressures and energy
// counters are reported.
func (n Number) Truncate() float64 {
	return math.Trunc(float64(n))
}
