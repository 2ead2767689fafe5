// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package vehicledata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
	"github.com/twpayne/go-polyline"
)

// BBox is [left, bottom, right, top].
type BBox [4]float64

// Center returns the [lon, lat] midpoint of b.
func (b BBox) Center() [2]float64 {
	return [2]float64{(b[0] + b[2]) / 2, (b[1] + b[3]) / 2}
}

// Crop clamps b so it does not extend past bound.
func (b BBox) Crop(bound []float64) BBox {
	if len(bound) != 4 {
		return b
	}
	if b[0] < bound[0] {
		b[0] = bound[0]
	}
	if b[1] < bound[1] {
		b[1] = bound[1]
	}
	if b[2] > bound[2] {
		b[2] = bound[2]
	}
	if b[3] > bound[3] {
		b[3] = bound[3]
	}
	return b
}

// TileBBox returns the bounds of a geotile_grid key "z/x/y".
func TileBBox(key string) (BBox, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return BBox{}, fmt.Errorf("invalid geotile key %q", key)
	}

	z, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return BBox{}, fmt.Errorf("invalid geotile zoom in %q: %w", key, err)
	}
	x, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return BBox{}, fmt.Errorf("invalid geotile x in %q: %w", key, err)
	}
	y, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return BBox{}, fmt.Errorf("invalid geotile y in %q: %w", key, err)
	}

	bound := maptile.New(uint32(x), uint32(y), maptile.Zoom(z)).Bound()
	return BBox{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}, nil
}

// EncodeRoute encodes [lon, lat] points as a Google polyline. Null island
// points are dropped and repeated points keep only their first occurrence.
func EncodeRoute(points [][2]float64) string {
	seen := make(map[[2]float64]struct{}, len(points))
	coords := make([][]float64, 0, len(points))

	for _, p := range points {
		if p[0] == 0 && p[1] == 0 {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		coords = append(coords, []float64{p[1], p[0]})
	}

	if len(coords) == 0 {
		return ""
	}
	return string(polyline.EncodeCoords(coords))
}
