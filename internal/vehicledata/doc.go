// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

/*
Package vehicledata builds search queries for vehicle telemetry and maps the
hits back into the shapes the fleet UI consumes.

Query builders are pure functions over request filters:

  - FilterClauses produces the bool.filter list (map bounds, identity,
    attributes, software version, trouble codes, anomalies)
  - AggregatedQuery adds paging and, when a zoom level is given, one
    geotile_grid aggregation per map boundary
  - TripsQuery, EventsQuery, RouteQuery and DeviceVinQuery cover the
    per-vehicle history lookups

Mappers convert raw _source documents into DTOs. Distances and speeds are
reported by devices in kilometres, fuel in millilitres and tyre pressure in
kPa; the UI gets miles, gallons and psi.

Coordinates follow GeoJSON order ([lon, lat]) everywhere except the
geo_point strings inside geo_bounding_box, which are "lat, lon".
*/
package vehicledata
