// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package vehicledata

import (
	"math"
	"strconv"
)

// Query is a search request body.
type Query = map[string]interface{}

// DefaultListSize is the hit count used when no page size applies.
const DefaultListSize = 10000

// maxGeotilePrecision is the finest geotile_grid precision the engine accepts.
const maxGeotilePrecision = 29

// Fixed aggregation names. Any other key in an aggregated response is a
// boundary index.
const (
	AggVehicleCount = "vehicle_count"
	AggDTCCodes     = "dtc_codes"
	AggAnomalyCodes = "anomaly_codes"
)

// IsFixedAggregation reports whether name is one of the filter aggregations.
func IsFixedAggregation(name string) bool {
	return name == AggVehicleCount || name == AggDTCCodes || name == AggAnomalyCodes
}

// appendTerms adds a terms clause on field when values is non-empty.
func appendTerms[T any](clauses []interface{}, field string, values []T) []interface{} {
	if len(values) == 0 {
		return clauses
	}
	return append(clauses, Query{"terms": Query{field: values}})
}

// appendNestedTerms adds a nested terms clause under path when values is non-empty.
func appendNestedTerms[T any](clauses []interface{}, path, field string, values []T) []interface{} {
	if len(values) == 0 {
		return clauses
	}
	return append(clauses, Query{
		"nested": Query{
			"path":  path,
			"query": Query{"terms": Query{field: values}},
		},
	})
}

// formatCoord renders a float the way the geo_point string form expects.
func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// BoundingBox converts a [left, bottom, right, top] boundary into a
// geo_bounding_box body on geolocation.location.
func BoundingBox(b []float64) Query {
	return Query{
		"geo_bounding_box": Query{
			"geolocation.location": Query{
				"top_left":     formatCoord(b[3]) + ", " + formatCoord(b[0]),
				"bottom_right": formatCoord(b[1]) + ", " + formatCoord(b[2]),
			},
		},
	}
}

// FilterClauses returns the bool.filter list for f. Order is stable:
// boundaries, vin, make, model, year, software, trouble codes, anomalies.
func FilterClauses(f Filters) []interface{} {
	clauses := []interface{}{}

	if len(f.Boundaries) > 0 {
		should := make([]interface{}, 0, len(f.Boundaries))
		for _, b := range f.Boundaries {
			if len(b) != 4 {
				continue
			}
			should = append(should, BoundingBox(b))
		}
		// An empty should list matches no documents.
		if len(should) > 0 {
			clauses = append(clauses, Query{"bool": Query{"should": should}})
		}
	}

	clauses = appendTerms(clauses, "vin.keyword", f.Vehicle.VIN)
	clauses = appendTerms(clauses, "attributes.make.keyword", f.Vehicle.Make)
	clauses = appendTerms(clauses, "attributes.model.keyword", f.Vehicle.Model)
	clauses = appendTerms(clauses, "attributes.modelyear", f.Vehicle.Year)

	if sw := f.SoftwareVersion(); sw != "" {
		clauses = appendNestedTerms(clauses, "devices", "devices.softwareversion", []string{sw})
	}
	clauses = appendNestedTerms(clauses, "trouble_codes", "trouble_codes.code", f.TroubleCodes)
	clauses = appendNestedTerms(clauses, "anomalies", "anomalies.anomaly_type", f.Anomalies)

	return clauses
}

// FilterAggregations returns the vehicle count, trouble code and anomaly
// aggregations attached to every vehicle query.
func FilterAggregations() Query {
	return Query{
		AggVehicleCount: Query{
			"cardinality": Query{"field": "vin.keyword"},
		},
		AggDTCCodes: Query{
			"nested": Query{"path": "trouble_codes"},
			"aggregations": Query{
				"trouble_codes": Query{"terms": Query{"field": "trouble_codes.code"}},
			},
		},
		AggAnomalyCodes: Query{
			"nested": Query{"path": "anomalies"},
			"aggregations": Query{
				"anomalies": Query{"terms": Query{"field": "anomalies.anomaly_type"}},
			},
		},
	}
}

// GeotilePrecision maps a map zoom level to a geotile_grid precision.
func GeotilePrecision(zoom float64) int {
	p := int(math.Floor(zoom)) + 7
	if p > maxGeotilePrecision {
		return maxGeotilePrecision
	}
	if p < 0 {
		return 0
	}
	return p
}

// AggregatedQuery builds the paged map query. With a zoom level set, each
// boundary i gets an aggregation named "i" holding geotile clusters.
func AggregatedQuery(req AggregateRequest) Query {
	aggs := FilterAggregations()

	if req.Clusters.Zoom != nil {
		precision := GeotilePrecision(*req.Clusters.Zoom)
		for i, b := range req.Filters.Boundaries {
			if len(b) != 4 {
				continue
			}
			aggs[strconv.Itoa(i)] = Query{
				"filter": BoundingBox(b),
				"aggregations": Query{
					"zoom": Query{
						"geotile_grid": Query{
							"field":     "geolocation.location",
							"precision": precision,
						},
						"aggregations": Query{
							"vin": Query{"terms": Query{"field": "vin.keyword"}},
						},
					},
				},
			}
		}
	}

	return Query{
		"size":         req.Pagination.MaxResults,
		"from":         req.Pagination.Offset,
		"query":        Query{"bool": Query{"filter": FilterClauses(req.Filters)}},
		"aggregations": aggs,
	}
}

// FilteredQuery builds the unpaged vehicle list query.
func FilteredQuery(req FilterRequest, size int) Query {
	if size <= 0 {
		size = DefaultListSize
	}
	return Query{
		"size":         size,
		"query":        Query{"bool": Query{"filter": FilterClauses(req.Filters)}},
		"aggregations": FilterAggregations(),
	}
}

// SingleVehicleQuery selects one vehicle by VIN.
func SingleVehicleQuery(vin string) Query {
	return Query{
		"query":        Query{"term": Query{"vin.keyword": vin}},
		"aggregations": FilterAggregations(),
	}
}

// timelineQuery is shared by the trip and event history queries.
func timelineQuery(vin string, req TimelineRequest) Query {
	filter := []interface{}{
		Query{"term": Query{"vin.keyword": vin}},
	}
	if req.Filters.Dates.Set() {
		filter = append(filter, Query{
			"range": Query{
				"sendtimestamp": Query{
					"gte": req.Filters.Dates.Start,
					"lte": req.Filters.Dates.End,
				},
			},
		})
	}
	return Query{
		"size":  req.Pagination.MaxResults,
		"from":  req.Pagination.Offset,
		"query": Query{"bool": Query{"filter": filter}},
		"sort":  []interface{}{Query{"sendtimestamp": Query{"order": "desc"}}},
	}
}

// TripsQuery pages through a vehicle's trip summaries, newest first.
func TripsQuery(vin string, req TimelineRequest) Query {
	return timelineQuery(vin, req)
}

// EventsQuery pages through a vehicle's events, newest first.
func EventsQuery(vin string, req TimelineRequest) Query {
	return timelineQuery(vin, req)
}

// TripByIDQuery finds a trip summary by trip ID.
func TripByIDQuery(tripID string) Query {
	return Query{
		"size": 1,
		"query": Query{
			"bool": Query{
				"filter": Query{"term": Query{"tripid.keyword": tripID}},
			},
		},
	}
}

// RouteQuery selects the telemetry points recorded during a trip, oldest first.
func RouteQuery(vin, tripID, start, end string) Query {
	return Query{
		"size": DefaultListSize,
		"query": Query{
			"bool": Query{
				"filter": []interface{}{
					Query{"term": Query{"vin.keyword": vin}},
					Query{"term": Query{"tripid.keyword": tripID}},
					Query{"range": Query{"creationtimestamp": Query{"gte": start, "lte": end}}},
				},
			},
		},
		"sort": []interface{}{Query{"creationtimestamp": Query{"order": "asc"}}},
	}
}

// DeviceVinQuery finds the vehicles carrying any of deviceIDs.
func DeviceVinQuery(deviceIDs []string) Query {
	return Query{
		"size":    DefaultListSize,
		"_source": []string{"devices"},
		"query": Query{
			"nested": Query{
				"path":  "devices",
				"query": Query{"terms": Query{"devices.deviceid": deviceIDs}},
			},
		},
	}
}
