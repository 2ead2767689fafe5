// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package dashboard

import (
	"fmt"
	"time"

	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

type query = vehicledata.Query

// timestampLayout is how telemetry sendtimestamp values are written.
// Parsing accepts an optional fractional second.
const timestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp parses a sendtimestamp, with or without fraction or zone.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// LocationClause turns location options into one bool.should of polygons.
// It returns nil when no location is selected.
func LocationClause(options []LocationOption) query {
	if len(options) == 0 {
		return nil
	}
	should := make([]interface{}, 0, len(options))
	for _, o := range options {
		topLong, leftLat, botLong, rightLat := o.BBox[0], o.BBox[1], o.BBox[2], o.BBox[3]
		points := [][2]float64{
			{topLong, leftLat},
			{topLong, rightLat},
			{botLong, rightLat},
			{botLong, leftLat},
			{topLong, leftLat},
		}
		should = append(should, query{
			"bool": query{
				"must": []interface{}{
					query{"geo_polygon": query{"geolocation.location": query{"points": points}}},
				},
			},
		})
	}
	return query{"bool": query{"should": should}}
}

// boolQuery assembles filter and must lists, adding the location clause when set.
func boolQuery(filter []interface{}, location query) query {
	must := []interface{}{}
	if location != nil {
		must = append(must, location)
	}
	return query{"bool": query{"filter": filter, "must": must}}
}

func vinTerms(vins []string) query {
	return query{"terms": query{"vin.keyword": vins}}
}

// latestPageQuery selects one page of vehicles from the latest index.
func latestPageQuery(f Filters, pageSize int) query {
	return query{
		"size":    pageSize,
		"from":    f.LastSeenOffset * pageSize,
		"_source": []string{"vin", "sendtimestamp"},
		"query":   boolQuery([]interface{}{}, LocationClause(f.Location.Options)),
		"sort":    []interface{}{query{"vin.keyword": query{"order": "asc"}}},
	}
}

// latestVinQuery selects one picked vehicle from the latest index.
func latestVinQuery(vin string, location query) query {
	return query{
		"size":    1,
		"_source": []string{"vin", "sendtimestamp"},
		"query":   boolQuery([]interface{}{vinTerms([]string{vin})}, location),
	}
}

// currentQuery fetches the latest documents of vins.
func currentQuery(vins []string, location query) query {
	return query{
		"size":  vehicledata.DefaultListSize,
		"query": boolQuery([]interface{}{vinTerms(vins)}, location),
	}
}

// historyFilter restricts cardata to one vehicle over [ts - lookback, ts].
func historyFilter(vin, ts string, lookback time.Duration) ([]interface{}, error) {
	t, err := ParseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		vinTerms([]string{vin}),
		query{"range": query{"sendtimestamp": query{
			"gte": t.Add(-lookback).Format(timestampLayout),
			"lte": ts,
		}}},
	}, nil
}

// hourlyQuery buckets a vehicle's history by hour, newest first, keeping
// the latest document of each hour.
func hourlyQuery(filter []interface{}) query {
	return query{
		"size":  0,
		"query": query{"bool": query{"filter": filter}},
		"aggregations": query{
			"byHour": query{
				"date_histogram": query{
					"field":             "sendtimestamp",
					"calendar_interval": "1h",
					"min_doc_count":     1,
					"order":             query{"_key": "desc"},
				},
				"aggregations": query{
					"doc": query{
						"top_hits": query{
							"size": 1,
							"sort": []interface{}{query{"sendtimestamp": query{"order": "desc"}}},
						},
					},
				},
			},
		},
	}
}

// chargeQuery finds the highest and lowest state of charge in a window.
func chargeQuery(filter []interface{}) query {
	topHit := func(order string) query {
		return query{
			"top_hits": query{
				"size":    1,
				"_source": []string{"vin", "stateofcharge", "sendtimestamp"},
				"sort":    []interface{}{query{"stateofcharge": query{"order": order}}},
			},
		}
	}
	return query{
		"size":  0,
		"query": query{"bool": query{"filter": filter}},
		"aggregations": query{
			"max_charge": topHit("desc"),
			"min_charge": topHit("asc"),
		},
	}
}
