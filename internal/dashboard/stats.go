// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/fleetmanager/internal/search"
)

// MaxWeeks bounds a single stats request.
const MaxWeeks = 52

// WeekStats summarises per-vehicle efficiency for one week. Everything but
// Week is omitted when the week had no data.
type WeekStats struct {
	Week            int      `json:"week"`
	Q1              *float64 `json:"q1,omitempty"`
	Median          *float64 `json:"median,omitempty"`
	Q3              *float64 `json:"q3,omitempty"`
	Average         *float64 `json:"average,omitempty"`
	TP90            *float64 `json:"tp90,omitempty"`
	DistanceAverage *float64 `json:"distance_average,omitempty"`
	Occurences      *int     `json:"occurences,omitempty"`
}

// StatsResult wraps the weekly series.
type StatsResult struct {
	Data []WeekStats `json:"data"`
}

// WeekStart returns the Monday that begins week of year, numbering weeks the
// way strftime %W does: week 1 starts on the first Monday of the year.
func WeekStart(year, week int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(jan1.Weekday()) + 7) % 7
	firstMonday := jan1.AddDate(0, 0, offset)
	return firstMonday.AddDate(0, 0, (week-1)*7)
}

func weekQuery(start, end time.Time) query {
	return query{
		"size": 0,
		"query": query{"bool": query{"must": []interface{}{
			query{"range": query{"sendtimestamp": query{
				"gte": start.Format(timestampLayout),
				"lt":  end.Format(timestampLayout),
			}}},
		}}},
		"aggregations": query{
			"vin_id": query{
				"terms": query{"field": "vin.keyword", "size": 10000},
				"aggregations": query{
					"energy_max":   query{"max": query{"field": "electricenergyout"}},
					"energy_min":   query{"min": query{"field": "electricenergyout"}},
					"odometer_max": query{"max": query{"field": "odometer.metres"}},
					"odometer_min": query{"min": query{"field": "odometer.metres"}},
					"distance": query{"bucket_script": query{
						"buckets_path": query{"omax": "odometer_max", "omin": "odometer_min"},
						"script":       "params.omax - params.omin",
					}},
					"efficiency": query{"bucket_script": query{
						"buckets_path": query{
							"emax": "energy_max", "emin": "energy_min",
							"omax": "odometer_max", "omin": "odometer_min",
						},
						"script": "(params.omax - params.omin) > 0 ? (params.emax - params.emin) * 100 / (params.omax - params.omin) : 0",
					}},
				},
			},
			"efficiency_stats": query{"percentiles_bucket": query{
				"buckets_path": "vin_id>efficiency",
				"percents":     []float64{25, 50, 75},
			}},
			"efficiency_mean": query{"avg_bucket": query{"buckets_path": "vin_id>efficiency"}},
			"distance_tp90": query{"percentiles_bucket": query{
				"buckets_path": "vin_id>distance",
				"percents":     []float64{90},
			}},
			"distance_avg": query{"avg_bucket": query{"buckets_path": "vin_id>distance"}},
		},
	}
}

type valueAgg struct {
	Value *float64 `json:"value"`
}

type percentilesAgg struct {
	Values map[string]*float64 `json:"values"`
}

type vinBuckets struct {
	Buckets []struct {
		Efficiency valueAgg `json:"efficiency"`
	} `json:"buckets"`
}

// buildWeekStats reads one week's aggregations. A response without
// aggregations only carries the week number.
func buildWeekStats(week int, resp *search.Response, threshold float64) (WeekStats, error) {
	ws := WeekStats{Week: week}
	if len(resp.Aggregations) == 0 {
		return ws, nil
	}

	var effStats, tp90 percentilesAgg
	var mean, distAvg valueAgg
	var vins vinBuckets
	for name, dst := range map[string]interface{}{
		"efficiency_stats": &effStats,
		"efficiency_mean":  &mean,
		"distance_tp90":    &tp90,
		"distance_avg":     &distAvg,
		"vin_id":           &vins,
	} {
		if _, err := resp.Aggregation(name, dst); err != nil {
			return ws, fmt.Errorf("week %d aggregation %s: %w", week, name, err)
		}
	}

	ws.Q1 = effStats.Values["25.0"]
	ws.Median = effStats.Values["50.0"]
	ws.Q3 = effStats.Values["75.0"]
	ws.Average = mean.Value
	ws.TP90 = tp90.Values["90.0"]
	ws.DistanceAverage = distAvg.Value

	count := 0
	for _, b := range vins.Buckets {
		if b.Efficiency.Value != nil && *b.Efficiency.Value > threshold {
			count++
		}
	}
	ws.Occurences = &count
	return ws, nil
}

// WeeklyStats computes efficiency percentiles for consecutive weeks starting
// at startWeek of year.
func (s *Service) WeeklyStats(ctx context.Context, year, startWeek, weeks int) (*StatsResult, error) {
	if weeks <= 0 || weeks > MaxWeeks {
		return nil, fmt.Errorf("weeks must be between 1 and %d", MaxWeeks)
	}
	if startWeek < 0 || startWeek > 53 {
		return nil, errors.New("startWeek must be between 0 and 53")
	}

	result := &StatsResult{Data: make([]WeekStats, 0, weeks)}
	for i := 0; i < weeks; i++ {
		week := startWeek + i
		start := WeekStart(year, week)
		resp, err := s.searcher.Search(ctx, s.indexes.CarData, weekQuery(start, start.AddDate(0, 0, 7)))
		if err != nil {
			return nil, fmt.Errorf("week %d stats: %w", week, err)
		}
		ws, err := buildWeekStats(week, resp, s.cfg.EfficiencyThreshold)
		if err != nil {
			return nil, err
		}
		result.Data = append(result.Data, ws)
	}
	return result, nil
}
