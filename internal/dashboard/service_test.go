// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package dashboard

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/search"
)

type searchCall struct {
	index string
	query interface{}
}

type fakeSearcher struct {
	responses []string
	calls     []searchCall
}

func (f *fakeSearcher) Search(_ context.Context, index string, query interface{}) (*search.Response, error) {
	f.calls = append(f.calls, searchCall{index: index, query: query})
	if len(f.calls) > len(f.responses) {
		return nil, errors.New("unexpected search call")
	}
	var resp search.Response
	if err := json.Unmarshal([]byte(f.responses[len(f.calls)-1]), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

var testIndexes = Indexes{Latest: "latest_telemetry", CarData: "cardata"}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRateOfChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		series []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single reading", []float64{32}, 0},
		{"constant", []float64{30, 30, 30, 30}, 0},
		{"rising", []float64{110, 100}, 10},
		{"zero divisor", []float64{5, 0}, 0},
		{"mixed", []float64{110, 100, 100}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RateOfChange(tt.series); !almostEqual(got, tt.want) {
				t.Errorf("RateOfChange(%v) = %v, want %v", tt.series, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2020-10-05T10:00:00", time.Date(2020, 10, 5, 10, 0, 0, 0, time.UTC), false},
		{"2020-10-05T10:00:00.250", time.Date(2020, 10, 5, 10, 0, 0, 250000000, time.UTC), false},
		{"2020-10-05T10:00:00Z", time.Date(2020, 10, 5, 10, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLocationClause(t *testing.T) {
	t.Parallel()

	if LocationClause(nil) != nil {
		t.Fatal("LocationClause(nil) should be nil")
	}

	clause := LocationClause([]LocationOption{{BBox: [4]float64{1, 2, 3, 4}}})
	should := clause["bool"].(query)["should"].([]interface{})
	if len(should) != 1 {
		t.Fatalf("should clauses = %d, want 1", len(should))
	}
	must := should[0].(query)["bool"].(query)["must"].([]interface{})
	points := must[0].(query)["geo_polygon"].(query)["geolocation.location"].(query)["points"].([][2]float64)
	want := [][2]float64{{1, 2}, {1, 4}, {3, 4}, {3, 2}, {1, 2}}
	if len(points) != len(want) {
		t.Fatalf("points = %v, want %v", points, want)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("points[%d] = %v, want %v", i, points[i], want[i])
		}
	}
}

const pageResponse = `{"hits": {"hits": [
	{"_source": {"vin": "VIN1", "sendtimestamp": "2020-10-05T13:30:00"}}
]}}`

func TestLatestTimestampsPaging(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{responses: []string{pageResponse}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.LatestTimestamps(context.Background(), Filters{LastSeenOffset: 2, PaginationCount: 5})
	if err != nil {
		t.Fatalf("LatestTimestamps() error = %v", err)
	}
	if len(got) != 1 || got[0].VIN != "VIN1" || got[0].Timestamp != "2020-10-05T13:30:00" {
		t.Errorf("LatestTimestamps() = %+v", got)
	}

	q := fs.calls[0].query.(query)
	if q["size"] != 5 || q["from"] != 10 {
		t.Errorf("page query size/from = %v/%v, want 5/10", q["size"], q["from"])
	}
	if fs.calls[0].index != "latest_telemetry" {
		t.Errorf("index = %q", fs.calls[0].index)
	}
}

func TestTirePressure(t *testing.T) {
	t.Parallel()

	history := `{"hits": {"hits": []}, "aggregations": {"byHour": {"buckets": [
		{"doc": {"hits": {"hits": [{"_source": {"vin": "VIN1", "tires": {
			"pressure_front_left": 250, "pressure_front_right": 240,
			"pressure_rear_left": 230, "pressure_rear_right": 230}}}]}}},
		{"doc": {"hits": {"hits": [{"_source": {"vin": "VIN1", "tires": {
			"pressure_front_left": 240, "pressure_front_right": 240,
			"pressure_rear_left": 230, "pressure_rear_right": 0}}}]}}}
	]}}}`
	current := `{"hits": {"hits": [
		{"_source": {"vin": "VIN1", "sendtimestamp": "2020-10-05T13:30:00", "tires": {
			"pressure_front_left": 250.9, "pressure_front_right": 240,
			"pressure_rear_left": 230, "pressure_rear_right": 230}}},
		{"_source": {"vin": "VIN2", "sendtimestamp": "2020-10-05T13:30:00"}}
	]}}`

	fs := &fakeSearcher{responses: []string{pageResponse, history, current}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.TirePressure(context.Background(), Request{})
	if err != nil {
		t.Fatalf("TirePressure() error = %v", err)
	}
	if got.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", got.TotalCount)
	}
	if len(got.Data) != 1 {
		t.Fatalf("rows = %d, want 1", len(got.Data))
	}

	row := got.Data[0]
	if !almostEqual(row.PressureFrontLeft, 250*0.145038) {
		t.Errorf("PressureFrontLeft = %v", row.PressureFrontLeft)
	}
	if !almostEqual(row.ROCFrontLeft, 10.0/240*100) {
		t.Errorf("ROCFrontLeft = %v", row.ROCFrontLeft)
	}
	if row.ROCFrontRight != 0 || row.ROCRearRight != 0 {
		t.Errorf("ROC = %v/%v, want 0/0", row.ROCFrontRight, row.ROCRearRight)
	}
	if fs.calls[1].index != "cardata" {
		t.Errorf("history index = %q, want cardata", fs.calls[1].index)
	}
}

func TestTirePressureNoVehicles(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{responses: []string{`{"hits": {"hits": []}}`}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.TirePressure(context.Background(), Request{})
	if err != nil {
		t.Fatalf("TirePressure() error = %v", err)
	}
	if got.TotalCount != 0 || got.Data == nil || len(got.Data) != 0 {
		t.Errorf("TirePressure() = %+v, want empty result", got)
	}
	if len(fs.calls) != 1 {
		t.Errorf("search calls = %d, want 1", len(fs.calls))
	}
}

const chargeResponse = `{"hits": {"hits": []}, "aggregations": {
	"max_charge": {"hits": {"hits": [{"_source": {"vin": "VIN1", "stateofcharge": 90, "sendtimestamp": "2020-10-05T10:00:00"}}]}},
	"min_charge": {"hits": {"hits": [{"_source": {"vin": "VIN1", "stateofcharge": "40.5", "sendtimestamp": "2020-10-05T12:00:00"}}]}}
}}`

const currentBattery = `{"hits": {"hits": [
	{"_source": {"vin": "VIN1", "sendtimestamp": "2020-10-05T13:30:00", "stateofcharge": 55,
		"electricenergyin": 1.5, "electricenergyout": 12}}
]}}`

func vinRequest(vins ...string) Request {
	var req Request
	for _, v := range vins {
		req.Filters.Vehicle.VIN.Options = append(req.Filters.Vehicle.VIN.Options, VINOption{Label: v})
	}
	return req
}

func TestBattery(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{responses: []string{pageResponse, chargeResponse, currentBattery}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.Battery(context.Background(), vinRequest("VIN1"))
	if err != nil {
		t.Fatalf("Battery() error = %v", err)
	}
	want := BatteryRow{VIN: "VIN1", MaxSOC: 90, MinSOC: 40.5, CurrentSOC: 55, ElectricEnergyIn: 1.5, ElectricEnergyOut: 12}
	if got.TotalCount != 1 || len(got.Data) != 1 || got.Data[0] != want {
		t.Errorf("Battery() = %+v, want row %+v", got, want)
	}
	if fs.calls[0].query.(query)["size"] != 1 {
		t.Errorf("picked vin lookup should fetch one document")
	}
}

func TestNotCharging(t *testing.T) {
	t.Parallel()

	fs := &fakeSearcher{responses: []string{pageResponse, chargeResponse, currentBattery}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.NotCharging(context.Background(), Request{})
	if err != nil {
		t.Fatalf("NotCharging() error = %v", err)
	}
	if len(got.Data) != 1 {
		t.Fatalf("rows = %d, want 1", len(got.Data))
	}
	if !almostEqual(got.Data[0].Hours, 3.5) {
		t.Errorf("Hours = %v, want 3.5", got.Data[0].Hours)
	}
}

func TestHoursSinceClamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2020, 10, 5, 10, 0, 0, 0, time.UTC)
	if got := HoursSince(now.Add(time.Hour), now); got != 0 {
		t.Errorf("HoursSince(future) = %v, want 0", got)
	}
}

func TestEfficiency(t *testing.T) {
	t.Parallel()

	history := `{"hits": {"hits": []}, "aggregations": {"byHour": {"buckets": [
		{"doc": {"hits": {"hits": [{"_source": {"vin": "VIN1", "electricenergyin": 5.7, "electricenergyout": 120.4, "odometer": {"metres": 20500}}}]}}},
		{"doc": {"hits": {"hits": [{"_source": {"vin": "VIN1", "odometer": {"metres": 15000}}}]}}},
		{"doc": {"hits": {"hits": [{"_source": {"vin": "VIN1", "electricenergyin": 4, "electricenergyout": 100, "odometer": {"metres": 10000}}}]}}}
	]}}}`

	fs := &fakeSearcher{responses: []string{pageResponse, history, currentBattery}}
	svc := NewService(fs, testIndexes, Config{})

	got, err := svc.Efficiency(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Efficiency() error = %v", err)
	}
	if len(got.Data) != 1 {
		t.Fatalf("rows = %d, want 1", len(got.Data))
	}
	row := got.Data[0]
	if !almostEqual(row.Efficiency, 20*100/10.5) {
		t.Errorf("Efficiency = %v", row.Efficiency)
	}
	if row.ElectricEnergyIn != 5.7 || row.ElectricEnergyOut != 120 || row.CurrentSOC != 55 {
		t.Errorf("row = %+v", row)
	}
}

func TestEfficiencyNoDistance(t *testing.T) {
	t.Parallel()

	sample, ok := efficiencyFromBuckets([]telemetryDoc{{}})
	if ok {
		t.Fatalf("docs without energy readings should yield no sample, got %+v", sample)
	}
}
