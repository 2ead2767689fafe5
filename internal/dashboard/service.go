// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// Searcher runs a query against one index.
type Searcher interface {
	Search(ctx context.Context, index string, query interface{}) (*search.Response, error)
}

// Indexes names the indexes the dashboard reads.
type Indexes struct {
	Latest  string
	CarData string
}

// Config holds dashboard defaults.
type Config struct {
	PageSize            int
	Lookback            time.Duration
	EfficiencyThreshold float64
}

// Service computes dashboard aggregates over recent telemetry.
type Service struct {
	searcher Searcher
	indexes  Indexes
	cfg      Config
}

// NewService creates a dashboard service.
func NewService(searcher Searcher, indexes Indexes, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 15
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.EfficiencyThreshold <= 0 {
		cfg.EfficiencyThreshold = 35
	}
	return &Service{searcher: searcher, indexes: indexes, cfg: cfg}
}

// Result is the envelope shared by every dashboard aggregate.
// TotalCount is the number of vehicles in the current snapshot.
type Result[T any] struct {
	TotalCount int `json:"total_count"`
	Data       []T `json:"data"`
}

func emptyResult[T any]() *Result[T] {
	return &Result[T]{Data: []T{}}
}

// VehicleTimestamp is the last report time of one vehicle.
type VehicleTimestamp struct {
	VIN       string
	Timestamp string
}

type tires struct {
	FrontLeft  vehicledata.Number `json:"pressure_front_left"`
	FrontRight vehicledata.Number `json:"pressure_front_right"`
	RearLeft   vehicledata.Number `json:"pressure_rear_left"`
	RearRight  vehicledata.Number `json:"pressure_rear_right"`
}

// psi returns front-left, front-right, rear-left, rear-right in psi.
func (t tires) psi() [4]float64 {
	return [4]float64{
		t.FrontLeft.Truncate() * vehicledata.KPaToPSI,
		t.FrontRight.Truncate() * vehicledata.KPaToPSI,
		t.RearLeft.Truncate() * vehicledata.KPaToPSI,
		t.RearRight.Truncate() * vehicledata.KPaToPSI,
	}
}

type telemetryDoc struct {
	VIN               string              `json:"vin"`
	SendTimestamp     string              `json:"sendtimestamp"`
	StateOfCharge     vehicledata.Number  `json:"stateofcharge"`
	ElectricEnergyIn  *vehicledata.Number `json:"electricenergyin"`
	ElectricEnergyOut *vehicledata.Number `json:"electricenergyout"`
	Odometer          struct {
		Metres vehicledata.Number `json:"metres"`
	} `json:"odometer"`
	Tires *tires `json:"tires"`
}

func energy(n *vehicledata.Number) float64 {
	if n == nil {
		return 0
	}
	return n.Float()
}

type topHits struct {
	Hits struct {
		Hits []search.Hit `json:"hits"`
	} `json:"hits"`
}

// first decodes the first hit, reporting false when there is none.
func (t topHits) first() (telemetryDoc, bool, error) {
	var doc telemetryDoc
	if len(t.Hits.Hits) == 0 {
		return doc, false, nil
	}
	if err := t.Hits.Hits[0].Decode(&doc); err != nil {
		return doc, false, err
	}
	return doc, true, nil
}

type hourlyBuckets struct {
	Buckets []struct {
		Doc topHits `json:"doc"`
	} `json:"buckets"`
}

func (s *Service) pageSize(f Filters) int {
	if f.PaginationCount > 0 {
		return f.PaginationCount
	}
	return s.cfg.PageSize
}

// LatestTimestamps resolves the vehicles on the requested page and their
// last report times. With no VINs picked it pages through the latest index,
// otherwise it looks up each picked VIN.
func (s *Service) LatestTimestamps(ctx context.Context, f Filters) ([]VehicleTimestamp, error) {
	location := LocationClause(f.Location.Options)
	var out []VehicleTimestamp

	if len(f.Vehicle.VIN.Options) == 0 {
		resp, err := s.searcher.Search(ctx, s.indexes.Latest, latestPageQuery(f, s.pageSize(f)))
		if err != nil {
			return nil, fmt.Errorf("latest vehicle page: %w", err)
		}
		for _, h := range resp.Hits.Hits {
			var doc telemetryDoc
			if err := h.Decode(&doc); err != nil {
				return nil, err
			}
			out = append(out, VehicleTimestamp{VIN: doc.VIN, Timestamp: doc.SendTimestamp})
		}
		return out, nil
	}

	for _, vin := range f.VINs() {
		resp, err := s.searcher.Search(ctx, s.indexes.Latest, latestVinQuery(vin, location))
		if err != nil {
			return nil, fmt.Errorf("latest report for %s: %w", vin, err)
		}
		if len(resp.Hits.Hits) == 0 {
			continue
		}
		var doc telemetryDoc
		if err := resp.Hits.Hits[0].Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, VehicleTimestamp{VIN: vin, Timestamp: doc.SendTimestamp})
	}
	return out, nil
}

// current returns the latest document of every vehicle, in hit order.
func (s *Service) current(ctx context.Context, vts []VehicleTimestamp, f Filters) ([]telemetryDoc, error) {
	vins := make([]string, 0, len(vts))
	for _, vt := range vts {
		vins = append(vins, vt.VIN)
	}

	resp, err := s.searcher.Search(ctx, s.indexes.Latest, currentQuery(vins, LocationClause(f.Location.Options)))
	if err != nil {
		return nil, fmt.Errorf("current snapshot: %w", err)
	}

	docs := make([]telemetryDoc, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var doc telemetryDoc
		if err := h.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// history runs one windowed query per vehicle against cardata.
func (s *Service) history(ctx context.Context, vts []VehicleTimestamp, build func([]interface{}) vehicledata.Query, each func(vin string, resp *search.Response) error) error {
	for _, vt := range vts {
		filter, err := historyFilter(vt.VIN, vt.Timestamp, s.cfg.Lookback)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("vin", vt.VIN).Msg("Skipping vehicle with unreadable timestamp")
			continue
		}
		resp, err := s.searcher.Search(ctx, s.indexes.CarData, build(filter))
		if err != nil {
			return fmt.Errorf("history for %s: %w", vt.VIN, err)
		}
		if err := each(vt.VIN, resp); err != nil {
			return err
		}
	}
	return nil
}

// RateOfChange is the mean percentage change between consecutive readings,
// newest first: mean((p[i]-p[i+1]) / p[i+1] * 100). A zero divisor counts as
// no change.
func RateOfChange(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < len(series)-1; i++ {
		if series[i+1] == 0 {
			continue
		}
		sum += (series[i] - series[i+1]) / series[i+1] * 100
	}
	return sum / float64(len(series)-1)
}

// TirePressureRow is the current pressure and hourly rate of change per tyre.
type TirePressureRow struct {
	VIN                string  `json:"vin"`
	PressureFrontLeft  float64 `json:"pressure_front_left"`
	PressureFrontRight float64 `json:"pressure_front_right"`
	PressureRearLeft   float64 `json:"pressure_rear_left"`
	PressureRearRight  float64 `json:"pressure_rear_right"`
	ROCFrontLeft       float64 `json:"roc_front_left"`
	ROCFrontRight      float64 `json:"roc_front_right"`
	ROCRearLeft        float64 `json:"roc_rear_left"`
	ROCRearRight       float64 `json:"roc_rear_right"`
}

// TirePressure reports current tyre pressure and its rate of change.
func (s *Service) TirePressure(ctx context.Context, req Request) (*Result[TirePressureRow], error) {
	vts, err := s.LatestTimestamps(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(vts) == 0 {
		return emptyResult[TirePressureRow](), nil
	}

	rocs := make(map[string][4]float64, len(vts))
	err = s.history(ctx, vts, hourlyQuery, func(vin string, resp *search.Response) error {
		var agg hourlyBuckets
		if _, err := resp.Aggregation("byHour", &agg); err != nil {
			return err
		}
		if len(agg.Buckets) == 0 {
			return nil
		}

		var series [4][]float64
		for _, b := range agg.Buckets {
			doc, ok, err := b.Doc.first()
			if err != nil {
				return err
			}
			if !ok || doc.Tires == nil {
				continue
			}
			p := doc.Tires.psi()
			for i := range series {
				series[i] = append(series[i], p[i])
			}
		}

		var roc [4]float64
		for i := range series {
			roc[i] = RateOfChange(series[i])
		}
		rocs[vin] = roc
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs, err := s.current(ctx, vts, req.Filters)
	if err != nil {
		return nil, err
	}

	result := &Result[TirePressureRow]{TotalCount: len(docs), Data: []TirePressureRow{}}
	for _, doc := range docs {
		roc, ok := rocs[doc.VIN]
		if !ok || doc.Tires == nil {
			continue
		}
		p := doc.Tires.psi()
		result.Data = append(result.Data, TirePressureRow{
			VIN:                doc.VIN,
			PressureFrontLeft:  p[0],
			PressureFrontRight: p[1],
			PressureRearLeft:   p[2],
			PressureRearRight:  p[3],
			ROCFrontLeft:       roc[0],
			ROCFrontRight:      roc[1],
			ROCRearLeft:        roc[2],
			ROCRearRight:       roc[3],
		})
	}
	return result, nil
}

// BatteryRow is the state of charge range over the lookback window.
type BatteryRow struct {
	VIN               string  `json:"vin"`
	MaxSOC            float64 `json:"max_soc"`
	MinSOC            float64 `json:"min_soc"`
	CurrentSOC        float64 `json:"current_soc"`
	ElectricEnergyIn  float64 `json:"electricenergyin"`
	ElectricEnergyOut float64 `json:"electricenergyout"`
}

type chargeRange struct {
	max, min telemetryDoc
}

// chargeRanges reads max_charge and min_charge for every vehicle.
func (s *Service) chargeRanges(ctx context.Context, vts []VehicleTimestamp) (map[string]chargeRange, error) {
	ranges := make(map[string]chargeRange, len(vts))
	err := s.history(ctx, vts, chargeQuery, func(vin string, resp *search.Response) error {
		var maxAgg, minAgg topHits
		if _, err := resp.Aggregation("max_charge", &maxAgg); err != nil {
			return err
		}
		if _, err := resp.Aggregation("min_charge", &minAgg); err != nil {
			return err
		}
		maxDoc, ok, err := maxAgg.first()
		if err != nil || !ok {
			return err
		}
		minDoc, _, err := minAgg.first()
		if err != nil {
			return err
		}
		ranges[vin] = chargeRange{max: maxDoc, min: minDoc}
		return nil
	})
	return ranges, err
}

// Battery reports the state of charge range for each vehicle.
func (s *Service) Battery(ctx context.Context, req Request) (*Result[BatteryRow], error) {
	vts, err := s.LatestTimestamps(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(vts) == 0 {
		return emptyResult[BatteryRow](), nil
	}

	ranges, err := s.chargeRanges(ctx, vts)
	if err != nil {
		return nil, err
	}
	docs, err := s.current(ctx, vts, req.Filters)
	if err != nil {
		return nil, err
	}

	result := &Result[BatteryRow]{TotalCount: len(docs), Data: []BatteryRow{}}
	for _, doc := range docs {
		r, ok := ranges[doc.VIN]
		if !ok {
			continue
		}
		result.Data = append(result.Data, BatteryRow{
			VIN:               doc.VIN,
			MaxSOC:            r.max.StateOfCharge.Float(),
			MinSOC:            r.min.StateOfCharge.Float(),
			CurrentSOC:        doc.StateOfCharge.Float(),
			ElectricEnergyIn:  energy(doc.ElectricEnergyIn),
			ElectricEnergyOut: energy(doc.ElectricEnergyOut),
		})
	}
	return result, nil
}

// NotChargingRow is the time since a vehicle last peaked in charge.
type NotChargingRow struct {
	VIN               string  `json:"vin"`
	Hours             float64 `json:"hours"`
	CurrentSOC        float64 `json:"current_soc"`
	ElectricEnergyIn  float64 `json:"electricenergyin"`
	ElectricEnergyOut float64 `json:"electricenergyout"`
}

// HoursSince returns the non-negative hours from peak to now.
func HoursSince(peak, now time.Time) float64 {
	return math.Max(0, now.Sub(peak).Hours())
}

// NotCharging reports how long each vehicle has gone without charging.
func (s *Service) NotCharging(ctx context.Context, req Request) (*Result[NotChargingRow], error) {
	vts, err := s.LatestTimestamps(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(vts) == 0 {
		return emptyResult[NotChargingRow](), nil
	}

	ranges, err := s.chargeRanges(ctx, vts)
	if err != nil {
		return nil, err
	}
	docs, err := s.current(ctx, vts, req.Filters)
	if err != nil {
		return nil, err
	}

	result := &Result[NotChargingRow]{TotalCount: len(docs), Data: []NotChargingRow{}}
	for _, doc := range docs {
		r, ok := ranges[doc.VIN]
		if !ok {
			continue
		}
		now, err := ParseTimestamp(doc.SendTimestamp)
		if err != nil {
			return nil, err
		}
		peak, err := ParseTimestamp(r.max.SendTimestamp)
		if err != nil {
			return nil, err
		}
		result.Data = append(result.Data, NotChargingRow{
			VIN:               doc.VIN,
			Hours:             HoursSince(peak, now),
			CurrentSOC:        doc.StateOfCharge.Float(),
			ElectricEnergyIn:  energy(doc.ElectricEnergyIn),
			ElectricEnergyOut: energy(doc.ElectricEnergyOut),
		})
	}
	return result, nil
}

// EfficiencyRow is energy used per 100 km over the lookback window.
type EfficiencyRow struct {
	VIN               string  `json:"vin"`
	Efficiency        float64 `json:"efficiency"`
	CurrentSOC        float64 `json:"current_soc"`
	ElectricEnergyIn  float64 `json:"electricenergyin"`
	ElectricEnergyOut float64 `json:"electricenergyout"`
}

type efficiencySample struct {
	efficiency float64
	energyIn   float64
	energyOut  float64
}

// efficiencyFromBuckets computes (max(out)-min(out))*100 / (max(d)-min(d))
// over hourly readings. energyIn is the newest bucket's reading.
func efficiencyFromBuckets(docs []telemetryDoc) (efficiencySample, bool) {
	var outs, dists []float64
	var in float64
	seenIn := false
	for _, doc := range docs {
		if doc.ElectricEnergyIn == nil || doc.ElectricEnergyOut == nil {
			continue
		}
		outs = append(outs, doc.ElectricEnergyOut.Truncate())
		dists = append(dists, doc.Odometer.Metres.Truncate()/1000)
		if !seenIn {
			in = doc.ElectricEnergyIn.Float()
			seenIn = true
		}
	}
	if len(outs) == 0 {
		return efficiencySample{}, false
	}

	outMin, outMax := minMax(outs)
	dMin, dMax := minMax(dists)

	sample := efficiencySample{energyIn: in, energyOut: outMax}
	if span := dMax - dMin; span > 0 {
		sample.efficiency = (outMax - outMin) * 100 / span
	}
	return sample, true
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Efficiency reports energy consumption per distance for each vehicle.
func (s *Service) Efficiency(ctx context.Context, req Request) (*Result[EfficiencyRow], error) {
	vts, err := s.LatestTimestamps(ctx, req.Filters)
	if err != nil {
		return nil, err
	}
	if len(vts) == 0 {
		return emptyResult[EfficiencyRow](), nil
	}

	samples := make(map[string]efficiencySample, len(vts))
	err = s.history(ctx, vts, hourlyQuery, func(vin string, resp *search.Response) error {
		var agg hourlyBuckets
		if _, err := resp.Aggregation("byHour", &agg); err != nil {
			return err
		}
		docs := make([]telemetryDoc, 0, len(agg.Buckets))
		for _, b := range agg.Buckets {
			doc, ok, err := b.Doc.first()
			if err != nil {
				return err
			}
			if ok {
				docs = append(docs, doc)
			}
		}
		if sample, ok := efficiencyFromBuckets(docs); ok {
			samples[vin] = sample
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	docs, err := s.current(ctx, vts, req.Filters)
	if err != nil {
		return nil, err
	}

	result := &Result[EfficiencyRow]{TotalCount: len(docs), Data: []EfficiencyRow{}}
	for _, doc := range docs {
		sample, ok := samples[doc.VIN]
		if !ok {
			continue
		}
		result.Data = append(result.Data, EfficiencyRow{
			VIN:               doc.VIN,
			Efficiency:        sample.efficiency,
			CurrentSOC:        doc.StateOfCharge.Float(),
			ElectricEnergyIn:  sample.energyIn,
			ElectricEnergyOut: sample.energyOut,
		})
	}
	return result, nil
}
