// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError carries the message shown to the UI for a missing resource.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(msg string) error {
	return &NotFoundError{Message: msg}
}

// Searcher runs a query against one index.
type Searcher interface {
	Search(ctx context.Context, index string, query interface{}) (*search.Response, error)
}

// Indexes names the indexes the service reads.
type Indexes struct {
	Latest  string
	CarData string
	Trip    string
	Event   string
}

// Service answers vehicle, trip, event and route lookups.
type Service struct {
	searcher Searcher
	indexes  Indexes
	listSize int
}

// NewService creates a fleet service. listSize caps unpaged vehicle lists.
func NewService(searcher Searcher, indexes Indexes, listSize int) *Service {
	if listSize <= 0 {
		listSize = vehicledata.DefaultListSize
	}
	return &Service{searcher: searcher, indexes: indexes, listSize: listSize}
}

// AggregatedResult is the map view: one page of vehicles plus clusters.
type AggregatedResult struct {
	VehicleCount int                     `json:"vehicleCount"`
	Filters      *vehicledata.FilterData `json:"filters,omitempty"`
	Vehicles     []vehicledata.Vehicle   `json:"vehicles"`
	Clusters     []vehicledata.Cluster   `json:"clusters"`
	Offset       *int                    `json:"offset"`
}

// FilteredResult is the unpaged vehicle list. Count and filters are omitted
// when nothing matched.
type FilteredResult struct {
	VehicleCount *int                    `json:"vehicleCount,omitempty"`
	Filters      *vehicledata.FilterData `json:"filters,omitempty"`
	Vehicles     []vehicledata.Vehicle   `json:"vehicles"`
}

// VehicleDetail is a single vehicle with its active trouble codes.
type VehicleDetail struct {
	vehicledata.Vehicle
	TroubleCodes []string `json:"troubleCodes"`
}

// TripsResult is one page of trips.
type TripsResult struct {
	Trips  []vehicledata.Trip `json:"trips"`
	Offset *int               `json:"offset"`
}

// EventsResult is one page of events.
type EventsResult struct {
	Events []vehicledata.Event `json:"events"`
	Offset *int                `json:"offset"`
}

// Route is a trip path as an encoded polyline.
type Route struct {
	Geometry string `json:"geometry"`
}

// Aggregated returns a page of vehicles with filter facets and map clusters.
func (s *Service) Aggregated(ctx context.Context, req vehicledata.AggregateRequest) (*AggregatedResult, error) {
	resp, err := s.searcher.Search(ctx, s.indexes.Latest, vehicledata.AggregatedQuery(req))
	if err != nil {
		return nil, fmt.Errorf("aggregated vehicles: %w", err)
	}

	result := &AggregatedResult{
		Vehicles: []vehicledata.Vehicle{},
		Clusters: []vehicledata.Cluster{},
	}
	if len(resp.Hits.Hits) == 0 {
		return result, nil
	}

	vehicles, err := vehicledata.BuildVehicles(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	vehicledata.SortVehiclesDesc(vehicles)

	filters, err := vehicledata.BuildFilterData(resp)
	if err != nil {
		return nil, err
	}
	count, err := vehicledata.VehicleCount(resp)
	if err != nil {
		return nil, err
	}
	clusters, err := vehicledata.BuildClusters(resp, req.Filters.Boundaries)
	if err != nil {
		return nil, err
	}

	result.VehicleCount = count
	result.Filters = &filters
	result.Vehicles = vehicles
	result.Clusters = clusters
	result.Offset = req.Pagination.NextOffset(len(resp.Hits.Hits))

	logging.Ctx(ctx).Debug().
		Int("vehicles", len(vehicles)).
		Int("clusters", len(clusters)).
		Msg("Aggregated vehicle query complete")

	return result, nil
}

// Filtered returns every vehicle matching the filters, up to the list size.
func (s *Service) Filtered(ctx context.Context, req vehicledata.FilterRequest) (*FilteredResult, error) {
	resp, err := s.searcher.Search(ctx, s.indexes.Latest, vehicledata.FilteredQuery(req, s.listSize))
	if err != nil {
		return nil, fmt.Errorf("filtered vehicles: %w", err)
	}

	result := &FilteredResult{Vehicles: []vehicledata.Vehicle{}}
	if len(resp.Hits.Hits) == 0 {
		return result, nil
	}

	vehicles, err := vehicledata.BuildVehicles(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	vehicledata.SortVehiclesDesc(vehicles)

	filters, err := vehicledata.BuildFilterData(resp)
	if err != nil {
		return nil, err
	}
	count, err := vehicledata.VehicleCount(resp)
	if err != nil {
		return nil, err
	}

	result.VehicleCount = &count
	result.Filters = &filters
	result.Vehicles = vehicles
	return result, nil
}

// Single returns one vehicle by VIN.
func (s *Service) Single(ctx context.Context, vin string) (*VehicleDetail, error) {
	resp, err := s.searcher.Search(ctx, s.indexes.Latest, vehicledata.SingleVehicleQuery(vin))
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", vin, err)
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, notFound("No Vehicle data")
	}

	v, err := vehicledata.BuildVehicle(resp.Hits.Hits[0])
	if err != nil {
		return nil, err
	}
	filters, err := vehicledata.BuildFilterData(resp)
	if err != nil {
		return nil, err
	}

	return &VehicleDetail{Vehicle: v, TroubleCodes: filters.TroubleCodeKeys()}, nil
}

// Trips returns a page of a vehicle's trips.
func (s *Service) Trips(ctx context.Context, vin string, req vehicledata.TimelineRequest) (*TripsResult, error) {
	resp, err := s.searcher.Search(ctx, s.indexes.Trip, vehicledata.TripsQuery(vin, req))
	if err != nil {
		return nil, fmt.Errorf("trips for %s: %w", vin, err)
	}

	result := &TripsResult{Trips: []vehicledata.Trip{}}
	if len(resp.Hits.Hits) == 0 {
		return result, nil
	}

	trips, err := vehicledata.BuildTrips(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	result.Trips = trips
	result.Offset = req.Pagination.NextOffset(len(resp.Hits.Hits))
	return result, nil
}

// Events returns a page of a vehicle's events.
func (s *Service) Events(ctx context.Context, vin string, req vehicledata.TimelineRequest) (*EventsResult, error) {
	resp, err := s.searcher.Search(ctx, s.indexes.Event, vehicledata.EventsQuery(vin, req))
	if err != nil {
		return nil, fmt.Errorf("events for %s: %w", vin, err)
	}

	result := &EventsResult{Events: []vehicledata.Event{}}
	if len(resp.Hits.Hits) == 0 {
		return result, nil
	}

	events, err := vehicledata.BuildEvents(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	result.Events = events
	result.Offset = req.Pagination.NextOffset(len(resp.Hits.Hits))
	return result, nil
}

// Route looks up a trip and encodes the telemetry recorded during it.
func (s *Service) Route(ctx context.Context, tripID string) (*Route, error) {
	tripResp, err := s.searcher.Search(ctx, s.indexes.Trip, vehicledata.TripByIDQuery(tripID))
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", tripID, err)
	}
	if len(tripResp.Hits.Hits) == 0 {
		return nil, notFound("No Trip data to request a Route")
	}

	ref, err := vehicledata.TripRefFromHit(tripResp.Hits.Hits[0])
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.Search(ctx, s.indexes.CarData, vehicledata.RouteQuery(ref.VIN, ref.TripID, ref.Start, ref.End))
	if err != nil {
		return nil, fmt.Errorf("route for trip %s: %w", tripID, err)
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, notFound("No Route data")
	}

	points, err := vehicledata.RoutePoints(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	return &Route{Geometry: vehicledata.EncodeRoute(points)}, nil
}
