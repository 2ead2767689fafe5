// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package vehicledata

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/search"
)

// Vehicle is the UI view of a latest_telemetry document.
type Vehicle struct {
	VIN           string          `json:"vin"`
	Make          string          `json:"make,omitempty"`
	Model         string          `json:"model,omitempty"`
	ModelYear     interface{}     `json:"modelYear,omitempty"`
	Color         string          `json:"color,omitempty"`
	Telemetry     Telemetry       `json:"telemetry"`
	GeoLocation   GeoLocation     `json:"geoLocation"`
	Devices       json.RawMessage `json:"devices,omitempty"`
	ServiceSet    json.RawMessage `json:"service_set,omitempty"`
	ServiceStatus json.RawMessage `json:"service_status,omitempty"`
}

// Telemetry holds converted readings: miles, gallons and mph.
type Telemetry struct {
	Odometer     float64 `json:"odometer"`
	FuelLevel    float64 `json:"fuelLevel"`
	OilTemp      float64 `json:"oilTemp"`
	CurrentSpeed float64 `json:"currentSpeed"`
	MaxSpeed     float64 `json:"maxSpeed"`
	AvgSpeed     float64 `json:"avgSpeed"`
}

// GeoLocation is the vehicle heading and [lon, lat] position.
type GeoLocation struct {
	Heading     interface{} `json:"heading"`
	Coordinates [2]float64  `json:"coordinates"`
}

type vehicleAttributes struct {
	Make      string      `json:"make"`
	Model     string      `json:"model"`
	ModelYear interface{} `json:"modelyear"`
	ColorCode string      `json:"colorcode"`
}

type vehicleSource struct {
	VIN        string             `json:"vin"`
	Attributes *vehicleAttributes `json:"attributes"`
	Odometer   struct {
		Metres Number `json:"metres"`
	} `json:"odometer"`
	Fuel        Number `json:"fuel"`
	OilTemp     Number `json:"oiltemp"`
	Geolocation struct {
		Speed     Number      `json:"speed"`
		Heading   interface{} `json:"heading"`
		Latitude  Number      `json:"latitude"`
		Longitude Number      `json:"longitude"`
	} `json:"geolocation"`
	Speed struct {
		Max     Number `json:"max"`
		Average Number `json:"average"`
	} `json:"speed"`
	Devices       json.RawMessage `json:"devices"`
	ServiceSet    json.RawMessage `json:"service_set"`
	ServiceStatus json.RawMessage `json:"service_status"`
}

// BuildVehicle converts one hit into a Vehicle.
func BuildVehicle(hit search.Hit) (Vehicle, error) {
	var src vehicleSource
	if err := hit.Decode(&src); err != nil {
		return Vehicle{}, fmt.Errorf("decode vehicle %s: %w", hit.ID, err)
	}

	v := Vehicle{
		VIN: src.VIN,
		Telemetry: Telemetry{
			// The odometer "metres" field carries kilometres.
			Odometer:     Round2(src.Odometer.Metres.Float() * KmToMiles),
			FuelLevel:    Round2(src.Fuel.Float() * MlToGallons),
			OilTemp:      Round2(src.OilTemp.Float()),
			CurrentSpeed: Round2(src.Geolocation.Speed.Float() * KmToMiles),
			MaxSpeed:     Round2(src.Speed.Max.Float() * KmToMiles),
			AvgSpeed:     Round2(src.Speed.Average.Float() * KmToMiles),
		},
		GeoLocation: GeoLocation{
			Heading:     src.Geolocation.Heading,
			Coordinates: [2]float64{src.Geolocation.Longitude.Float(), src.Geolocation.Latitude.Float()},
		},
		Devices:       nullToEmpty(src.Devices),
		ServiceSet:    nullToEmpty(src.ServiceSet),
		ServiceStatus: nullToEmpty(src.ServiceStatus),
	}

	if a := src.Attributes; a != nil {
		v.Make = a.Make
		v.Model = a.Model
		v.ModelYear = a.ModelYear
		v.Color = a.ColorCode
	}

	return v, nil
}

// BuildVehicles converts hits into vehicles, preserving hit order.
func BuildVehicles(hits []search.Hit) ([]Vehicle, error) {
	vehicles := make([]Vehicle, 0, len(hits))
	for _, hit := range hits {
		v, err := BuildVehicle(hit)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// SortVehiclesDesc orders vehicles by VIN, highest first.
func SortVehiclesDesc(vehicles []Vehicle) {
	sort.SliceStable(vehicles, func(i, j int) bool {
		return vehicles[i].VIN > vehicles[j].VIN
	})
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if string(raw) == "null" {
		return nil
	}
	return raw
}

// FilterCount is one trouble code or anomaly type with its vehicle count.
type FilterCount struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// FilterData lists the trouble codes and anomalies present in a result set.
type FilterData struct {
	TroubleCodes []FilterCount `json:"troubleCodes"`
	Anomalies    []FilterCount `json:"anomalies"`
}

// TroubleCodeKeys returns just the trouble code identifiers.
func (f FilterData) TroubleCodeKeys() []string {
	keys := make([]string, 0, len(f.TroubleCodes))
	for _, tc := range f.TroubleCodes {
		keys = append(keys, tc.ID)
	}
	return keys
}

type termsBucket struct {
	Key      json.RawMessage `json:"key"`
	DocCount int             `json:"doc_count"`
}

type termsAgg struct {
	Buckets []termsBucket `json:"buckets"`
}

// KeyString returns the bucket key as text, whether it was a string or a number.
func (b termsBucket) KeyString() string {
	var s string
	if err := json.Unmarshal(b.Key, &s); err == nil {
		return s
	}
	return string(b.Key)
}

type nestedTerms struct {
	TroubleCodes termsAgg `json:"trouble_codes"`
	Anomalies    termsAgg `json:"anomalies"`
}

// BuildFilterData reads the dtc_codes and anomaly_codes aggregations.
func BuildFilterData(resp *search.Response) (FilterData, error) {
	data := FilterData{TroubleCodes: []FilterCount{}, Anomalies: []FilterCount{}}

	var dtc nestedTerms
	if _, err := resp.Aggregation(AggDTCCodes, &dtc); err != nil {
		return data, err
	}
	for _, b := range dtc.TroubleCodes.Buckets {
		data.TroubleCodes = append(data.TroubleCodes, FilterCount{ID: b.KeyString(), Count: b.DocCount})
	}

	var anomalies nestedTerms
	if _, err := resp.Aggregation(AggAnomalyCodes, &anomalies); err != nil {
		return data, err
	}
	for _, b := range anomalies.Anomalies.Buckets {
		data.Anomalies = append(data.Anomalies, FilterCount{ID: b.KeyString(), Count: b.DocCount})
	}

	return data, nil
}

// VehicleCount reads the vehicle_count cardinality aggregation.
func VehicleCount(resp *search.Response) (int, error) {
	var agg struct {
		Value int `json:"value"`
	}
	if _, err := resp.Aggregation(AggVehicleCount, &agg); err != nil {
		return 0, err
	}
	return agg.Value, nil
}

// Cluster is a map marker summarising the vehicles in one geotile.
type Cluster struct {
	Coordinates [2]float64        `json:"coordinates"`
	Properties  ClusterProperties `json:"properties"`
}

// ClusterProperties describes a cluster. VIN is set for single-vehicle clusters.
type ClusterProperties struct {
	BBox  BBox   `json:"bbox"`
	Key   string `json:"key"`
	Count int    `json:"count"`
	VIN   string `json:"vin,omitempty"`
}

type boundaryAgg struct {
	Zoom struct {
		Buckets []struct {
			Key      string   `json:"key"`
			DocCount int      `json:"doc_count"`
			VIN      termsAgg `json:"vin"`
		} `json:"buckets"`
	} `json:"zoom"`
}

// BuildClusters turns the per-boundary geotile aggregations into clusters.
// Tile bounds are cropped to the requested boundary so markers stay on screen.
func BuildClusters(resp *search.Response, boundaries [][]float64) ([]Cluster, error) {
	indexes := make([]int, 0, len(resp.Aggregations))
	for name := range resp.Aggregations {
		if IsFixedAggregation(name) {
			continue
		}
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= len(boundaries) {
			continue
		}
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	clusters := []Cluster{}
	for _, i := range indexes {
		var agg boundaryAgg
		if _, err := resp.Aggregation(strconv.Itoa(i), &agg); err != nil {
			return nil, err
		}

		for _, bucket := range agg.Zoom.Buckets {
			tile, err := TileBBox(bucket.Key)
			if err != nil {
				return nil, err
			}
			bbox := tile.Crop(boundaries[i])

			c := Cluster{
				Coordinates: bbox.Center(),
				Properties: ClusterProperties{
					BBox:  bbox,
					Key:   bucket.Key,
					Count: bucket.DocCount,
				},
			}
			if bucket.DocCount == 1 && len(bucket.VIN.Buckets) > 0 {
				c.Properties.VIN = bucket.VIN.Buckets[0].KeyString()
			}
			clusters = append(clusters, c)
		}
	}
	return clusters, nil
}

// Trip is the UI view of a trip summary.
type Trip struct {
	TripID        string     `json:"tripId"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	Duration      float64    `json:"duration"`
	Fuel          float64    `json:"fuel"`
	StartLocation [2]float64 `json:"startLocation"`
	EndLocation   [2]float64 `json:"endLocation"`
	Distance      Distance   `json:"distance"`
	FuelEconomy   Economy    `json:"fuelEconomy"`
}

// Distance is a trip length in miles.
type Distance struct {
	Miles float64 `json:"miles"`
}

// Economy is fuel economy in miles per gallon.
type Economy struct {
	MPG float64 `json:"mpg"`
}

type latLon struct {
	Latitude  Number `json:"latitude"`
	Longitude Number `json:"longitude"`
}

func (l latLon) lonLat() [2]float64 {
	return [2]float64{l.Longitude.Float(), l.Latitude.Float()}
}

type tripSource struct {
	TripID            string `json:"tripid"`
	VIN               string `json:"vin"`
	CreationTimestamp string `json:"creationtimestamp"`
	TripSummary       struct {
		StartTime     string `json:"starttime"`
		Duration      Number `json:"duration"`
		Fuel          Number `json:"fuel"`
		Distance      Number `json:"distance"`
		StartLocation latLon `json:"startlocation"`
		EndLocation   latLon `json:"endlocation"`
	} `json:"tripsummary"`
}

// TripRef identifies the telemetry window of one trip.
type TripRef struct {
	VIN    string
	TripID string
	Start  string
	End    string
}

// TripRefFromHit extracts the route lookup window from a trip hit.
func TripRefFromHit(hit search.Hit) (TripRef, error) {
	var src tripSource
	if err := hit.Decode(&src); err != nil {
		return TripRef{}, fmt.Errorf("decode trip %s: %w", hit.ID, err)
	}
	return TripRef{
		VIN:    src.VIN,
		TripID: src.TripID,
		Start:  src.TripSummary.StartTime,
		End:    src.CreationTimestamp,
	}, nil
}

// BuildTrips converts trip hits into UI trips.
func BuildTrips(hits []search.Hit) ([]Trip, error) {
	trips := make([]Trip, 0, len(hits))
	for _, hit := range hits {
		var src tripSource
		if err := hit.Decode(&src); err != nil {
			return nil, fmt.Errorf("decode trip %s: %w", hit.ID, err)
		}

		s := src.TripSummary
		miles := s.Distance.Float() * KmToMiles
		gallons := s.Fuel.Float() * MlToGallons
		mpg := 0.0
		if gallons != 0 {
			mpg = miles / gallons
		}

		trips = append(trips, Trip{
			TripID:        src.TripID,
			StartTime:     s.StartTime,
			EndTime:       src.CreationTimestamp,
			Duration:      s.Duration.Float() / 60000,
			Fuel:          gallons,
			StartLocation: s.StartLocation.lonLat(),
			EndLocation:   s.EndLocation.lonLat(),
			Distance:      Distance{Miles: miles},
			FuelEconomy:   Economy{MPG: mpg},
		})
	}
	return trips, nil
}

// Event is the UI view of a vehicle event.
type Event struct {
	MessageID         string          `json:"messageId"`
	CreationTimestamp string          `json:"creationtimestamp"`
	Alert             json.RawMessage `json:"alert"`
}

// BuildEvents converts event hits into UI events.
func BuildEvents(hits []search.Hit) ([]Event, error) {
	events := make([]Event, 0, len(hits))
	for _, hit := range hits {
		var src struct {
			MessageID         string          `json:"messageid"`
			CreationTimestamp string          `json:"creationtimestamp"`
			Alert             json.RawMessage `json:"alert"`
		}
		if err := hit.Decode(&src); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", hit.ID, err)
		}
		alert := src.Alert
		if len(alert) == 0 {
			alert = json.RawMessage("null")
		}
		events = append(events, Event{
			MessageID:         src.MessageID,
			CreationTimestamp: src.CreationTimestamp,
			Alert:             alert,
		})
	}
	return events, nil
}

// RoutePoints extracts geolocation.location from telemetry hits.
func RoutePoints(hits []search.Hit) ([][2]float64, error) {
	points := make([][2]float64, 0, len(hits))
	for _, hit := range hits {
		var src struct {
			Geolocation struct {
				Location []Number `json:"location"`
			} `json:"geolocation"`
		}
		if err := hit.Decode(&src); err != nil {
			return nil, fmt.Errorf("decode route point %s: %w", hit.ID, err)
		}
		loc := src.Geolocation.Location
		if len(loc) != 2 {
			continue
		}
		points = append(points, [2]float64{loc[0].Float(), loc[1].Float()})
	}
	return points, nil
}
