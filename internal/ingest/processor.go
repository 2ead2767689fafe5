// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
	"github.com/tomtom215/fleetmanager/internal/ota"
	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// Indexer is the subset of the search client used for writes.
type Indexer interface {
	Search(ctx context.Context, index string, query interface{}) (*search.Response, error)
	Bulk(ctx context.Context, items []search.BulkItem) error
	UpdateByQuery(ctx context.Context, index string, body interface{}, refresh bool) error
}

// VersionResolver looks up the software version an OTA job installs.
type VersionResolver interface {
	DesiredVersion(ctx context.Context, jobID string) (string, error)
}

// Indexes names every index the processor writes.
type Indexes struct {
	Latest  string
	CarData string
	Shared  string
	Trip    string
	Event   string
	DTC     string
	Anomaly string
}

// sharedFields are copied from the vehicle master document onto each
// telemetry document.
var sharedFields = []string{"attributes", "devices", "trouble_codes", "anomalies", "service_set", "service_status"}

// anomalyFields are kept when an anomaly is attached to a vehicle.
var anomalyFields = []string{
	"anomaly_id", "anomaly_score", "anomaly_type", "created_at",
	"identified_at", "pk", "sk", "updated_at", "value",
}

const otaSoftwareScript = "def targets = ctx._source.devices.findAll(device -> device.deviceid == params.current_deviceid); " +
	"for(device in targets) { device.softwareversion = params.softwareversion }"

// Processor writes device messages into the search indexes.
type Processor struct {
	store    Indexer
	versions VersionResolver
	indexes  Indexes
	newID    func() string
}

// NewProcessor creates a processor.
func NewProcessor(store Indexer, versions VersionResolver, indexes Indexes) *Processor {
	return &Processor{
		store:    store,
		versions: versions,
		indexes:  indexes,
		newID:    uuid.NewString,
	}
}

func (p *Processor) bulk(ctx context.Context, items ...search.BulkItem) error {
	if err := p.store.Bulk(ctx, items); err != nil {
		return err
	}
	counts := make(map[string]int, len(items))
	for _, it := range items {
		counts[it.Index]++
	}
	for index, n := range counts {
		metrics.RecordIngestWrites(index, n)
	}
	return nil
}

// history writes doc into the latest index keyed by vin and into cardata
// under a fresh id.
func (p *Processor) history(ctx context.Context, doc Document) error {
	return p.bulk(ctx,
		search.BulkItem{Index: p.indexes.Latest, ID: stringField(doc, "vin"), Document: doc},
		search.BulkItem{Index: p.indexes.CarData, ID: p.newID(), Document: doc},
	)
}

// Telemetry indexes a vehicle telemetry message enriched with the
// vehicle's master data.
func (p *Processor) Telemetry(ctx context.Context, doc Document) error {
	if err := require(doc, "sendtimestamp", "vin", "tripid"); err != nil {
		return err
	}
	if err := SetLocation(doc); err != nil {
		return err
	}

	vin := stringField(doc, "vin")
	resp, err := p.store.Search(ctx, p.indexes.Shared, vehicledata.Query{
		"query": vehicledata.Query{"term": vehicledata.Query{"vin.keyword": vin}},
	})
	if err != nil {
		return fmt.Errorf("shared data for %s: %w", vin, err)
	}
	if len(resp.Hits.Hits) > 0 {
		var shared map[string]interface{}
		if err := resp.Hits.Hits[0].Decode(&shared); err != nil {
			return err
		}
		for _, f := range sharedFields {
			if v, ok := shared[f]; ok {
				doc[f] = v
			}
		}
	} else {
		logging.Ctx(ctx).Debug().Str("vin", vin).Msg("No shared data for vehicle")
	}

	return p.history(ctx, doc)
}

// Misc indexes a telemetry message that carries no trip context.
func (p *Processor) Misc(ctx context.Context, doc Document) error {
	if err := require(doc, "vin"); err != nil {
		return err
	}
	return p.history(ctx, doc)
}

// Trip indexes a trip summary.
func (p *Processor) Trip(ctx context.Context, doc Document) error {
	if err := require(doc, "sendtimestamp", "vin", "tripid"); err != nil {
		return err
	}
	return p.bulk(ctx, search.BulkItem{Index: p.indexes.Trip, ID: p.newID(), Document: doc})
}

// Event indexes a vehicle event.
func (p *Processor) Event(ctx context.Context, doc Document) error {
	if err := require(doc, "sendtimestamp", "vin"); err != nil {
		return err
	}
	return p.bulk(ctx, search.BulkItem{Index: p.indexes.Event, ID: p.newID(), Document: doc})
}

// attachToVehicle replaces a list field on the vehicle's master document.
func (p *Processor) attachToVehicle(ctx context.Context, vin, field, param string, value interface{}) error {
	body := vehicledata.Query{
		"script": vehicledata.Query{
			"source": fmt.Sprintf("ctx._source.%s = [params.%s]", field, param),
			"params": vehicledata.Query{param: value},
		},
		"query": vehicledata.Query{"query_string": vehicledata.Query{"query": vin}},
	}
	if err := p.store.UpdateByQuery(ctx, p.indexes.Shared, body, false); err != nil {
		return fmt.Errorf("update %s for %s: %w", field, vin, err)
	}
	return nil
}

// DTC records a trouble code as the vehicle's current code and keeps its
// history.
func (p *Processor) DTC(ctx context.Context, doc Document) error {
	if err := require(doc, "sendtimestamp", "vin"); err != nil {
		return err
	}
	if err := p.attachToVehicle(ctx, stringField(doc, "vin"), "trouble_codes", "dtc", doc); err != nil {
		return err
	}
	return p.bulk(ctx, search.BulkItem{Index: p.indexes.DTC, ID: p.newID(), Document: doc})
}

// Anomaly records an anomaly as the vehicle's current anomaly and keeps its
// history.
func (p *Processor) Anomaly(ctx context.Context, doc Document) error {
	if err := require(doc, "vin", "anomaly_id"); err != nil {
		return err
	}

	anomaly := make(Document, len(anomalyFields))
	for _, f := range anomalyFields {
		if v, ok := doc[f]; ok {
			anomaly[f] = v
		}
	}
	if err := p.attachToVehicle(ctx, stringField(doc, "vin"), "anomalies", "anomaly", anomaly); err != nil {
		return err
	}
	return p.bulk(ctx, search.BulkItem{Index: p.indexes.Anomaly, ID: p.newID(), Document: anomaly})
}

type vinDoc struct {
	VIN string `json:"vin"`
}

// OTAStatus records the installed software version once a job succeeds on
// a device. Other statuses are ignored.
func (p *Processor) OTAStatus(ctx context.Context, doc Document) error {
	if err := require(doc, "jobid", "thingarn", "status"); err != nil {
		return err
	}
	if stringField(doc, "status") != "SUCCEEDED" {
		return nil
	}

	deviceID := strings.ToLower(ota.ThingName(stringField(doc, "thingarn")))
	log := logging.Ctx(ctx).With().Str("device_id", deviceID).Logger()

	resp, err := p.store.Search(ctx, p.indexes.Shared, vehicledata.Query{
		"size":    1,
		"_source": "vin",
		"query": vehicledata.Query{"bool": vehicledata.Query{"filter": vehicledata.Query{
			"nested": vehicledata.Query{
				"path":  "devices",
				"query": vehicledata.Query{"term": vehicledata.Query{"devices.deviceid": deviceID}},
			},
		}}},
	})
	if err != nil {
		return fmt.Errorf("vehicle for device %s: %w", deviceID, err)
	}
	if len(resp.Hits.Hits) == 0 {
		log.Warn().Msg("OTA status for unknown device")
		return nil
	}
	var v vinDoc
	if err := resp.Hits.Hits[0].Decode(&v); err != nil {
		return err
	}

	version, err := p.versions.DesiredVersion(ctx, stringField(doc, "jobid"))
	if err != nil {
		return err
	}

	body := vehicledata.Query{
		"script": vehicledata.Query{
			"source": otaSoftwareScript,
			"params": vehicledata.Query{"softwareversion": version, "current_deviceid": deviceID},
		},
		"query": vehicledata.Query{"query_string": vehicledata.Query{"query": v.VIN}},
	}
	for _, index := range []string{p.indexes.Shared, p.indexes.CarData} {
		if err := p.store.UpdateByQuery(ctx, index, body, false); err != nil {
			return fmt.Errorf("update software version in %s: %w", index, err)
		}
	}
	log.Info().Str("vin", v.VIN).Str("version", version).Msg("Recorded OTA software version")
	return nil
}
