// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/search"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

type update struct {
	index string
	body  interface{}
}

type fakeIndexer struct {
	searchResponses map[string]string
	searches        []string
	bulks           [][]search.BulkItem
	updates         []update
	bulkErr         error
}

func (f *fakeIndexer) Search(_ context.Context, index string, _ interface{}) (*search.Response, error) {
	f.searches = append(f.searches, index)
	raw, ok := f.searchResponses[index]
	if !ok {
		raw = `{"hits": {"hits": []}}`
	}
	var resp search.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeIndexer) Bulk(_ context.Context, items []search.BulkItem) error {
	f.bulks = append(f.bulks, items)
	return f.bulkErr
}

func (f *fakeIndexer) UpdateByQuery(_ context.Context, index string, body interface{}, _ bool) error {
	f.updates = append(f.updates, update{index: index, body: body})
	return nil
}

type fakeVersions struct {
	version string
	jobs    []string
}

func (f *fakeVersions) DesiredVersion(_ context.Context, jobID string) (string, error) {
	f.jobs = append(f.jobs, jobID)
	if f.version == "" {
		return "", errors.New("no document")
	}
	return f.version, nil
}

var testIndexes = Indexes{
	Latest: "latest_telemetry", CarData: "cardata", Shared: "shared_cardata",
	Trip: "trip", Event: "event", DTC: "dtc", Anomaly: "anomaly",
}

func newTestProcessor(store *fakeIndexer, versions *fakeVersions) *Processor {
	p := NewProcessor(store, versions, testIndexes)
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

func mustNormalize(t *testing.T, raw string) Document {
	t.Helper()
	doc, err := Normalize([]byte(raw))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return doc
}

func TestNormalizeLowercasesNestedKeys(t *testing.T) {
	t.Parallel()

	doc := mustNormalize(t, `{"VIN": "V1", "GeoLocation": {"Latitude": 1.5}, "Devices": [{"DeviceID": "D1"}]}`)

	if doc["vin"] != "V1" {
		t.Errorf("vin = %v", doc["vin"])
	}
	geo := doc["geolocation"].(map[string]interface{})
	if _, ok := geo["latitude"]; !ok {
		t.Errorf("nested keys not lowercased: %v", geo)
	}
	dev := doc["devices"].([]interface{})[0].(map[string]interface{})
	if dev["deviceid"] != "D1" {
		t.Errorf("keys inside arrays not lowercased: %v", dev)
	}
}

func TestNormalizeRejects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`not json`, `[1, 2]`, `"text"`} {
		if _, err := Normalize([]byte(raw)); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("Normalize(%s) error = %v, want ErrInvalidMessage", raw, err)
		}
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	flat := Flatten(Document{"a": map[string]interface{}{"b": map[string]interface{}{"c": 1}}, "d": "x"})
	if flat["a.b.c"] != 1 || flat["d"] != "x" || len(flat) != 2 {
		t.Errorf("Flatten() = %v", flat)
	}
}

func TestSetLocation(t *testing.T) {
	t.Parallel()

	doc := mustNormalize(t, `{"geolocation": {"latitude": 38.9, "longitude": "-77.03"}}`)
	if err := SetLocation(doc); err != nil {
		t.Fatalf("SetLocation() error = %v", err)
	}
	loc := doc["geolocation"].(map[string]interface{})["location"].([]float64)
	if loc[0] != -77.03 || loc[1] != 38.9 {
		t.Errorf("location = %v, want [lon, lat]", loc)
	}

	if err := SetLocation(Document{"vin": "V1"}); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("SetLocation(no coordinates) error = %v", err)
	}
}

const telemetryMessage = `{
	"VIN": "VIN1", "TripId": "T1", "SendTimestamp": "2020-10-05T10:00:00",
	"GeoLocation": {"Latitude": 38.9, "Longitude": -77.03}
}`

func TestTelemetry(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{searchResponses: map[string]string{
		"shared_cardata": `{"hits": {"hits": [{"_source": {
			"vin": "VIN1", "attributes": {"make": "Acme"}, "devices": [{"deviceid": "ecu-1"}],
			"trouble_codes": ["P0420"], "unrelated": true
		}}]}}`,
	}}
	p := newTestProcessor(store, &fakeVersions{})

	if err := p.Telemetry(context.Background(), mustNormalize(t, telemetryMessage)); err != nil {
		t.Fatalf("Telemetry() error = %v", err)
	}
	if len(store.bulks) != 1 || len(store.bulks[0]) != 2 {
		t.Fatalf("bulks = %v", store.bulks)
	}

	latest, history := store.bulks[0][0], store.bulks[0][1]
	if latest.Index != "latest_telemetry" || latest.ID != "VIN1" {
		t.Errorf("latest item = %s/%s", latest.Index, latest.ID)
	}
	if history.Index != "cardata" || history.ID != "id-1" {
		t.Errorf("history item = %s/%s", history.Index, history.ID)
	}

	doc := latest.Document.(Document)
	if _, ok := doc["attributes"]; !ok {
		t.Error("attributes not copied from shared data")
	}
	if _, ok := doc["trouble_codes"]; !ok {
		t.Error("trouble_codes not copied from shared data")
	}
	if _, ok := doc["unrelated"]; ok {
		t.Error("unlisted shared fields must not be copied")
	}
	if _, ok := doc["geolocation"].(map[string]interface{})["location"]; !ok {
		t.Error("location not set")
	}
}

func TestTelemetryRequiresFields(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{}
	p := newTestProcessor(store, &fakeVersions{})

	err := p.Telemetry(context.Background(), mustNormalize(t, `{"vin": "VIN1", "sendtimestamp": "x"}`))
	if !errors.Is(err, ErrInvalidMessage) || !strings.Contains(err.Error(), "tripid") {
		t.Errorf("Telemetry() error = %v, want missing tripid", err)
	}
	if len(store.bulks) != 0 || len(store.searches) != 0 {
		t.Error("invalid telemetry must not reach the index")
	}
}

func TestSimpleWriters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		run     func(*Processor, context.Context, Document) error
		message string
		indexes []string
	}{
		{"misc", (*Processor).Misc, `{"vin": "V1"}`, []string{"latest_telemetry", "cardata"}},
		{"trip", (*Processor).Trip, `{"vin": "V1", "tripid": "T1", "sendtimestamp": "t"}`, []string{"trip"}},
		{"event", (*Processor).Event, `{"vin": "V1", "sendtimestamp": "t"}`, []string{"event"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeIndexer{}
			if err := tt.run(newTestProcessor(store, &fakeVersions{}), context.Background(), mustNormalize(t, tt.message)); err != nil {
				t.Fatalf("error = %v", err)
			}
			var got []string
			for _, it := range store.bulks[0] {
				got = append(got, it.Index)
			}
			if strings.Join(got, ",") != strings.Join(tt.indexes, ",") {
				t.Errorf("indexes = %v, want %v", got, tt.indexes)
			}
		})
	}
}

func TestDTC(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{}
	p := newTestProcessor(store, &fakeVersions{})

	msg := mustNormalize(t, `{"vin": "VIN1", "sendtimestamp": "t", "dtc": {"code": "P0420"}}`)
	if err := p.DTC(context.Background(), msg); err != nil {
		t.Fatalf("DTC() error = %v", err)
	}

	if len(store.updates) != 1 || store.updates[0].index != "shared_cardata" {
		t.Fatalf("updates = %+v", store.updates)
	}
	body := store.updates[0].body.(vehicledata.Query)
	script := body["script"].(vehicledata.Query)
	if script["source"] != "ctx._source.trouble_codes = [params.dtc]" {
		t.Errorf("script = %v", script["source"])
	}
	if body["query"].(vehicledata.Query)["query_string"].(vehicledata.Query)["query"] != "VIN1" {
		t.Errorf("query = %v", body["query"])
	}
	if store.bulks[0][0].Index != "dtc" {
		t.Errorf("history index = %q", store.bulks[0][0].Index)
	}
}

func TestAnomalyProjectsFields(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{}
	p := newTestProcessor(store, &fakeVersions{})

	msg := mustNormalize(t, `{"vin": "VIN1", "anomaly_id": "A1", "anomaly_type": "OilTemp", "value": "295.8", "deletion_flag": "1"}`)
	if err := p.Anomaly(context.Background(), msg); err != nil {
		t.Fatalf("Anomaly() error = %v", err)
	}

	anomaly := store.bulks[0][0].Document.(Document)
	if store.bulks[0][0].Index != "anomaly" {
		t.Errorf("index = %q", store.bulks[0][0].Index)
	}
	if anomaly["anomaly_type"] != "OilTemp" || anomaly["value"] != "295.8" {
		t.Errorf("anomaly = %v", anomaly)
	}
	if _, ok := anomaly["deletion_flag"]; ok {
		t.Error("deletion_flag should not be kept")
	}
	if _, ok := anomaly["vin"]; ok {
		t.Error("vin should not be kept")
	}
}

func TestOTAStatus(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{searchResponses: map[string]string{
		"shared_cardata": `{"hits": {"hits": [{"_source": {"vin": "VIN1"}}]}}`,
	}}
	versions := &fakeVersions{version: "5.1"}
	p := newTestProcessor(store, versions)

	msg := mustNormalize(t, `{"jobId": "cdf-1", "thingArn": "arn:aws:iot:us-east-1:1:thing/ECU-A", "status": "SUCCEEDED"}`)
	if err := p.OTAStatus(context.Background(), msg); err != nil {
		t.Fatalf("OTAStatus() error = %v", err)
	}

	if len(versions.jobs) != 1 || versions.jobs[0] != "cdf-1" {
		t.Errorf("job document lookups = %v", versions.jobs)
	}
	if len(store.updates) != 2 || store.updates[0].index != "shared_cardata" || store.updates[1].index != "cardata" {
		t.Fatalf("updates = %+v", store.updates)
	}
	params := store.updates[0].body.(vehicledata.Query)["script"].(vehicledata.Query)["params"].(vehicledata.Query)
	if params["softwareversion"] != "5.1" || params["current_deviceid"] != "ecu-a" {
		t.Errorf("params = %v", params)
	}
}

func TestOTAStatusIgnored(t *testing.T) {
	t.Parallel()

	t.Run("not succeeded", func(t *testing.T) {
		t.Parallel()
		store := &fakeIndexer{}
		p := newTestProcessor(store, &fakeVersions{version: "1"})
		msg := mustNormalize(t, `{"jobid": "j", "thingarn": "arn/thing/x", "status": "IN_PROGRESS"}`)
		if err := p.OTAStatus(context.Background(), msg); err != nil {
			t.Fatalf("error = %v", err)
		}
		if len(store.searches) != 0 || len(store.updates) != 0 {
			t.Error("in-progress status should not touch the index")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		t.Parallel()
		store := &fakeIndexer{}
		versions := &fakeVersions{version: "1"}
		p := newTestProcessor(store, versions)
		msg := mustNormalize(t, `{"jobid": "j", "thingarn": "arn/thing/x", "status": "SUCCEEDED"}`)
		if err := p.OTAStatus(context.Background(), msg); err != nil {
			t.Fatalf("error = %v", err)
		}
		if len(versions.jobs) != 0 || len(store.updates) != 0 {
			t.Error("unknown device should stop before the job lookup")
		}
	})
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	store := &fakeIndexer{}
	sub := NewSubscriber(SubscriberConfig{}, newTestProcessor(store, &fakeVersions{}))

	if err := sub.Dispatch(context.Background(), KindTrip, []byte(`{"VIN": "V1", "TripID": "T", "SendTimestamp": "t"}`)); err != nil {
		t.Fatalf("Dispatch(trip) error = %v", err)
	}
	if store.bulks[0][0].Index != "trip" {
		t.Errorf("trip written to %q", store.bulks[0][0].Index)
	}

	err := sub.Dispatch(context.Background(), "weather", []byte(`{}`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Dispatch(unknown) error = %v", err)
	}
	if result(err) != "invalid" || result(nil) != "ok" || result(errors.New("boom")) != "error" {
		t.Error("unexpected result labels")
	}
}

func TestSubjects(t *testing.T) {
	t.Parallel()

	sub := NewSubscriber(SubscriberConfig{SubjectPrefix: "fleet"}, newTestProcessor(&fakeIndexer{}, &fakeVersions{}))
	want := "fleet.anomaly,fleet.dtc,fleet.event,fleet.misc,fleet.ota,fleet.telemetry,fleet.trip"
	if got := strings.Join(sub.Subjects(), ","); got != want {
		t.Errorf("Subjects() = %s, want %s", got, want)
	}
}
