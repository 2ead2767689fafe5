// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Document is a decoded device message.
type Document = map[string]interface{}

// ErrInvalidMessage marks messages that can never be processed.
var ErrInvalidMessage = errors.New("invalid message")

// Normalize decodes a JSON object and lowercases every key, recursively.
// Numbers keep their original text.
func Normalize(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	doc, ok := lowercaseKeys(v).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidMessage)
	}
	return doc, nil
}

func lowercaseKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[strings.ToLower(k)] = lowercaseKeys(val)
		}
		return out
	case []interface{}:
		for i := range t {
			t[i] = lowercaseKeys(t[i])
		}
		return t
	default:
		return v
	}
}

// Flatten returns every leaf of doc keyed by its dot-joined path.
func Flatten(doc Document) map[string]interface{} {
	out := make(map[string]interface{})
	flatten("", doc, out)
	return out
}

func flatten(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// firstMatching returns the value of the lexically first key containing
// substr.
func firstMatching(flat map[string]interface{}, substr string) (interface{}, bool) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		if strings.Contains(k, substr) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return flat[keys[0]], true
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

// SetLocation stores geolocation.location as [lon, lat], taken from the
// first keys mentioning latitude and longitude.
func SetLocation(doc Document) error {
	flat := Flatten(doc)
	rawLat, okLat := firstMatching(flat, "latitude")
	rawLon, okLon := firstMatching(flat, "longitude")
	if !okLat || !okLon {
		return fmt.Errorf("%w: no coordinates", ErrInvalidMessage)
	}
	lat, err := toFloat(rawLat)
	if err != nil {
		return fmt.Errorf("%w: latitude: %v", ErrInvalidMessage, err)
	}
	lon, err := toFloat(rawLon)
	if err != nil {
		return fmt.Errorf("%w: longitude: %v", ErrInvalidMessage, err)
	}

	geo, ok := doc["geolocation"].(map[string]interface{})
	if !ok {
		geo = make(map[string]interface{})
		doc["geolocation"] = geo
	}
	geo["location"] = []float64{lon, lat}
	return nil
}

// require checks that each field is present and not empty.
func require(doc Document, fields ...string) error {
	for _, f := range fields {
		v, ok := doc[f]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidMessage, f)
		}
	}
	return nil
}

func stringField(doc Document, field string) string {
	switch v := doc[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
