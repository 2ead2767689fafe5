// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ota

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

const (
	commandsRoute = "/commands"
	cdfMediaType  = "application/vnd.aws-cdf-v1.0+json"
)

// CreateRequest asks for a software update. Filters select the target
// vehicles when no device is named.
type CreateRequest struct {
	DesiredVersion string              `json:"desiredVersion" validate:"required"`
	Filters        vehicledata.Filters `json:"filters"`
}

// CreateResult identifies the published job.
type CreateResult struct {
	JobID string `json:"jobId"`
}

type traversal struct {
	Relation  string `json:"relation"`
	Direction string `json:"direction"`
}

type eqClause struct {
	Traversals []traversal `json:"traversals,omitempty"`
	Field      string      `json:"field"`
	Value      interface{} `json:"value"`
}

type targetQuery struct {
	Type []string   `json:"type"`
	Eq   []eqClause `json:"eq"`
}

type commandDraft struct {
	TemplateID         string            `json:"templateId"`
	DocumentParameters map[string]string `json:"documentParameters"`
	TargetQuery        *targetQuery      `json:"targetQuery,omitempty"`
	Targets            []string          `json:"targets,omitempty"`
	Type               string            `json:"type"`
}

var installedIn = []traversal{{Relation: "installed_in", Direction: "out"}}

// targetClauses maps vehicle filters onto asset library attributes. Only
// the first value of each list filter is used.
func targetClauses(f vehicledata.Filters) []eqClause {
	eq := []eqClause{}
	if v := f.SoftwareVersion(); v != "" {
		eq = append(eq, eqClause{Field: "softwareVersion", Value: v})
	}

	related := func(field string, value interface{}) {
		eq = append(eq, eqClause{Traversals: installedIn, Field: field, Value: value})
	}
	if len(f.Anomalies) > 0 {
		related("anomaly", f.Anomalies[0])
	}
	if len(f.TroubleCodes) > 0 {
		related("dtc", f.TroubleCodes[0])
	}
	if len(f.Vehicle.VIN) > 0 {
		related("name", f.Vehicle.VIN[0])
	}
	if len(f.Vehicle.Make) > 0 {
		related("make", f.Vehicle.Make[0])
	}
	if len(f.Vehicle.Model) > 0 {
		related("model", f.Vehicle.Model[0])
	}
	if len(f.Vehicle.Year) > 0 {
		related("modelYear", f.Vehicle.Year[0])
	}
	return eq
}

func (s *Service) draft(req CreateRequest, deviceID string) commandDraft {
	d := commandDraft{
		TemplateID:         s.cfg.TemplateID,
		DocumentParameters: map[string]string{"desiredVersion": req.DesiredVersion},
		Type:               "SNAPSHOT",
	}
	if deviceID != "" {
		d.Targets = []string{strings.ToUpper(deviceID)}
		return d
	}
	d.TargetQuery = &targetQuery{Type: []string{"auto_ecu"}, Eq: targetClauses(req.Filters)}
	return d
}

// Create drafts a command for the selected devices and publishes it. An
// empty deviceID targets every device matching the request filters.
func (s *Service) Create(ctx context.Context, req CreateRequest, deviceID string) (result *CreateResult, err error) {
	defer func() { metrics.RecordOTAOperation("create", err) }()

	resp, err := s.invokeCommands(ctx, http.MethodPost, commandsRoute, s.draft(req, deviceID))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusNoContent {
		logging.Ctx(ctx).Error().Int("status", resp.StatusCode).Str("body", resp.Body).Msg("Failed to create command draft")
		if resp.Body == "" {
			return nil, fmt.Errorf("command draft failed with status %d", resp.StatusCode)
		}
		return nil, errors.New(resp.Body)
	}

	location := header(resp, "location")
	commandID := location[strings.LastIndex(location, "/")+1:]
	if commandID == "" {
		return nil, errors.New("command draft response has no location")
	}

	publish, err := s.invokeCommands(ctx, http.MethodPatch, commandsRoute+"/"+commandID, map[string]string{"commandStatus": "PUBLISHED"})
	if err != nil {
		return nil, err
	}
	if publish.StatusCode != http.StatusNoContent {
		logging.Ctx(ctx).Error().Str("command_id", commandID).Int("status", publish.StatusCode).Msg("Failed to publish command")
		return nil, ErrPublish
	}

	logging.Ctx(ctx).Info().Str("command_id", commandID).Msg("Published OTA command")
	return &CreateResult{JobID: "cdf-" + commandID}, nil
}

// invokeCommands calls the Commands Lambda as if it sat behind an API
// Gateway proxy route.
func (s *Service) invokeCommands(ctx context.Context, method, path string, body interface{}) (*events.APIGatewayProxyResponse, error) {
	payloadBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode command body: %w", err)
	}

	req := events.APIGatewayProxyRequest{
		Resource:   "/{proxy+}",
		Path:       path,
		HTTPMethod: method,
		Headers: map[string]string{
			"Accept":       cdfMediaType,
			"Content-Type": cdfMediaType,
		},
		PathParameters: map[string]string{"proxy": strings.Trim(path, "/")},
		Body:           string(payloadBody),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode command request: %w", err)
	}

	out, err := s.invoker.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(s.cfg.CommandsFunction),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke commands %s %s: %w", method, path, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("commands %s %s: %s: %s", method, path, aws.ToString(out.FunctionError), out.Payload)
	}

	var resp events.APIGatewayProxyResponse
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return nil, fmt.Errorf("decode commands response: %w", err)
	}
	return &resp, nil
}

func header(resp *events.APIGatewayProxyResponse, name string) string {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, v := range resp.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
