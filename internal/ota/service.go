// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/tomtom215/fleetmanager/internal/search"
)

var (
	// ErrTooManyDevices matches any TooManyDevicesError.
	ErrTooManyDevices = errors.New("too many devices per request")

	// ErrPublish is returned when a command draft was created but could not
	// be published.
	ErrPublish = errors.New("CDF Job publish error")
)

// TooManyDevicesError is returned when a status request names more devices
// than the configured limit. The message text is part of the UI contract.
type TooManyDevicesError struct {
	Limit int
}

func (e *TooManyDevicesError) Error() string {
	return fmt.Sprintf("Cannont exceed %d devices per request", e.Limit)
}

// Is reports whether target is ErrTooManyDevices.
func (e *TooManyDevicesError) Is(target error) bool {
	return target == ErrTooManyDevices
}

// JobsAPI is the subset of the IoT client used for jobs.
type JobsAPI interface {
	ListJobs(ctx context.Context, in *iot.ListJobsInput, optFns ...func(*iot.Options)) (*iot.ListJobsOutput, error)
	ListJobExecutionsForJob(ctx context.Context, in *iot.ListJobExecutionsForJobInput, optFns ...func(*iot.Options)) (*iot.ListJobExecutionsForJobOutput, error)
	DescribeJobExecution(ctx context.Context, in *iot.DescribeJobExecutionInput, optFns ...func(*iot.Options)) (*iot.DescribeJobExecutionOutput, error)
	GetJobDocument(ctx context.Context, in *iot.GetJobDocumentInput, optFns ...func(*iot.Options)) (*iot.GetJobDocumentOutput, error)
}

// InvokeAPI is the subset of the Lambda client used to reach the Commands
// service.
type InvokeAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Searcher runs a query against one index.
type Searcher interface {
	Search(ctx context.Context, index string, query interface{}) (*search.Response, error)
}

// Config holds OTA settings.
type Config struct {
	CommandsFunction string
	TemplateID       string
	PageSize         int32
	MaxStatusDevices int
	LatestIndex      string
}

// Service creates OTA jobs and reports their progress.
type Service struct {
	jobs     JobsAPI
	invoker  InvokeAPI
	searcher Searcher
	cfg      Config
}

// NewService creates an OTA service.
func NewService(jobs JobsAPI, invoker InvokeAPI, searcher Searcher, cfg Config) *Service {
	if cfg.TemplateID == "" {
		cfg.TemplateID = "OtaUpdate"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxStatusDevices <= 0 {
		cfg.MaxStatusDevices = 20
	}
	if cfg.LatestIndex == "" {
		cfg.LatestIndex = "latest_telemetry"
	}
	return &Service{jobs: jobs, invoker: invoker, searcher: searcher, cfg: cfg}
}

// ThingName returns the last path segment of an IoT thing ARN.
func ThingName(arn string) string {
	return arn[strings.LastIndex(arn, "/")+1:]
}

func unixSeconds(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	s := t.Unix()
	return &s
}
