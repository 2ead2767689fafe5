// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ota

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	iottypes "github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
	"github.com/tomtom215/fleetmanager/internal/vehicledata"
)

// Job summarises one snapshot job. Times are unix seconds.
type Job struct {
	JobArn          string `json:"jobArn"`
	JobID           string `json:"jobId"`
	ThingGroupID    string `json:"thingGroupId,omitempty"`
	TargetSelection string `json:"targetSelection"`
	Status          string `json:"status"`
	CreatedAt       *int64 `json:"createdAt,omitempty"`
	LastUpdatedAt   *int64 `json:"lastUpdatedAt,omitempty"`
	CompletedAt     *int64 `json:"completedAt,omitempty"`
}

// JobsResult is one page of jobs.
type JobsResult struct {
	Jobs      []Job  `json:"jobs"`
	NextToken string `json:"nextToken,omitempty"`
}

// ExecutionSummary is the state of a job on one device.
type ExecutionSummary struct {
	ExecutionNumber *int64 `json:"executionNumber,omitempty"`
	LastUpdatedAt   *int64 `json:"lastUpdatedAt,omitempty"`
	QueuedAt        *int64 `json:"queuedAt,omitempty"`
	StartedAt       *int64 `json:"startedAt,omitempty"`
	Status          string `json:"status"`
}

// JobDevice is a device targeted by a job, with its vehicle when known.
type JobDevice struct {
	JobExecutionSummary *ExecutionSummary `json:"jobExecutionSummary,omitempty"`
	ThingArn            string            `json:"thingArn"`
	DeviceID            string            `json:"deviceId"`
	VIN                 string            `json:"vin,omitempty"`
}

// JobDevicesResult is one page of job devices.
type JobDevicesResult struct {
	ExecutionSummaries []JobDevice `json:"executionSummaries"`
	NextToken          string      `json:"nextToken,omitempty"`
}

// StatusDetails carries device-reported progress.
type StatusDetails struct {
	DetailsMap map[string]string `json:"detailsMap,omitempty"`
}

// Execution is the detailed state of a job on one device.
type Execution struct {
	ApproximateSecondsBeforeTimedOut *int64         `json:"approximateSecondsBeforeTimedOut,omitempty"`
	ExecutionNumber                  *int64         `json:"executionNumber,omitempty"`
	ForceCanceled                    *bool          `json:"forceCanceled,omitempty"`
	JobID                            string         `json:"jobId"`
	LastUpdatedAt                    *int64         `json:"lastUpdatedAt,omitempty"`
	QueuedAt                         *int64         `json:"queuedAt,omitempty"`
	StartedAt                        *int64         `json:"startedAt,omitempty"`
	Status                           string         `json:"status"`
	StatusDetails                    *StatusDetails `json:"statusDetails,omitempty"`
	ThingArn                         string         `json:"thingArn"`
	VersionNumber                    int64          `json:"versionNumber"`
	DeviceID                         string         `json:"deviceId"`
}

// ExecutionStatus wraps one execution.
type ExecutionStatus struct {
	Execution Execution `json:"execution"`
}

// StatusesResult lists executions in request order.
type StatusesResult struct {
	ExecutionSummaries []ExecutionStatus `json:"executionSummaries"`
}

func optionalToken(token string) *string {
	if token == "" {
		return nil
	}
	return aws.String(token)
}

// ListJobs returns one page of snapshot jobs.
func (s *Service) ListJobs(ctx context.Context, token string) (result *JobsResult, err error) {
	defer func() { metrics.RecordOTAOperation("list_jobs", err) }()

	out, err := s.jobs.ListJobs(ctx, &iot.ListJobsInput{
		TargetSelection: iottypes.TargetSelectionSnapshot,
		MaxResults:      aws.Int32(s.cfg.PageSize),
		NextToken:       optionalToken(token),
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	result = &JobsResult{Jobs: make([]Job, 0, len(out.Jobs)), NextToken: aws.ToString(out.NextToken)}
	for _, j := range out.Jobs {
		result.Jobs = append(result.Jobs, Job{
			JobArn:          aws.ToString(j.JobArn),
			JobID:           aws.ToString(j.JobId),
			ThingGroupID:    aws.ToString(j.ThingGroupId),
			TargetSelection: string(j.TargetSelection),
			Status:          string(j.Status),
			CreatedAt:       unixSeconds(j.CreatedAt),
			LastUpdatedAt:   unixSeconds(j.LastUpdatedAt),
			CompletedAt:     unixSeconds(j.CompletedAt),
		})
	}
	return result, nil
}

type deviceDoc struct {
	Devices []struct {
		DeviceID string `json:"deviceid"`
	} `json:"devices"`
}

// JobDevices returns one page of devices targeted by a job, each mapped to
// the vehicle it is installed in.
func (s *Service) JobDevices(ctx context.Context, jobID, token string) (result *JobDevicesResult, err error) {
	defer func() { metrics.RecordOTAOperation("job_devices", err) }()

	out, err := s.jobs.ListJobExecutionsForJob(ctx, &iot.ListJobExecutionsForJobInput{
		JobId:      aws.String(jobID),
		MaxResults: aws.Int32(s.cfg.PageSize),
		NextToken:  optionalToken(token),
	})
	if err != nil {
		return nil, fmt.Errorf("list job executions: %w", err)
	}

	result = &JobDevicesResult{
		ExecutionSummaries: make([]JobDevice, 0, len(out.ExecutionSummaries)),
		NextToken:          aws.ToString(out.NextToken),
	}
	ids := make([]string, 0, len(out.ExecutionSummaries))
	for _, e := range out.ExecutionSummaries {
		arn := aws.ToString(e.ThingArn)
		ids = append(ids, strings.ToLower(ThingName(arn)))
		result.ExecutionSummaries = append(result.ExecutionSummaries, JobDevice{
			JobExecutionSummary: executionSummary(e.JobExecutionSummary),
			ThingArn:            arn,
			DeviceID:            ThingName(arn),
		})
	}
	if len(ids) == 0 {
		return result, nil
	}

	resp, err := s.searcher.Search(ctx, s.cfg.LatestIndex, vehicledata.DeviceVinQuery(ids))
	if err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return result, nil
	}

	vins := make(map[string]string)
	for _, h := range resp.Hits.Hits {
		var doc deviceDoc
		if err := h.Decode(&doc); err != nil {
			return nil, err
		}
		for _, d := range doc.Devices {
			vins[d.DeviceID] = h.ID
		}
	}
	for i := range result.ExecutionSummaries {
		d := &result.ExecutionSummaries[i]
		d.VIN = vins[ids[i]]
		d.DeviceID = strings.ToUpper(ids[i])
	}
	return result, nil
}

func executionSummary(e *iottypes.JobExecutionSummary) *ExecutionSummary {
	if e == nil {
		return nil
	}
	return &ExecutionSummary{
		ExecutionNumber: e.ExecutionNumber,
		LastUpdatedAt:   unixSeconds(e.LastUpdatedAt),
		QueuedAt:        unixSeconds(e.QueuedAt),
		StartedAt:       unixSeconds(e.StartedAt),
		Status:          string(e.Status),
	}
}

// DeviceStatuses describes the job execution on each device. Any failed
// lookup fails the whole request.
func (s *Service) DeviceStatuses(ctx context.Context, jobID string, deviceIDs []string) (result *StatusesResult, err error) {
	defer func() { metrics.RecordOTAOperation("device_statuses", err) }()

	if len(deviceIDs) > s.cfg.MaxStatusDevices {
		return nil, &TooManyDevicesError{Limit: s.cfg.MaxStatusDevices}
	}

	executions := make([]ExecutionStatus, len(deviceIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxStatusDevices)
	for i, id := range deviceIDs {
		g.Go(func() error {
			out, err := s.jobs.DescribeJobExecution(gctx, &iot.DescribeJobExecutionInput{
				JobId:     aws.String(jobID),
				ThingName: aws.String(strings.ToUpper(id)),
			})
			if err != nil {
				return fmt.Errorf("describe execution for %s: %w", id, err)
			}
			executions[i] = ExecutionStatus{Execution: execution(out.Execution)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("Device status lookup failed")
		return nil, err
	}
	return &StatusesResult{ExecutionSummaries: executions}, nil
}

func execution(e *iottypes.JobExecution) Execution {
	if e == nil {
		return Execution{}
	}
	ex := Execution{
		ApproximateSecondsBeforeTimedOut: e.ApproximateSecondsBeforeTimedOut,
		ExecutionNumber:                  e.ExecutionNumber,
		ForceCanceled:                    e.ForceCanceled,
		JobID:                            aws.ToString(e.JobId),
		LastUpdatedAt:                    unixSeconds(e.LastUpdatedAt),
		QueuedAt:                         unixSeconds(e.QueuedAt),
		StartedAt:                        unixSeconds(e.StartedAt),
		Status:                           string(e.Status),
		ThingArn:                         aws.ToString(e.ThingArn),
		VersionNumber:                    e.VersionNumber,
		DeviceID:                         ThingName(aws.ToString(e.ThingArn)),
	}
	if e.StatusDetails != nil {
		ex.StatusDetails = &StatusDetails{DetailsMap: e.StatusDetails.DetailsMap}
	}
	return ex
}

// DesiredVersion reads the software version a job installs from its job
// document.
func (s *Service) DesiredVersion(ctx context.Context, jobID string) (string, error) {
	out, err := s.jobs.GetJobDocument(ctx, &iot.GetJobDocumentInput{JobId: aws.String(jobID)})
	if err != nil {
		return "", fmt.Errorf("get job document %s: %w", jobID, err)
	}
	var doc struct {
		DesiredVersion string `json:"desiredVersion"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.Document)), &doc); err != nil {
		return "", fmt.Errorf("decode job document %s: %w", jobID, err)
	}
	if doc.DesiredVersion == "" {
		return "", fmt.Errorf("job document %s has no desiredVersion", jobID)
	}
	return doc.DesiredVersion, nil
}
