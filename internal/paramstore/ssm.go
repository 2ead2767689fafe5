// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package paramstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/tomtom215/fleetmanager/internal/metrics"
)

// SSMAPI is the subset of the Systems Manager client the store uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMStore keeps parameters in AWS Systems Manager Parameter Store.
type SSMStore struct {
	client SSMAPI
}

// NewSSMStore creates a store backed by Parameter Store.
func NewSSMStore(client SSMAPI) *SSMStore {
	return &SSMStore{client: client}
}

// Get reads a plain String parameter. Description is not returned by
// Parameter Store reads and is left empty.
func (s *SSMStore) Get(ctx context.Context, name string) (p Parameter, err error) {
	defer func() { metrics.RecordParamOperation("ssm", "get", err) }()

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(false),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return Parameter{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return Parameter{}, fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil {
		return Parameter{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return Parameter{Name: name, Value: aws.ToString(out.Parameter.Value)}, nil
}

// Put validates and writes a parameter, overwriting any previous value.
func (s *SSMStore) Put(ctx context.Context, p Parameter) (err error) {
	defer func() { metrics.RecordParamOperation("ssm", "put", err) }()

	if err := p.Validate(); err != nil {
		return err
	}
	_, err = s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:           aws.String(p.Name),
		Description:    aws.String(p.Description),
		Value:          aws.String(p.Value),
		Type:           types.ParameterTypeString,
		Overwrite:      aws.Bool(true),
		AllowedPattern: aws.String(AllowedPattern),
		Tier:           types.ParameterTierStandard,
	})
	if err != nil {
		return fmt.Errorf("put parameter %s: %w", p.Name, err)
	}
	return nil
}
