// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

// requestSigner signs an outgoing request before it is sent.
type requestSigner interface {
	Sign(ctx context.Context, req *http.Request, body []byte) error
}

// SigV4Signer signs requests for an AWS managed search domain.
type SigV4Signer struct {
	creds   aws.CredentialsProvider
	signer  *v4.Signer
	region  string
	service string
	now     func() time.Time
}

// NewSigV4Signer creates a signer for service ("es") in region.
func NewSigV4Signer(creds aws.CredentialsProvider, region, service string) *SigV4Signer {
	if service == "" {
		service = "es"
	}
	return &SigV4Signer{
		creds:   creds,
		signer:  v4.NewSigner(),
		region:  region,
		service: service,
		now:     time.Now,
	}
}

// Sign adds the SigV4 Authorization header to req.
func (s *SigV4Signer) Sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve AWS credentials: %w", err)
	}

	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, s.service, s.region, s.now()); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	return nil
}
