// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/fleetmanager/internal/logging"
	"github.com/tomtom215/fleetmanager/internal/metrics"
)

// Message kinds, also the last token of each subject.
const (
	KindTelemetry = "telemetry"
	KindMisc      = "misc"
	KindTrip      = "trip"
	KindEvent     = "event"
	KindDTC       = "dtc"
	KindAnomaly   = "anomaly"
	KindOTA       = "ota"
)

// SubscriberConfig holds NATS settings.
type SubscriberConfig struct {
	URL           string
	SubjectPrefix string
	QueueGroup    string
	// Workers bounds in-flight messages per subject.
	Workers int
	// Timeout bounds the processing of a single message.
	Timeout time.Duration
}

type handlerFunc func(ctx context.Context, doc Document) error

// Subscriber feeds NATS messages to a Processor. It implements
// suture.Service.
type Subscriber struct {
	cfg      SubscriberConfig
	handlers map[string]handlerFunc
	wg       sync.WaitGroup
}

// NewSubscriber creates a subscriber for every message kind.
func NewSubscriber(cfg SubscriberConfig, proc *Processor) *Subscriber {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "fleet"
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "fleetmanager-ingest"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Subscriber{
		cfg: cfg,
		handlers: map[string]handlerFunc{
			KindTelemetry: proc.Telemetry,
			KindMisc:      proc.Misc,
			KindTrip:      proc.Trip,
			KindEvent:     proc.Event,
			KindDTC:       proc.DTC,
			KindAnomaly:   proc.Anomaly,
			KindOTA:       proc.OTAStatus,
		},
	}
}

// Subjects returns the subscribed subjects in a stable order.
func (s *Subscriber) Subjects() []string {
	subjects := make([]string, 0, len(s.handlers))
	for kind := range s.handlers {
		subjects = append(subjects, s.subject(kind))
	}
	sort.Strings(subjects)
	return subjects
}

func (s *Subscriber) subject(kind string) string {
	return s.cfg.SubjectPrefix + "." + kind
}

// Dispatch decodes and processes one message of the given kind.
func (s *Subscriber) Dispatch(ctx context.Context, kind string, data []byte) error {
	handle, ok := s.handlers[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, kind)
	}
	doc, err := Normalize(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return handle(ctx, doc)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid"
	default:
		return "error"
	}
}

// callback runs messages for one subject on at most Workers goroutines.
// When every slot is busy the subscription goroutine blocks, leaving
// further messages buffered in the client.
func (s *Subscriber) callback(ctx context.Context, kind string) nats.MsgHandler {
	slots := make(chan struct{}, s.cfg.Workers)
	subject := s.subject(kind)

	return func(msg *nats.Msg) {
		slots <- struct{}{}
		s.wg.Add(1)
		go func() {
			defer func() {
				<-slots
				s.wg.Done()
			}()

			start := time.Now()
			err := s.Dispatch(ctx, kind, msg.Data)
			metrics.RecordIngest(subject, result(err), time.Since(start))
			if err != nil {
				logging.Error().Err(err).Str("subject", subject).Msg("Failed to process message")
			}
		}()
	}
}

// Serve connects, subscribes and processes messages until ctx is canceled,
// then drains the connection.
func (s *Subscriber) Serve(ctx context.Context) error {
	closed := make(chan struct{})
	nc, err := nats.Connect(s.cfg.URL,
		nats.Name("fleetmanager-ingest"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) { close(closed) }),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	// Handlers keep running while the connection drains, so they get a
	// context that outlives ctx.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	for kind := range s.handlers {
		if _, err := nc.QueueSubscribe(s.subject(kind), s.cfg.QueueGroup, s.callback(workCtx, kind)); err != nil {
			nc.Close()
			return fmt.Errorf("subscribe %s: %w", s.subject(kind), err)
		}
	}
	logging.Info().
		Strs("subjects", s.Subjects()).
		Str("queue", s.cfg.QueueGroup).
		Msg("Ingest subscriber started")

	<-ctx.Done()

	if err := nc.Drain(); err != nil {
		nc.Close()
	}
	select {
	case <-closed:
	case <-time.After(s.cfg.Timeout):
		logging.Warn().Msg("NATS drain timed out")
		nc.Close()
	}
	s.wg.Wait()

	logging.Info().Msg("Ingest subscriber stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *Subscriber) String() string {
	return "ingest-subscriber"
}
