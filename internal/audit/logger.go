// Fleetmanager - Fleet Telemetry API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetmanager

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fleetmanager/internal/auth"
	"github.com/tomtom215/fleetmanager/internal/logging"
)

// Config holds configuration for the audit logger.
type Config struct {
	// LogLevel filters events by minimum severity.
	LogLevel Severity

	// BufferSize is the size of the async write buffer.
	BufferSize int

	// LogToStdout also writes events to the application log.
	LogToStdout bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:    SeverityInfo,
		BufferSize:  256,
		LogToStdout: true,
	}
}

// Logger records audit events without blocking the request that caused them.
type Logger struct {
	config    Config
	store     Store
	eventChan chan *Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger starts an audit logger. store may be nil, in which case events
// only reach the application log.
func NewLogger(store Store, config Config) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.LogLevel == "" {
		config.LogLevel = SeverityInfo
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.config.LogToStdout {
		data, err := json.Marshal(event)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to marshal audit event")
		} else {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.store.Save(ctx, event); err != nil {
			logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
		}
	}
}

// Log queues an event. A full buffer drops the event with a warning.
func (l *Logger) Log(event *Event) {
	if severityOrder[event.Severity] < severityOrder[l.config.LogLevel] {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case <-l.stopChan:
		logging.Warn().Str("event_id", event.ID).Msg("Audit logger closed, dropping event")
		return
	default:
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close flushes buffered events and stops the writer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Retention returns a task deleting events older than days. It is meant to
// run on a timer.
func Retention(store Store, days int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		count, err := store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if count > 0 {
			logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
		}
		return nil
	}
}

// FromRequest starts an event describing r: the authenticated principal,
// the client address and the request ID.
func FromRequest(r *http.Request, typ EventType, outcome Outcome, action string) *Event {
	e := &Event{
		Type:      typ,
		Severity:  SeverityInfo,
		Outcome:   outcome,
		Actor:     Actor{ID: "anonymous"},
		Source:    Source{IPAddress: clientIP(r), UserAgent: r.UserAgent()},
		Action:    action,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if outcome == OutcomeFailure {
		e.Severity = SeverityWarning
	}
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		e.Actor = Actor{ID: p.Subject, Name: p.Username, Groups: p.Groups}
	}
	return e
}

// WithTarget sets the event target and returns e.
func (e *Event) WithTarget(typ, id string) *Event {
	e.Target = &Target{ID: id, Type: typ}
	return e
}

// WithMetadata sets event metadata from any JSON-encodable value.
func (e *Event) WithMetadata(v interface{}) *Event {
	e.Metadata = mustJSON(v)
	return e
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
