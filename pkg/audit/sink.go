/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/metrics"
)

// Sink defines the interface for audit event destinations.
type Sink interface {
	// Write sends an audit event to the sink.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// LogSink writes audit events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Write logs the audit event.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("notifier", event.Notifier),
	}
	if event.CorrelationID != "" {
		fields = append(fields, zap.String("correlation_id", event.CorrelationID))
	}
	if event.From != "" {
		fields = append(fields, zap.String("from", event.From))
	}
	if len(event.Recipients) > 0 {
		fields = append(fields, zap.Strings("recipients", event.Recipients))
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}
	if event.Attachments > 0 {
		fields = append(fields, zap.Int("attachments", event.Attachments))
	}
	if event.Host != "" {
		fields = append(fields, zap.String("host", event.Host))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	s.logger.Info("audit_event", fields...)
	return nil
}

// Close is a no-op for LogSink.
func (s *LogSink) Close() error {
	return nil
}

// Name returns the sink identifier.
func (s *LogSink) Name() string {
	return "log"
}

// MultiSink fans events out to several sinks. A failing sink does not stop
// the others.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a new MultiSink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write sends the event to all sinks and joins their errors.
func (m *MultiSink) Write(ctx context.Context, event *Event) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Write(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks.
func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name returns the sink identifier.
func (m *MultiSink) Name() string {
	return "multi"
}

// Recorder writes events to a sink on a best-effort basis: failures are
// logged and counted but never returned to the caller.
type Recorder struct {
	sink Sink
	log  *zap.SugaredLogger
}

// NewRecorder creates a Recorder. A nil sink disables recording.
func NewRecorder(sink Sink, log *zap.SugaredLogger) *Recorder {
	return &Recorder{sink: sink, log: log}
}

// Record writes event to the sink.
func (r *Recorder) Record(ctx context.Context, event *Event) {
	if r == nil || r.sink == nil {
		return
	}
	if err := r.sink.Write(ctx, event); err != nil {
		metrics.AuditEventsWritten.WithLabelValues(r.sink.Name(), "error").Inc()
		r.log.Warnw("Failed to write audit event",
			"eventID", event.ID,
			"eventType", event.Type,
			"sink", r.sink.Name(),
			"error", err)
		return
	}
	metrics.AuditEventsWritten.WithLabelValues(r.sink.Name(), "success").Inc()
}

// Close closes the underlying sink.
func (r *Recorder) Close() error {
	if r == nil || r.sink == nil {
		return nil
	}
	return r.sink.Close()
}
