package exposure

import (
	"context"
	"log/slog"
)

// Sink receives exposure events. The decision path treats Log as
// fire-and-forget: a sink error is logged by the caller and never
// changes a variant the caller already received.
type Sink interface {
	// Log delivers one event. It should return quickly; slow delivery
	// belongs behind a buffer (see recorder.StoreSink).
	Log(ctx context.Context, event *Event) error

	// Close flushes buffered events and releases resources. Events
	// accepted before Close are delivered best-effort.
	Close() error
}

// DebugSink logs each event at debug level and discards it. It is the
// default sink: visible during development, nearly free in production.
type DebugSink struct {
	logger *slog.Logger
}

// NewDebugSink creates a DebugSink. A nil logger means slog.Default().
func NewDebugSink(logger *slog.Logger) *DebugSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugSink{
		logger: logger.With("component", "exposure.debug"),
	}
}

// Log implements Sink.
func (s *DebugSink) Log(ctx context.Context, event *Event) error {
	s.logger.Debug("exposure event",
		"event_id", event.ID,
		"experiment", event.Experiment,
		"variant", event.Variant,
		"event_type", event.EventType,
		"descriptors", len(event.Descriptors),
	)
	return nil
}

// Close implements Sink.
func (s *DebugSink) Close() error {
	return nil
}
