package exposure

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDebugSink_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewDebugSink(logger)

	event := NewEvent(Assignment{Experiment: "new_checkout", Variant: "treatment"}, nil, nil)
	if err := sink.Log(context.Background(), event); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "new_checkout") {
		t.Errorf("log output = %q, want experiment name", out)
	}
	if !strings.Contains(out, event.ID) {
		t.Errorf("log output = %q, want event id %q", out, event.ID)
	}

	if err := sink.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDebugSink_NilLogger(t *testing.T) {
	sink := NewDebugSink(nil)
	event := NewEvent(Assignment{Experiment: "exp", Variant: "on"}, nil, nil)

	if err := sink.Log(context.Background(), event); err != nil {
		t.Errorf("Log() error = %v", err)
	}
}
