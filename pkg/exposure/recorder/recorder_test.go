package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/exposure/storage"
)

// retainingStorage keeps records readable after Close so tests can
// assert on what the sink drained into it.
type retainingStorage struct {
	*storage.Memory
	closed atomic.Bool
}

func newRetainingStorage() *retainingStorage {
	return &retainingStorage{Memory: storage.NewMemory()}
}

func (s *retainingStorage) Close() error {
	s.closed.Store(true)
	return nil
}

// gatedStorage blocks its first Store until released, wedging the
// sink's worker so buffer state is deterministic mid-test.
type gatedStorage struct {
	*retainingStorage
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStorage() *gatedStorage {
	return &gatedStorage{
		retainingStorage: newRetainingStorage(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (s *gatedStorage) Store(ctx context.Context, record *exposure.Record) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.retainingStorage.Store(ctx, record)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(id, userID string) *exposure.Event {
	return &exposure.Event{
		ID:         id,
		Experiment: "new_checkout",
		Variant:    "treatment",
		EventType:  exposure.EventTypeExpose,
		Context:    map[string]any{"user_id": userID},
		LoggedAt:   time.Now().UTC(),
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestStoreSink_PersistsEvents(t *testing.T) {
	mem := newRetainingStorage()
	sink := NewStoreSink(mem, &Config{Logger: discardLogger()})
	defer sink.Close()

	for i := 0; i < 3; i++ {
		event := testEvent(fmt.Sprintf("ev-%d", i), "t2_abc")
		if err := sink.Log(context.Background(), event); err != nil {
			t.Fatalf("Log(ev-%d) error = %v", i, err)
		}
	}

	if !waitFor(5*time.Second, func() bool { return mem.Size() == 3 }) {
		t.Fatalf("stored %d records, want 3", mem.Size())
	}

	records, err := mem.Query(context.Background(), &exposure.Query{UserID: "t2_abc"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Query(t2_abc) returned %d records, want 3 with the user id lifted", len(records))
	}
	for _, r := range records {
		if r.StoredAt.IsZero() {
			t.Errorf("record %s has zero StoredAt", r.ID)
		}
	}
}

func TestStoreSink_DropsWhenBufferFull(t *testing.T) {
	gated := newGatedStorage()
	released := false
	release := func() {
		if !released {
			released = true
			close(gated.release)
		}
	}
	defer release()

	sink := NewStoreSink(gated, &Config{Buffer: 1, Logger: discardLogger()})
	defer sink.Close()

	// First event: accepted, picked up by the worker, which now blocks
	// inside Store with the buffer empty again.
	if err := sink.Log(context.Background(), testEvent("ev-0", "t2_a")); err != nil {
		t.Fatalf("Log(ev-0) error = %v", err)
	}
	<-gated.entered

	// Second event fills the single buffer slot.
	if err := sink.Log(context.Background(), testEvent("ev-1", "t2_a")); err != nil {
		t.Fatalf("Log(ev-1) error = %v", err)
	}

	// Third event has nowhere to go and is dropped, not waited on.
	err := sink.Log(context.Background(), testEvent("ev-2", "t2_a"))
	if err == nil {
		t.Fatal("Log(ev-2) error = nil, want drop on full buffer")
	}
	if !errors.Is(err, errBufferFull) {
		t.Errorf("Log(ev-2) error = %v, want wrapped %v", err, errBufferFull)
	}
	var sinkErr *exposure.SinkError
	if !errors.As(err, &sinkErr) {
		t.Fatalf("Log(ev-2) error type = %T, want *exposure.SinkError", err)
	}
	if sinkErr.EventID != "ev-2" {
		t.Errorf("EventID = %q, want ev-2", sinkErr.EventID)
	}

	release()
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// The accepted events were written; the dropped one was not.
	if gated.Size() != 2 {
		t.Errorf("stored %d records after close, want 2", gated.Size())
	}
	count, _ := gated.Memory.Count(context.Background(), &exposure.Query{})
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestStoreSink_CloseDrainsBuffer(t *testing.T) {
	mem := newRetainingStorage()
	sink := NewStoreSink(mem, &Config{Logger: discardLogger()})

	for i := 0; i < 25; i++ {
		if err := sink.Log(context.Background(), testEvent(fmt.Sprintf("ev-%d", i), "t2_a")); err != nil {
			t.Fatalf("Log(ev-%d) error = %v", i, err)
		}
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if mem.Size() != 25 {
		t.Errorf("stored %d records after close, want all 25 drained", mem.Size())
	}
	if !mem.closed.Load() {
		t.Error("backend not closed by sink Close")
	}
}

func TestStoreSink_LogAfterClose(t *testing.T) {
	sink := NewStoreSink(newRetainingStorage(), &Config{Logger: discardLogger()})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := sink.Log(context.Background(), testEvent("ev-late", "t2_a"))
	if !errors.Is(err, errClosed) {
		t.Errorf("Log() after close error = %v, want wrapped %v", err, errClosed)
	}
	var sinkErr *exposure.SinkError
	if !errors.As(err, &sinkErr) {
		t.Fatalf("error type = %T, want *exposure.SinkError", err)
	}
	if sinkErr.EventID != "ev-late" {
		t.Errorf("EventID = %q, want ev-late", sinkErr.EventID)
	}
}

func TestStoreSink_DoubleClose(t *testing.T) {
	sink := NewStoreSink(newRetainingStorage(), &Config{Logger: discardLogger()})

	if err := sink.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

func TestNewStoreSink_ConfigNormalization(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "zero fields", config: &Config{Logger: discardLogger()}},
		{name: "negative buffer", config: &Config{Buffer: -5, WriteTimeout: -time.Second, Logger: discardLogger()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewStoreSink(newRetainingStorage(), tt.config)
			defer sink.Close()

			if sink.config.Buffer != 1000 {
				t.Errorf("Buffer = %d, want default 1000", sink.config.Buffer)
			}
			if sink.config.WriteTimeout != 5*time.Second {
				t.Errorf("WriteTimeout = %v, want default 5s", sink.config.WriteTimeout)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Buffer != 1000 {
		t.Errorf("Buffer = %d, want 1000", config.Buffer)
	}
	if config.WriteTimeout != 5*time.Second {
		t.Errorf("WriteTimeout = %v, want 5s", config.WriteTimeout)
	}
}
