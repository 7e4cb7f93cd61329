package exposure

import (
	"context"
	"io"
	"time"
)

// Record is the persisted form of an exposure event. UserID is lifted
// out of the context mapping so backends can index it.
type Record struct {
	ID          string         `json:"id"`
	Experiment  string         `json:"experiment"`
	Variant     string         `json:"variant"`
	EventType   string         `json:"event_type"`
	UserID      string         `json:"user_id"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Descriptors []string       `json:"descriptors,omitempty"`
	TraceID     string         `json:"trace_id,omitempty"`
	SpanID      string         `json:"span_id,omitempty"`

	// LoggedAt is when the event was assembled; StoredAt when the
	// backend accepted it.
	LoggedAt time.Time `json:"logged_at"`
	StoredAt time.Time `json:"stored_at"`
}

// NewRecord converts an event into its persisted form.
func NewRecord(event *Event) *Record {
	r := &Record{
		ID:          event.ID,
		Experiment:  event.Experiment,
		Variant:     event.Variant,
		EventType:   event.EventType,
		Inputs:      event.Inputs,
		Context:     event.Context,
		Descriptors: event.Descriptors,
		TraceID:     event.TraceID,
		SpanID:      event.SpanID,
		LoggedAt:    event.LoggedAt,
	}
	if uid, ok := event.Context["user_id"].(string); ok {
		r.UserID = uid
	}
	return r
}

// Query defines filter parameters for querying exposure records. Zero
// fields mean "no filter".
type Query struct {
	// Time range over LoggedAt, inclusive start, exclusive end.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Exact-match filters.
	Experiment string `json:"experiment,omitempty"`
	Variant    string `json:"variant,omitempty"`
	UserID     string `json:"user_id,omitempty"`

	// Pagination.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by LoggedAt: "asc" or "desc" (default "desc").
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage is the interface exposure store backends implement.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters. Returns an empty
	// slice when nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteOlderThan removes records with LoggedAt before the cutoff
	// and returns how many were removed. Retention enforcement runs on
	// this.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes exposure records to a stream in some serialization
// format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
