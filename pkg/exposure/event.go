package exposure

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeExpose is the event type stamped on every event this module
// emits.
const EventTypeExpose = "expose"

// Assignment is the outcome of a decision that produced a variant. The
// decision client hands one to the exposure side-channel; it never
// travels the other way.
type Assignment struct {
	// Experiment is the experiment name the caller asked about.
	Experiment string

	// Variant is the assigned variant name.
	Variant string

	// Events holds the raw engine descriptors for this assignment.
	// Their format belongs to the upstream analytics pipeline; they are
	// forwarded byte-for-byte and never parsed here.
	Events []string
}

// Event is one exposure: the record that a request was actually shown a
// variant. Analytics attributes metric movement to experiments through
// these.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Experiment and Variant identify the assignment being exposed.
	Experiment string `json:"experiment"`
	Variant    string `json:"variant"`

	// EventType is EventTypeExpose for events assembled by this module.
	EventType string `json:"event_type"`

	// Inputs are caller-supplied enrichment attributes, merged over the
	// evaluation context's event fields.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Context is the engine field mapping the decision was evaluated
	// against, with sensitive fields redacted.
	Context map[string]any `json:"context,omitempty"`

	// Descriptors are the raw engine event strings, opaque.
	Descriptors []string `json:"descriptors,omitempty"`

	// TraceID and SpanID tie the exposure to the request's trace when
	// the request carried a recording span.
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	// LoggedAt is when the event was assembled.
	LoggedAt time.Time `json:"logged_at"`
}

// NewEvent assembles an exposure event for an assignment. The context
// mapping is redacted before it is attached; the caller's map is not
// modified.
func NewEvent(a Assignment, evalContext map[string]any, inputs map[string]any) *Event {
	return &Event{
		ID:          uuid.New().String(),
		Experiment:  a.Experiment,
		Variant:     a.Variant,
		EventType:   EventTypeExpose,
		Inputs:      inputs,
		Context:     RedactContext(evalContext),
		Descriptors: append([]string(nil), a.Events...),
		LoggedAt:    time.Now().UTC(),
	}
}
