package experiments

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/telemetry/metrics"
)

// Decision outcomes recorded in metrics.
const (
	outcomeAssigned     = "assigned"
	outcomeNoAssignment = "no_assignment"
	outcomeError        = "error"
	outcomeUnavailable  = "unavailable"
)

// ClientOptions carries the optional wiring for a Client. The factory
// fills these; hosts constructing clients directly can leave any of them
// zero.
type ClientOptions struct {
	// Logger receives decision warnings. Default: slog.Default()
	Logger *slog.Logger

	// Metrics receives decision counters and durations. Optional.
	Metrics *metrics.Collector

	// Span is the request's span context, attached to exposure events
	// when the per-call context carries no recording span of its own.
	Span trace.SpanContext
}

// Client makes experiment decisions for a single request. It binds one
// evaluation context to the shared config cache and the exposure sink;
// build one per request and discard it with the request.
//
// Every path through a Client is fail-open: when the rule set is
// unavailable or evaluation errors, callers get "no assignment" and the
// request proceeds on default behavior. A Client never panics and never
// blocks on a config refresh.
type Client struct {
	evalCtx EvaluationContext
	cache   *ConfigCache
	sink    exposure.Sink
	logger  *slog.Logger
	metrics *metrics.Collector
	span    trace.SpanContext
}

// NewClient creates a decision client for one request.
func NewClient(evalCtx EvaluationContext, cache *ConfigCache, sink exposure.Sink, opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		evalCtx: evalCtx,
		cache:   cache,
		sink:    sink,
		logger:  logger.With("component", "experiments.client"),
		metrics: opts.Metrics,
		span:    opts.Span,
	}
}

// Context returns the evaluation context this client decides with.
func (c *Client) Context() EvaluationContext {
	return c.evalCtx
}

// GetVariant returns the variant assigned to this request's context for
// the named experiment, firing an exposure event when an assignment is
// made. The second return is false when there is no assignment for any
// reason: rule set not loaded, evaluation error, targeting miss,
// experiment disabled, or bucket held back.
//
// Callers branch on the boolean and fall through to default behavior;
// they never see an error. Exposure delivery failure is logged and does
// not affect the returned variant.
func (c *Client) GetVariant(ctx context.Context, experiment string, inputs map[string]any) (string, bool) {
	variant, assignment, ok := c.decide(experiment)
	if !ok {
		return "", false
	}
	c.expose(ctx, assignment, inputs)
	return variant, true
}

// GetVariantWithoutExpose is GetVariant minus the exposure event, for
// callers that look up a variant without showing it to the user yet.
// Pair it with Expose at the point the variant actually renders.
func (c *Client) GetVariantWithoutExpose(ctx context.Context, experiment string) (string, bool) {
	variant, _, ok := c.decide(experiment)
	if !ok {
		return "", false
	}
	return variant, true
}

// Expose emits an exposure event for a variant obtained earlier via
// GetVariantWithoutExpose. The event is rebuilt from the current rule
// set; if the experiment has since left the rule set the event still
// fires, just without engine descriptors.
func (c *Client) Expose(ctx context.Context, experiment, variant string, inputs map[string]any) {
	assignment := exposure.Assignment{
		Experiment: experiment,
		Variant:    variant,
	}
	if handle, ok := c.cache.Current(); ok {
		if descriptor, ok := handle.Describe(experiment, variant); ok {
			assignment.Events = []string{descriptor}
		}
	}
	c.expose(ctx, assignment, inputs)
}

// decide runs the engine for one experiment and maps the result onto the
// fail-open protocol.
func (c *Client) decide(experiment string) (string, exposure.Assignment, bool) {
	start := time.Now()

	handle, ok := c.cache.Current()
	if !ok {
		c.logger.Warn("experiment config unavailable, returning no assignment",
			"experiment", experiment,
		)
		c.recordDecision(experiment, outcomeUnavailable, start)
		return "", exposure.Assignment{}, false
	}

	choice := handle.Choose(experiment, c.evalCtx.ToMap())
	if choice.Err != "" {
		c.logger.Warn("experiment evaluation failed",
			"experiment", experiment,
			"error", choice.Err,
		)
		c.recordDecision(experiment, outcomeError, start)
		return "", exposure.Assignment{}, false
	}
	if choice.Variant == nil {
		// Valid no-assignment: disabled, out of window, targeting miss,
		// or bucket held back. Not worth a log line per request.
		c.recordDecision(experiment, outcomeNoAssignment, start)
		return "", exposure.Assignment{}, false
	}

	variant := *choice.Variant
	c.recordDecision(experiment, outcomeAssigned, start)
	return variant, exposure.Assignment{
		Experiment: experiment,
		Variant:    variant,
		Events:     choice.Events,
	}, true
}

// expose assembles and emits one exposure event. Failures are logged and
// swallowed: the caller already has its variant.
func (c *Client) expose(ctx context.Context, assignment exposure.Assignment, inputs map[string]any) {
	if c.sink == nil {
		return
	}

	event := exposure.NewEvent(assignment, c.evalCtx.ToMap(), c.eventInputs(inputs))
	if sc := c.spanContext(ctx); sc.IsValid() {
		event.TraceID = sc.TraceID().String()
		event.SpanID = sc.SpanID().String()
	}

	if err := c.sink.Log(ctx, event); err != nil {
		c.logger.Warn("exposure emission failed",
			"experiment", assignment.Experiment,
			"variant", assignment.Variant,
			"error", err,
		)
		c.recordExposure("failure")
		return
	}
	c.recordExposure("success")
}

// eventInputs merges the context's event fields under the caller's
// per-call inputs; the caller wins on key collisions.
func (c *Client) eventInputs(inputs map[string]any) map[string]any {
	if len(c.evalCtx.EventFields) == 0 && len(inputs) == 0 {
		return nil
	}
	merged := make(map[string]any, len(c.evalCtx.EventFields)+len(inputs))
	for k, v := range c.evalCtx.EventFields {
		merged[k] = v
	}
	for k, v := range inputs {
		merged[k] = v
	}
	return merged
}

// spanContext prefers a live span on the call context over the one
// captured at client construction.
func (c *Client) spanContext(ctx context.Context) trace.SpanContext {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc
	}
	return c.span
}

func (c *Client) recordDecision(experiment, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordDecision(experiment, outcome, time.Since(start))
	}
}

func (c *Client) recordExposure(result string) {
	if c.metrics != nil {
		c.metrics.RecordExposure(result)
	}
}
