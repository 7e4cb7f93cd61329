package metrics

import (
	"time"

	"edgelab-hq/tessera/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks metrics related to variant decisions.
//
// Metrics:
//   - tessera_decisions_total: Total decisions by experiment and outcome
//   - tessera_decision_duration_seconds: Decision duration
//   - tessera_context_builds_total: Evaluation context assemblies by outcome
type DecisionMetrics struct {
	// Total decisions by experiment and outcome
	decisionsTotal *prometheus.CounterVec

	// Decision duration histogram
	decisionDuration prometheus.Histogram

	// Context assembly outcomes (full, minimal, failed)
	contextBuildsTotal *prometheus.CounterVec
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decisions_total",
				Help:      "Total number of variant decisions",
			},
			[]string{"experiment", "outcome"},
		),

		decisionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Duration of variant decisions in seconds",
				// Decisions are in-memory hash work, fast (< 10ms)
				Buckets: cfg.DecisionDurationBuckets,
			},
		),

		contextBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "context_builds_total",
				Help:      "Total number of evaluation context assemblies",
			},
			[]string{"outcome"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		dm.decisionsTotal,
		dm.decisionDuration,
		dm.contextBuildsTotal,
	)

	return dm
}

// RecordDecision records one variant decision.
//
// Parameters:
//   - experiment: Experiment name
//   - outcome: Decision outcome ("assigned", "no_assignment", "error", "unavailable")
//   - duration: Time taken to decide
func (dm *DecisionMetrics) RecordDecision(experiment, outcome string, duration time.Duration) {
	dm.decisionsTotal.WithLabelValues(experiment, outcome).Inc()
	dm.decisionDuration.Observe(duration.Seconds())
}

// RecordContextBuild records one evaluation context assembly.
//
// Parameters:
//   - outcome: Assembly outcome ("full", "minimal", "failed")
func (dm *DecisionMetrics) RecordContextBuild(outcome string) {
	dm.contextBuildsTotal.WithLabelValues(outcome).Inc()
}
