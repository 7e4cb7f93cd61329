package metrics

import (
	"fmt"
	"sync"
	"time"

	"edgelab-hq/tessera/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in Tessera.
// It manages metric registration, collection, and provides a unified interface
// for recording metrics across all components.
//
// The collector is designed to add negligible overhead to the decision path:
//   - Pre-allocated metric instances
//   - Lock-free counters where possible
//   - Cardinality limits on the experiment label to prevent memory issues
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Decision metrics
	decisionMetrics *DecisionMetrics

	// Configuration cache metrics
	cacheMetrics *CacheMetrics

	// Exposure side-channel metrics
	exposureMetrics *ExposureMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "tessera",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = "tessera"
	}
	if len(cfg.DecisionDurationBuckets) == 0 {
		// Decisions resolve in-memory (1µs - 16ms)
		cfg.DecisionDurationBuckets = prometheus.ExponentialBuckets(0.000001, 2, 15)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}

	// Initialize metric subsystems
	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.exposureMetrics = NewExposureMetrics(cfg, registry)

	return c
}

// RecordDecision records metrics for a completed variant decision.
//
// Parameters:
//   - experiment: Experiment name
//   - outcome: Decision outcome ("assigned", "no_assignment", "error", "unavailable")
//   - duration: Total decision duration
//
// Example:
//
//	collector.RecordDecision("new_checkout", "assigned", 80*time.Microsecond)
func (c *Collector) RecordDecision(experiment, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	// Check cardinality limit
	labelSet := fmt.Sprintf("decision:%s:%s", experiment, outcome)
	if !c.cardinalityLimiter.Allow(labelSet) {
		// Aggregate into "other" to prevent cardinality explosion
		experiment = "other"
	}

	c.decisionMetrics.RecordDecision(experiment, outcome, duration)
}

// RecordContextBuild records an evaluation context assembly.
//
// Parameters:
//   - outcome: Assembly outcome ("full", "minimal", "failed")
func (c *Collector) RecordContextBuild(outcome string) {
	if !c.config.Enabled {
		return
	}

	c.decisionMetrics.RecordContextBuild(outcome)
}

// RecordConfigReload records an experiment configuration reload attempt.
//
// Parameters:
//   - result: "success" or "failure"
func (c *Collector) RecordConfigReload(result string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordReload(result)
}

// SetConfigGeneration updates the published snapshot generation gauge.
//
// Parameters:
//   - generation: Monotonic counter incremented on each successful reload
func (c *Collector) SetConfigGeneration(generation uint64) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.SetGeneration(generation)
}

// SetConfigLastSuccess updates the last successful reload timestamp gauge.
//
// Parameters:
//   - t: Wall-clock time of the successful reload
//
// Staleness alerts compare this against the current time.
func (c *Collector) SetConfigLastSuccess(t time.Time) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.SetLastSuccess(t)
}

// RecordExposure records an exposure event emission.
//
// Parameters:
//   - result: "success" or "failure"
func (c *Collector) RecordExposure(result string) {
	if !c.config.Enabled {
		return
	}

	c.exposureMetrics.RecordExposure(result)
}

// SetExposureQueueDepth updates the sink buffer depth gauge.
//
// Parameters:
//   - depth: Number of events currently buffered
func (c *Collector) SetExposureQueueDepth(depth int) {
	if !c.config.Enabled {
		return
	}

	c.exposureMetrics.SetQueueDepth(depth)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
