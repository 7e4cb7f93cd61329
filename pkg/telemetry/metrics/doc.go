// Package metrics provides Prometheus metrics collection for Tessera.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring variant
// decisions, the experiment configuration cache, and the exposure event
// side-channel. Recording is cheap enough to sit on the request hot path.
//
// # Metrics Categories
//
//   - Decision Metrics: Decision count by experiment/outcome, duration, context assemblies
//   - Cache Metrics: Configuration reload attempts, snapshot generation, last success time
//   - Exposure Metrics: Emission count by result, sink buffer depth
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(config, registry)
//
//	// Record a decision
//	collector.RecordDecision(
//		"new_checkout",        // experiment
//		"assigned",            // outcome
//		80*time.Microsecond,   // duration
//	)
//
//	// Record cache activity
//	collector.RecordConfigReload("success")
//	collector.SetConfigGeneration(7)
//
//	// Record exposure activity
//	collector.RecordExposure("success")
//
// # Prometheus Endpoint
//
// All metrics are exposed on the /metrics endpoint in standard Prometheus format:
//
//	# HELP tessera_decisions_total Total number of variant decisions
//	# TYPE tessera_decisions_total counter
//	tessera_decisions_total{experiment="new_checkout",outcome="assigned"} 1234
//
// # Cardinality Management
//
// The collector implements cardinality limits to prevent memory issues:
//
//   - Maximum 10,000 unique label combinations per metric
//   - Overflow experiment labels aggregated into "other"
package metrics
