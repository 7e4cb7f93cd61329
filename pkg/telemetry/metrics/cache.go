package metrics

import (
	"time"

	"edgelab-hq/tessera/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the experiment configuration cache.
//
// Metrics:
//   - tessera_config_reloads_total: Total reload attempts by result
//   - tessera_config_generation: Generation counter of the live snapshot
//   - tessera_config_last_success_timestamp_seconds: When the live snapshot was loaded
type CacheMetrics struct {
	// Reload attempt counter
	reloadsTotal *prometheus.CounterVec

	// Generation of the currently published snapshot
	generation prometheus.Gauge

	// Unix timestamp of the last successful reload
	lastSuccessTimestamp prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "config_reloads_total",
				Help:      "Total number of experiment configuration reload attempts",
			},
			[]string{"result"},
		),

		generation: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "config_generation",
				Help:      "Generation counter of the live experiment configuration snapshot",
			},
		),

		lastSuccessTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "config_last_success_timestamp_seconds",
				Help:      "Unix timestamp of the last successful configuration reload",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		cm.reloadsTotal,
		cm.generation,
		cm.lastSuccessTimestamp,
	)

	return cm
}

// RecordReload records a configuration reload attempt.
//
// Parameters:
//   - result: "success" or "failure"
//
// Alerting on a rising failure rate catches broken experiment artifacts
// before the stale snapshot ages out:
//
//	rate(tessera_config_reloads_total{result="failure"}[5m]) > 0
func (cm *CacheMetrics) RecordReload(result string) {
	cm.reloadsTotal.WithLabelValues(result).Inc()
}

// SetGeneration updates the published snapshot generation.
func (cm *CacheMetrics) SetGeneration(generation uint64) {
	cm.generation.Set(float64(generation))
}

// SetLastSuccess updates the last successful reload timestamp.
func (cm *CacheMetrics) SetLastSuccess(t time.Time) {
	cm.lastSuccessTimestamp.Set(float64(t.Unix()))
}
