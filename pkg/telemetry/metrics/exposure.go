package metrics

import (
	"edgelab-hq/tessera/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExposureMetrics tracks the exposure event side-channel.
//
// Metrics:
//   - tessera_exposures_total: Total exposure emissions by result
//   - tessera_exposure_queue_depth: Events waiting in the sink buffer
type ExposureMetrics struct {
	// Exposure emission counter
	exposuresTotal *prometheus.CounterVec

	// Current sink buffer depth
	queueDepth prometheus.Gauge
}

// NewExposureMetrics creates and registers exposure metrics with the provided registry.
func NewExposureMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExposureMetrics {
	em := &ExposureMetrics{
		exposuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exposures_total",
				Help:      "Total number of exposure event emissions",
			},
			[]string{"result"},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exposure_queue_depth",
				Help:      "Number of exposure events waiting in the sink buffer",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		em.exposuresTotal,
		em.queueDepth,
	)

	return em
}

// RecordExposure records an exposure emission.
//
// Parameters:
//   - result: "success" or "failure"
//
// A "failure" means the sink rejected the event (buffer full, store
// write failed). Variant decisions are unaffected either way.
func (em *ExposureMetrics) RecordExposure(result string) {
	em.exposuresTotal.WithLabelValues(result).Inc()
}

// SetQueueDepth updates the sink buffer depth gauge.
func (em *ExposureMetrics) SetQueueDepth(depth int) {
	em.queueDepth.Set(float64(depth))
}
