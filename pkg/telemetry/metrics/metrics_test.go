package metrics

import (
	"testing"
	"time"

	"edgelab-hq/tessera/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                 true,
		Namespace:               "test",
		Subsystem:               "metrics",
		DecisionDurationBuckets: []float64{0.0001, 0.001, 0.01, 0.1},
	}
}

// TestCollector_NewCollector tests collector creation
func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.registry != registry {
		t.Error("Collector registry not set correctly")
	}
}

// TestCollector_NewCollector_Defaults tests namespace and bucket defaulting
func TestCollector_NewCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	registry := prometheus.NewRegistry()

	NewCollector(cfg, registry)

	if cfg.Namespace != "tessera" {
		t.Errorf("Expected default namespace tessera, got %q", cfg.Namespace)
	}
	if len(cfg.DecisionDurationBuckets) == 0 {
		t.Error("Expected default decision duration buckets to be set")
	}
}

// TestCollector_RecordDecision tests decision recording
func TestCollector_RecordDecision(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	tests := []struct {
		name       string
		experiment string
		outcome    string
		duration   time.Duration
	}{
		{
			name:       "assigned decision",
			experiment: "new_checkout",
			outcome:    "assigned",
			duration:   80 * time.Microsecond,
		},
		{
			name:       "no assignment",
			experiment: "new_checkout",
			outcome:    "no_assignment",
			duration:   50 * time.Microsecond,
		},
		{
			name:       "engine error",
			experiment: "geo_test",
			outcome:    "error",
			duration:   30 * time.Microsecond,
		},
		{
			name:       "engine unavailable",
			experiment: "geo_test",
			outcome:    "unavailable",
			duration:   5 * time.Microsecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector.RecordDecision(tt.experiment, tt.outcome, tt.duration)

			// Verify decision counter was incremented
			count := testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues(tt.experiment, tt.outcome))
			if count < 1 {
				t.Errorf("Expected decision counter >= 1, got %f", count)
			}
		})
	}
}

// TestCollector_CacheMetrics tests configuration cache metric recording
func TestCollector_CacheMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	// Test reload recording
	t.Run("record reload", func(t *testing.T) {
		collector.RecordConfigReload("success")
		count := testutil.ToFloat64(collector.cacheMetrics.reloadsTotal.WithLabelValues("success"))
		if count < 1 {
			t.Errorf("Expected reload count >= 1, got %f", count)
		}

		collector.RecordConfigReload("failure")
		count = testutil.ToFloat64(collector.cacheMetrics.reloadsTotal.WithLabelValues("failure"))
		if count < 1 {
			t.Errorf("Expected failure count >= 1, got %f", count)
		}
	})

	// Test generation gauge
	t.Run("set generation", func(t *testing.T) {
		collector.SetConfigGeneration(7)
		gen := testutil.ToFloat64(collector.cacheMetrics.generation)
		if gen != 7 {
			t.Errorf("Expected generation=7, got %f", gen)
		}
	})

	// Test last success timestamp
	t.Run("set last success", func(t *testing.T) {
		now := time.Now()
		collector.SetConfigLastSuccess(now)
		ts := testutil.ToFloat64(collector.cacheMetrics.lastSuccessTimestamp)
		if ts != float64(now.Unix()) {
			t.Errorf("Expected timestamp=%d, got %f", now.Unix(), ts)
		}
	})
}

// TestCollector_ExposureMetrics tests exposure metric recording
func TestCollector_ExposureMetrics(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	// Test emission recording
	t.Run("record exposure", func(t *testing.T) {
		collector.RecordExposure("success")
		count := testutil.ToFloat64(collector.exposureMetrics.exposuresTotal.WithLabelValues("success"))
		if count < 1 {
			t.Errorf("Expected exposure count >= 1, got %f", count)
		}
	})

	// Test queue depth gauge
	t.Run("set queue depth", func(t *testing.T) {
		collector.SetExposureQueueDepth(42)
		depth := testutil.ToFloat64(collector.exposureMetrics.queueDepth)
		if depth != 42 {
			t.Errorf("Expected depth=42, got %f", depth)
		}
	})
}

// TestCollector_RecordContextBuild tests context assembly recording
func TestCollector_RecordContextBuild(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	for _, outcome := range []string{"full", "minimal", "failed"} {
		collector.RecordContextBuild(outcome)
		count := testutil.ToFloat64(collector.decisionMetrics.contextBuildsTotal.WithLabelValues(outcome))
		if count < 1 {
			t.Errorf("Expected context build count >= 1 for %q, got %f", outcome, count)
		}
	}
}

// TestCollector_Disabled tests that metrics are not recorded when disabled
func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	// These should not panic
	collector.RecordDecision("new_checkout", "assigned", time.Microsecond)
	collector.RecordContextBuild("full")
	collector.RecordConfigReload("success")
	collector.SetConfigGeneration(1)
	collector.SetConfigLastSuccess(time.Now())
	collector.RecordExposure("success")
	collector.SetExposureQueueDepth(1)

	count := testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues("new_checkout", "assigned"))
	if count != 0 {
		t.Errorf("Expected no decisions recorded while disabled, got %f", count)
	}
}

// TestCollector_DecisionCardinality tests experiment label overflow handling
func TestCollector_DecisionCardinality(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)
	collector.cardinalityLimiter = NewCardinalityLimiter(2)

	collector.RecordDecision("exp_a", "assigned", time.Microsecond)
	collector.RecordDecision("exp_b", "assigned", time.Microsecond)
	collector.RecordDecision("exp_c", "assigned", time.Microsecond)

	// Third experiment lands in the "other" bucket
	count := testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues("other", "assigned"))
	if count != 1 {
		t.Errorf("Expected overflow decision under other, got %f", count)
	}
	count = testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues("exp_c", "assigned"))
	if count != 0 {
		t.Errorf("Expected no decisions under exp_c, got %f", count)
	}
}

// TestCardinalityLimiter tests cardinality limiting
func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	// First 3 should be allowed
	if !limiter.Allow("label1") {
		t.Error("Expected first label to be allowed")
	}
	if !limiter.Allow("label2") {
		t.Error("Expected second label to be allowed")
	}
	if !limiter.Allow("label3") {
		t.Error("Expected third label to be allowed")
	}

	// Fourth should be rejected
	if limiter.Allow("label4") {
		t.Error("Expected fourth label to be rejected")
	}

	// Existing labels should still be allowed
	if !limiter.Allow("label1") {
		t.Error("Expected existing label to be allowed")
	}

	// Check count
	if limiter.Count() != 3 {
		t.Errorf("Expected count=3, got %d", limiter.Count())
	}
}

// TestCollector_ConcurrentRecording tests thread-safety
func TestCollector_ConcurrentRecording(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	done := make(chan bool)

	// Spawn multiple goroutines recording metrics
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				collector.RecordDecision("new_checkout", "assigned", time.Microsecond)
				collector.RecordConfigReload("success")
				collector.RecordExposure("success")
			}
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}

	// Verify we got all decisions recorded
	count := testutil.ToFloat64(collector.decisionMetrics.decisionsTotal.WithLabelValues("new_checkout", "assigned"))
	if count != 1000 {
		t.Errorf("Expected 1000 decisions, got %f", count)
	}
}
