package config

import (
	"reflect"
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Experiments.Path != DefaultExperimentsPath {
		t.Errorf("expected path %q, got %q", DefaultExperimentsPath, cfg.Experiments.Path)
	}
	if cfg.Experiments.Timeout != 0 {
		t.Errorf("expected zero timeout, got %v", cfg.Experiments.Timeout)
	}
	if cfg.Experiments.Backoff != DefaultExperimentsBackoff {
		t.Errorf("expected backoff %v, got %v", DefaultExperimentsBackoff, cfg.Experiments.Backoff)
	}
	if cfg.Experiments.PollInterval != DefaultExperimentsPollInterval {
		t.Errorf("expected poll interval %v, got %v", DefaultExperimentsPollInterval, cfg.Experiments.PollInterval)
	}
	if cfg.Experiments.Debounce != DefaultExperimentsDebounce {
		t.Errorf("expected debounce %v, got %v", DefaultExperimentsDebounce, cfg.Experiments.Debounce)
	}

	if cfg.Exposure.Sink != DefaultExposureSink {
		t.Errorf("expected sink %q, got %q", DefaultExposureSink, cfg.Exposure.Sink)
	}
	if cfg.Exposure.Buffer != DefaultExposureBuffer {
		t.Errorf("expected buffer %d, got %d", DefaultExposureBuffer, cfg.Exposure.Buffer)
	}
	if cfg.Exposure.WriteTimeout != DefaultExposureWriteTimeout {
		t.Errorf("expected write timeout %v, got %v", DefaultExposureWriteTimeout, cfg.Exposure.WriteTimeout)
	}
	if cfg.Exposure.Store.Backend != DefaultExposureStoreBackend {
		t.Errorf("expected backend %q, got %q", DefaultExposureStoreBackend, cfg.Exposure.Store.Backend)
	}
	if cfg.Exposure.Store.SQLite.Path != DefaultExposureSQLitePath {
		t.Errorf("expected sqlite path %q, got %q", DefaultExposureSQLitePath, cfg.Exposure.Store.SQLite.Path)
	}
	if cfg.Exposure.Store.SQLite.BusyTimeout != DefaultExposureSQLiteBusyTimeout {
		t.Errorf("expected busy timeout %v, got %v", DefaultExposureSQLiteBusyTimeout, cfg.Exposure.Store.SQLite.BusyTimeout)
	}
	if !cfg.Exposure.Store.SQLite.WAL {
		t.Error("expected WAL enabled by default")
	}
	if cfg.Exposure.Store.SQLite.CheckpointInterval != DefaultExposureSQLiteCheckpoint {
		t.Errorf("expected checkpoint interval %v, got %v", DefaultExposureSQLiteCheckpoint, cfg.Exposure.Store.SQLite.CheckpointInterval)
	}
	if cfg.Exposure.Retention.Days != DefaultRetentionDays {
		t.Errorf("expected retention days %d, got %d", DefaultRetentionDays, cfg.Exposure.Retention.Days)
	}
	if cfg.Exposure.Retention.PruneSchedule != DefaultRetentionSchedule {
		t.Errorf("expected prune schedule %q, got %q", DefaultRetentionSchedule, cfg.Exposure.Retention.PruneSchedule)
	}
	if cfg.Exposure.Retention.ArchivePath != DefaultRetentionArchivePath {
		t.Errorf("expected archive path %q, got %q", DefaultRetentionArchivePath, cfg.Exposure.Retention.ArchivePath)
	}
	if cfg.Exposure.Retention.MaxRecords != DefaultRetentionMaxRecords {
		t.Errorf("expected max records %d, got %d", DefaultRetentionMaxRecords, cfg.Exposure.Retention.MaxRecords)
	}

	if cfg.Telemetry.Logging.Level != DefaultLoggingLevel {
		t.Errorf("expected level %q, got %q", DefaultLoggingLevel, cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Logging.Format != DefaultLoggingFormat {
		t.Errorf("expected format %q, got %q", DefaultLoggingFormat, cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled by default")
	}
	if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("expected namespace %q, got %q", DefaultMetricsNamespace, cfg.Telemetry.Metrics.Namespace)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Experiments.Path = "/tmp/custom.json"
	cfg.Experiments.Timeout = 2 * time.Second
	cfg.Exposure.Sink = SinkStore
	cfg.Exposure.Buffer = 5000
	cfg.Exposure.Retention.Days = 7
	cfg.Telemetry.Logging.Level = "debug"
	cfg.Telemetry.Metrics.Namespace = "myapp"

	ApplyDefaults(cfg)

	if cfg.Experiments.Path != "/tmp/custom.json" {
		t.Errorf("expected explicit path preserved, got %q", cfg.Experiments.Path)
	}
	if cfg.Experiments.Timeout != 2*time.Second {
		t.Errorf("expected explicit timeout preserved, got %v", cfg.Experiments.Timeout)
	}
	if cfg.Exposure.Sink != SinkStore {
		t.Errorf("expected explicit sink preserved, got %q", cfg.Exposure.Sink)
	}
	if cfg.Exposure.Buffer != 5000 {
		t.Errorf("expected explicit buffer preserved, got %d", cfg.Exposure.Buffer)
	}
	if cfg.Exposure.Retention.Days != 7 {
		t.Errorf("expected explicit retention days preserved, got %d", cfg.Exposure.Retention.Days)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected explicit level preserved, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Namespace != "myapp" {
		t.Errorf("expected explicit namespace preserved, got %q", cfg.Telemetry.Metrics.Namespace)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	snapshot := *cfg
	ApplyDefaults(cfg)

	if !reflect.DeepEqual(*cfg, snapshot) {
		t.Error("expected second ApplyDefaults to leave config unchanged")
	}
}

func TestApplyDefaults_ValidatesCleanly(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		t.Errorf("expected defaulted config to validate, got: %v", err)
	}
}
