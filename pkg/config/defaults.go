package config

import "time"

// Default values for configuration fields.
const (
	// Experiments defaults
	DefaultExperimentsPath         = "/var/local/experiments.json"
	DefaultExperimentsBackoff      = 10 * time.Millisecond
	DefaultExperimentsPollInterval = 30 * time.Second
	DefaultExperimentsDebounce     = 100 * time.Millisecond

	// Exposure defaults
	DefaultExposureSink              = SinkDebug
	DefaultExposureBuffer            = 1000
	DefaultExposureWriteTimeout      = 5 * time.Second
	DefaultExposureStoreBackend      = StoreBackendMemory
	DefaultExposureSQLitePath        = "data/exposures.db"
	DefaultExposureSQLiteBusyTimeout = 5 * time.Second
	DefaultExposureSQLiteWAL         = true
	DefaultExposureSQLiteCheckpoint  = 5 * time.Minute
	DefaultRetentionDays             = 90
	DefaultRetentionSchedule         = "0 3 * * *"
	DefaultRetentionArchivePath      = "data/archives/"
	DefaultRetentionMaxRecords       = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsNamespace = "tessera"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Experiments defaults
	if cfg.Experiments.Path == "" {
		cfg.Experiments.Path = DefaultExperimentsPath
	}
	if cfg.Experiments.Backoff == 0 {
		cfg.Experiments.Backoff = DefaultExperimentsBackoff
	}
	if cfg.Experiments.PollInterval == 0 {
		cfg.Experiments.PollInterval = DefaultExperimentsPollInterval
	}
	if cfg.Experiments.Debounce == 0 {
		cfg.Experiments.Debounce = DefaultExperimentsDebounce
	}
	// Timeout zero is meaningful (do not wait), no default applied

	// Exposure defaults
	if cfg.Exposure.Sink == "" {
		cfg.Exposure.Sink = DefaultExposureSink
	}
	if cfg.Exposure.Buffer == 0 {
		cfg.Exposure.Buffer = DefaultExposureBuffer
	}
	if cfg.Exposure.WriteTimeout == 0 {
		cfg.Exposure.WriteTimeout = DefaultExposureWriteTimeout
	}

	// Store defaults
	if cfg.Exposure.Store.Backend == "" {
		cfg.Exposure.Store.Backend = DefaultExposureStoreBackend
	}
	if cfg.Exposure.Store.SQLite.Path == "" {
		cfg.Exposure.Store.SQLite.Path = DefaultExposureSQLitePath
	}
	if cfg.Exposure.Store.SQLite.BusyTimeout == 0 {
		cfg.Exposure.Store.SQLite.BusyTimeout = DefaultExposureSQLiteBusyTimeout
	}
	if !cfg.Exposure.Store.SQLite.WAL {
		cfg.Exposure.Store.SQLite.WAL = DefaultExposureSQLiteWAL
	}
	if cfg.Exposure.Store.SQLite.CheckpointInterval == 0 {
		cfg.Exposure.Store.SQLite.CheckpointInterval = DefaultExposureSQLiteCheckpoint
	}

	// Retention defaults
	if cfg.Exposure.Retention.Days == 0 {
		cfg.Exposure.Retention.Days = DefaultRetentionDays
	}
	if cfg.Exposure.Retention.PruneSchedule == "" {
		cfg.Exposure.Retention.PruneSchedule = DefaultRetentionSchedule
	}
	if cfg.Exposure.Retention.ArchivePath == "" {
		cfg.Exposure.Retention.ArchivePath = DefaultRetentionArchivePath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	// Metrics enabled defaults to false: hosts opt in and wire the
	// collector's handler themselves
}
