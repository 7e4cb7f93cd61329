package config

import "time"

// Config is the root configuration structure for Tessera.
// It contains all configuration sections for the experiment configuration
// cache, the exposure event side-channel, and telemetry settings.
type Config struct {
	// Experiments contains configuration for loading and hot-reloading
	// the experiment rule set.
	Experiments ExperimentsConfig `yaml:"experiments"`

	// Exposure contains configuration for the exposure event side-channel
	// including sink selection, buffering, storage, and retention.
	Exposure ExposureConfig `yaml:"exposure"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ExperimentsConfig contains configuration for the experiment rule-set cache.
type ExperimentsConfig struct {
	// Path is the filesystem location of the experiment configuration
	// artifact. An external fetcher renames fresh copies into place.
	// Default: "/var/local/experiments.json"
	Path string `yaml:"path"`

	// Timeout bounds how long construction waits for the first successful
	// parse when the artifact is not yet readable. Zero means do not wait:
	// the cache starts empty and decisions return no assignment until a
	// load succeeds.
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`

	// Backoff is the initial delay between load retries while no snapshot
	// has ever been published. Doubles per attempt up to an internal cap.
	// Default: 10ms
	Backoff time.Duration `yaml:"backoff"`

	// PollInterval is how often the artifact is polled for changes as a
	// fallback when filesystem events are missed or unavailable.
	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Debounce is the quiet period after a filesystem event before the
	// artifact is re-parsed, coalescing rapid rename sequences.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// Exposure sink selection.
const (
	// SinkDebug logs exposure events at debug level and drops them.
	SinkDebug = "debug"

	// SinkStore buffers exposure events and persists them to the
	// configured storage backend.
	SinkStore = "store"
)

// Exposure store backend selection.
const (
	// StoreBackendMemory keeps exposure records in process memory.
	StoreBackendMemory = "memory"

	// StoreBackendSQLite persists exposure records to a SQLite database.
	StoreBackendSQLite = "sqlite"
)

// ExposureConfig contains configuration for the exposure event side-channel.
type ExposureConfig struct {
	// Sink selects where exposure events go.
	// Options: "debug", "store"
	// Default: "debug"
	Sink string `yaml:"sink"`

	// Buffer is the size of the async event channel feeding the store
	// sink. Events beyond a full buffer are dropped with a warning.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout is the timeout for writing one event to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Store contains storage backend configuration. Only used when Sink
	// is "store".
	Store StoreConfig `yaml:"store"`

	// Retention contains retention policy configuration for stored
	// exposure records.
	Retention RetentionConfig `yaml:"retention"`
}

// StoreConfig contains exposure storage backend configuration.
type StoreConfig struct {
	// Backend specifies the storage backend for exposure records.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/exposures.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WAL enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WAL bool `yaml:"wal"`

	// CheckpointInterval is how often the WAL is checkpointed back into
	// the main database file. Only used when WAL is enabled.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain exposure records.
	// Records older than this are eligible for deletion.
	// 0 means keep records forever (no pruning).
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete enables archiving records before deletion.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory to store archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "tessera"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "" (none)
	Subsystem string `yaml:"subsystem"`

	// DecisionDurationBuckets defines histogram buckets for decision
	// duration (seconds).
	// Default: exponential 1µs to 16ms
	DecisionDurationBuckets []float64 `yaml:"decision_duration_buckets"`
}
