package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TESSERA_SECTION_FIELD (e.g., TESSERA_EXPERIMENTS_PATH).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format TESSERA_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Experiments overrides
	if val := os.Getenv("TESSERA_EXPERIMENTS_PATH"); val != "" {
		cfg.Experiments.Path = val
	}
	if val := os.Getenv("TESSERA_EXPERIMENTS_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Experiments.Timeout = d
		}
	}
	if val := os.Getenv("TESSERA_EXPERIMENTS_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Experiments.Backoff = d
		}
	}
	if val := os.Getenv("TESSERA_EXPERIMENTS_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Experiments.PollInterval = d
		}
	}
	if val := os.Getenv("TESSERA_EXPERIMENTS_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Experiments.Debounce = d
		}
	}

	// Exposure overrides
	if val := os.Getenv("TESSERA_EXPOSURE_SINK"); val != "" {
		cfg.Exposure.Sink = val
	}
	if val := os.Getenv("TESSERA_EXPOSURE_BUFFER"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Exposure.Buffer = i
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Exposure.WriteTimeout = d
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_STORE_BACKEND"); val != "" {
		cfg.Exposure.Store.Backend = val
	}
	if val := os.Getenv("TESSERA_EXPOSURE_SQLITE_PATH"); val != "" {
		cfg.Exposure.Store.SQLite.Path = val
	}
	if val := os.Getenv("TESSERA_EXPOSURE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Exposure.Store.SQLite.BusyTimeout = d
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_SQLITE_WAL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Exposure.Store.SQLite.WAL = b
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Exposure.Retention.Days = i
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_RETENTION_SCHEDULE"); val != "" {
		cfg.Exposure.Retention.PruneSchedule = val
	}
	if val := os.Getenv("TESSERA_EXPOSURE_RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Exposure.Retention.MaxRecords = i
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_RETENTION_ARCHIVE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Exposure.Retention.ArchiveBeforeDelete = b
		}
	}
	if val := os.Getenv("TESSERA_EXPOSURE_RETENTION_ARCHIVE_PATH"); val != "" {
		cfg.Exposure.Retention.ArchivePath = val
	}

	// Telemetry overrides
	if val := os.Getenv("TESSERA_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TESSERA_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TESSERA_TELEMETRY_LOGGING_ADD_SOURCE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.AddSource = b
		}
	}
	if val := os.Getenv("TESSERA_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("TESSERA_TELEMETRY_METRICS_NAMESPACE"); val != "" {
		cfg.Telemetry.Metrics.Namespace = val
	}
	if val := os.Getenv("TESSERA_TELEMETRY_METRICS_SUBSYSTEM"); val != "" {
		cfg.Telemetry.Metrics.Subsystem = val
	}
}
