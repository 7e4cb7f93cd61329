// Package config provides configuration management for Tessera.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TESSERA_SECTION_FIELD.
// For example:
//
//   - TESSERA_EXPERIMENTS_PATH overrides experiments.path
//   - TESSERA_EXPOSURE_SINK overrides exposure.sink
//   - TESSERA_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., the experiment artifact path)
//   - Range validation (e.g., non-negative durations and buffer sizes)
//   - Enum validation (e.g., sink and backend names)
//   - Format validation (e.g., cron expressions for retention schedules)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - exposure.sink: invalid sink "kafka": must be 'debug' or 'store'
//	  - exposure.retention.days: retention days must be non-negative
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	experiments:
//	  path: "/var/local/experiments.json"
//	  poll_interval: 30s
//
//	exposure:
//	  sink: "store"
//	  store:
//	    backend: "sqlite"
//	    sqlite:
//	      path: "data/exposures.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// A loaded Config is read-only after construction. Hosts pass explicit
// *Config instances to the components that need them.
package config
