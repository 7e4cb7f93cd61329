package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "experiments.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	// Validate experiments configuration
	errs = append(errs, validateExperiments(&cfg.Experiments)...)

	// Validate exposure configuration
	errs = append(errs, validateExposure(&cfg.Exposure)...)

	// Validate telemetry configuration
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateExperiments validates experiment cache configuration.
func validateExperiments(cfg *ExperimentsConfig) []FieldError {
	var errs []FieldError

	// Validate artifact path is not empty
	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "experiments.path",
			Message: "artifact path is required",
		})
	}

	// Validate durations are not negative
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "experiments.timeout",
			Message: "timeout must be non-negative",
		})
	}
	if cfg.Backoff < 0 {
		errs = append(errs, FieldError{
			Field:   "experiments.backoff",
			Message: "backoff must be non-negative",
		})
	}
	if cfg.PollInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "experiments.poll_interval",
			Message: "poll interval must be non-negative",
		})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "experiments.debounce",
			Message: "debounce must be non-negative",
		})
	}

	return errs
}

// validateExposure validates exposure side-channel configuration.
func validateExposure(cfg *ExposureConfig) []FieldError {
	var errs []FieldError

	// Validate sink
	validSinks := map[string]bool{SinkDebug: true, SinkStore: true}
	if cfg.Sink != "" && !validSinks[cfg.Sink] {
		errs = append(errs, FieldError{
			Field:   "exposure.sink",
			Message: fmt.Sprintf("invalid sink %q: must be 'debug' or 'store'", cfg.Sink),
		})
	}

	if cfg.Buffer < 0 {
		errs = append(errs, FieldError{
			Field:   "exposure.buffer",
			Message: "buffer size must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "exposure.write_timeout",
			Message: "write timeout must be non-negative",
		})
	}

	// Validate backend
	validBackends := map[string]bool{StoreBackendMemory: true, StoreBackendSQLite: true}
	if cfg.Store.Backend != "" && !validBackends[cfg.Store.Backend] {
		errs = append(errs, FieldError{
			Field:   "exposure.store.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Store.Backend),
		})
	}

	// Validate backend-specific configuration
	if cfg.Store.Backend == StoreBackendSQLite {
		if cfg.Store.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "exposure.store.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.Store.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "exposure.store.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	}

	// Validate retention
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "exposure.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.Days > 3650 { // 10 years is excessive
		errs = append(errs, FieldError{
			Field:   "exposure.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "exposure.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "exposure.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.PruneSchedule, err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate histogram buckets are strictly increasing
	if len(cfg.Metrics.DecisionDurationBuckets) > 0 {
		if !sort.Float64sAreSorted(cfg.Metrics.DecisionDurationBuckets) || hasDuplicates(cfg.Metrics.DecisionDurationBuckets) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.decision_duration_buckets",
				Message: "histogram buckets must be strictly increasing",
			})
		}
	}

	return errs
}

func hasDuplicates(sorted []float64) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return true
		}
	}
	return false
}
