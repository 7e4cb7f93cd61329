// Package logging builds the structured loggers used across the library.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON and text output formats selected by configuration
//   - Level parsing from configuration strings
//   - Masking of credential-bearing attributes
//
// # Usage
//
//	// Build a logger from configuration
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	// Component loggers carry a fixed attribute
//	cacheLog := logger.With("component", "experiments.cache")
//
// # Redaction
//
// Attributes whose keys look credential-bearing (token, password,
// secret, authorization, api_key) are masked before any handler writes
// them:
//
//	logger.Warn("identity resolution degraded", "auth_token", "tok-12345")
//	// logs auth_token=tok-***
//
// Exposure events have their own redaction on the event payload; this
// masking only covers what the library says about a request in its logs.
package logging
