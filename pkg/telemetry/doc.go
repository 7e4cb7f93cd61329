// Package telemetry provides observability for the experimentation
// client.
//
// # Overview
//
// The telemetry package implements structured logging and Prometheus
// metrics for the decision path. It provides visibility into config
// reloads, decision outcomes, and exposure delivery while staying cheap
// enough to sit in every request.
//
// # Components
//
//   - logging: slog factory with credential masking
//   - metrics: Prometheus collectors for decisions, config cache, and
//     exposures
//
// # Usage
//
//	// Build the logger from configuration
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	if err != nil {
//	    return err
//	}
//
//	// Build the metrics collector and hand it to the factory
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	factory, err := experiments.FromConfig(cfg, experiments.FactoryOptions{
//	    Logger:  logger,
//	    Metrics: collector,
//	})
//
//	// Expose metrics on the host's mux
//	mux.Handle("/metrics", collector.Handler())
//
// # Tracing
//
// There is no tracer here: the library consumes the host's ambient
// OpenTelemetry span from the request context and stamps trace and span
// IDs onto exposure events. Hosts own their tracer provider.
package telemetry
