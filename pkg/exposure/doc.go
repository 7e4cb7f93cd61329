// Package exposure carries the side-channel of experimentation: the
// events recording that a request was actually shown a variant.
// Analytics attributes metric movement to experiments through these
// events, so losing one quietly biases results; this package makes
// delivery observable without ever making it block a request.
//
// # Events and Records
//
// An Event is the in-flight form, assembled by the decision client at
// assignment time: experiment, variant, the redacted evaluation
// context, caller-supplied inputs, raw engine descriptors, and trace
// correlation IDs. A Record is the persisted form, with the user ID
// lifted out of the context so storage backends can index it.
//
// # Sinks
//
// The decision path hands events to a Sink and moves on:
//
//	// Development: log and discard
//	sink := exposure.NewDebugSink(logger)
//
//	// Production: buffered persistence (see the recorder subpackage)
//	sink := recorder.NewStoreSink(store, nil)
//
// Sink errors are logged by the caller and never change a variant the
// caller already received.
//
// # Redaction
//
// The evaluation context can carry credentials (the authentication
// token). RedactContext hashes sensitive fields before they enter an
// event, so no sink, store, or archive ever sees them in plaintext. The
// hash is stable: events from the same session stay correlatable.
//
// # Storage and Retention
//
// The Storage interface is implemented by the storage subpackage
// (in-memory and SQLite). Query filters by time range, experiment,
// variant, and user; DeleteOlderThan is the hook retention enforcement
// runs on. The retention subpackage prunes by age and count on a cron
// schedule, optionally archiving to JSON lines (export subpackage)
// first.
package exposure
