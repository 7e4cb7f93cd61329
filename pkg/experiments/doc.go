// Package experiments is the host-facing API for making experiment
// decisions inside a request-serving service.
//
// # Architecture
//
// Three pieces cooperate, split by lifetime:
//
//  1. ConfigCache - process-wide; keeps the rule artifact parsed, hot
//     reloaded, and readable in O(1)
//  2. ClientFactory - process-wide; assembles an evaluation context per
//     request and binds it to the cache and the exposure sink
//  3. Client - request-scoped; answers GetVariant calls and fires
//     exposure events
//
// An external fetcher keeps the artifact file fresh on local disk; this
// package never talks to the experimentation platform directly.
//
// # Basic Usage
//
//	cfg, err := config.LoadConfig("tessera.yaml")
//	if err != nil {
//	    return err
//	}
//
//	factory, err := experiments.FromConfig(cfg, experiments.FactoryOptions{})
//	if err != nil {
//	    return err
//	}
//	defer factory.Close()
//
//	// Per request:
//	client, err := factory.ClientFor(ctx, identitySource)
//	if err != nil {
//	    return err // only an unresolvable user ID lands here
//	}
//	if variant, ok := client.GetVariant(ctx, "new_checkout", nil); ok {
//	    renderVariant(variant)
//	} else {
//	    renderDefault()
//	}
//
// # Fail-Open Protocol
//
// A decision can fail for many reasons: artifact not loaded yet, entry
// skipped at parse time, bucket field missing from the context. Callers
// never see those as errors. GetVariant returns ("", false), the caller
// falls through to default behavior, and the cause lands in the logs
// and metrics instead of on the user. The one exception is ClientFor
// with an unresolvable user ID: without an identity there is nothing to
// decide with, so that returns a ContextError.
//
// # Hot Reload
//
// The cache watches the artifact's parent directory with fsnotify (the
// fetcher renames fresh copies into place), debounces event bursts, and
// reparses off the request path. A periodic mtime/size poll catches
// anything the watcher misses. Readers call Current, a single atomic
// pointer load; a failed reload keeps the previous snapshot published.
// Requests in flight during a swap finish on the handle they started
// with.
//
// # Evaluation Context
//
// ClientFor resolves the request's identity through the IdentitySource
// interface into an EvaluationContext. Assembly is all-or-nothing
// except for the user ID: any other field failing degrades the whole
// context to the minimal form (user ID only, tagged ContextMinimal)
// with a warning, so targeting rules that needed the missing fields
// stop matching instead of the request failing.
//
// # Exposure Events
//
// When GetVariant assigns a variant, the client emits one exposure
// event through the configured sink. Emission is fire-and-forget: a
// sink failure is logged and the caller keeps its variant. Use
// GetVariantWithoutExpose plus Expose when the render point is distant
// from the decision point.
package experiments
