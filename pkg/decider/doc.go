// Package decider evaluates experiment rule artifacts. It answers one
// question, deterministically and in-process: which variant, if any,
// does this context get for this experiment?
//
// # Rule Artifacts
//
// An artifact is a JSON object mapping experiment names to entries. An
// upstream platform publishes it; a fetcher sidecar writes it to local
// disk. Init parses one artifact into an immutable Handle:
//
//	handle, err := decider.Init(decider.AllCapabilities, "/var/local/experiments.json")
//	if err != nil {
//	    return err
//	}
//
// The capability string declares which artifact features the caller
// supports. Entries using an undeclared feature are skipped with a
// parse note instead of failing the load; Handle.Notes lists them.
//
// # Evaluation
//
//	choice := handle.Choose("new_checkout", map[string]any{
//	    "user_id":      "t2_abc123",
//	    "country_code": "US",
//	    "logged_in":    true,
//	})
//	if choice.Assigned() {
//	    render(*choice.Variant)
//	}
//
// Choose walks a fixed sequence: enabled and window checks, then
// overrides (first match wins, bypassing bucketing), then the targeting
// tree, then bucketing. Exactly one of three shapes comes back: an
// assignment, a valid no-assignment, or an evaluation error in
// Choice.Err. Choose never panics and never returns a Go error.
//
// # Bucketing
//
// Assignment hashes "<experiment>:<bucket value>" with xxhash into one
// of 1000 buckets and maps the bucket onto [0, 1). A variant whose
// range covers the fraction wins; a fraction outside every range is a
// holdback. The hash is stable across processes, restarts, and
// artifact reloads, so the same user keeps the same variant for the
// life of the experiment. Incrementing shuffle_version re-salts the
// hash and reshuffles everyone.
//
// # Concurrency
//
// A Handle is immutable after Init and safe for unbounded concurrent
// Choose calls. Hot reload is a swap of handles, not a mutation; see
// the experiments package for the cache that does this.
package decider
