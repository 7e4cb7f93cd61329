// Tessera makes experiment and feature decisions inside request
// handlers; this command is its operational companion.
//
// It works against the same configuration and artifacts the library
// loads, providing:
//   - Artifact validation before rollout
//   - One-shot decision evaluation for debugging
//   - Hot-reload watching of an artifact on disk
//   - Exposure record querying, export, and retention pruning
//
// Usage:
//
//	# Validate an experiment rule artifact
//	tessera validate ./experiments.json
//
//	# Evaluate one experiment against an ad-hoc context
//	tessera evaluate new_checkout --user t2_abc --country US
//
//	# Watch the configured artifact for hot reloads
//	tessera watch --config /etc/tessera/config.yaml
//
//	# Query stored exposure records
//	tessera exposures query --experiment new_checkout --limit 20
//
//	# Export exposure records as JSON lines
//	tessera exposures export --output exposures.jsonl
//
//	# Enforce retention now
//	tessera exposures prune
//
// Show version information with: tessera version
package main

func main() {
	Execute()
}
