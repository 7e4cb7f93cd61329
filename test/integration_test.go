//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"edgelab-hq/tessera/pkg/config"
	"edgelab-hq/tessera/pkg/experiments"
)

const integrationArtifact = `{
  "new_checkout": {
    "id": 9001,
    "name": "new_checkout",
    "enabled": true,
    "version": "3",
    "type": "range_variant",
    "start_ts": 0,
    "stop_ts": 0,
    "owner": "payments",
    "experiment": {
      "variants": [{"name": "treatment", "range_start": 0.0, "range_end": 1.0}],
      "experiment_version": 3,
      "shuffle_version": 0,
      "bucket_val": "user_id"
    }
  },
  "geo_test": {
    "id": 9002,
    "name": "geo_test",
    "enabled": true,
    "version": "1",
    "type": "range_variant",
    "start_ts": 0,
    "stop_ts": 0,
    "owner": "i18n",
    "experiment": {
      "variants": [{"name": "on", "range_start": 0.0, "range_end": 1.0}],
      "experiment_version": 1,
      "shuffle_version": 0,
      "bucket_val": "device_id"
    }
  }
}`

// brokenEntryArtifact carries one loadable entry and one that must be
// skipped with a parse note (unknown type).
const brokenEntryArtifact = `{
  "good_one": {
    "id": 9101,
    "name": "good_one",
    "enabled": true,
    "version": "1",
    "type": "range_variant",
    "start_ts": 0,
    "stop_ts": 0,
    "owner": "qa",
    "experiment": {
      "variants": [{"name": "on", "range_start": 0.0, "range_end": 1.0}],
      "experiment_version": 1,
      "shuffle_version": 0,
      "bucket_val": "user_id"
    }
  },
  "bad_one": {
    "id": 9102,
    "name": "bad_one",
    "enabled": true,
    "version": "1",
    "type": "bandit",
    "start_ts": 0,
    "stop_ts": 0,
    "owner": "qa",
    "experiment": {}
  }
}`

// TestArtifactValidationWorkflow exercises artifact validation the way a
// deploy gate would: a clean artifact passes, an artifact with a bad
// entry reports the skip, and --strict turns the skip into a failure.
func TestArtifactValidationWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildTesseraBinary(t)

	goodArtifact := filepath.Join(tmpDir, "experiments.json")
	writeTestFile(t, goodArtifact, integrationArtifact)

	t.Run("clean artifact", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "validate", goodArtifact, "--format", "json")
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("validate failed: %v\nOutput: %s", err, output)
		}

		var report struct {
			Artifact    string `json:"artifact"`
			Experiments int    `json:"experiments"`
			Skipped     []struct {
				Name   string `json:"name"`
				Reason string `json:"reason"`
			} `json:"skipped"`
		}
		if err := json.Unmarshal(output, &report); err != nil {
			t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
		}
		if report.Experiments != 2 {
			t.Errorf("experiments = %d, want 2", report.Experiments)
		}
		if len(report.Skipped) != 0 {
			t.Errorf("skipped = %v, want none", report.Skipped)
		}
	})

	brokenArtifact := filepath.Join(tmpDir, "broken.json")
	writeTestFile(t, brokenArtifact, brokenEntryArtifact)

	t.Run("bad entry reported", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "validate", brokenArtifact)
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("validate without --strict should succeed: %v\nOutput: %s", err, output)
		}
		if !bytes.Contains(output, []byte("bad_one")) {
			t.Errorf("output should name the skipped entry, got: %s", output)
		}
	})

	t.Run("strict fails on bad entry", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "validate", brokenArtifact, "--strict")
		output, err := cmd.CombinedOutput()
		if err == nil {
			t.Errorf("validate --strict should fail\nOutput: %s", output)
		}
	})
}

// TestEvaluateCommand checks one-shot evaluation against an explicit
// artifact, with and without the field the experiment buckets on.
func TestEvaluateCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildTesseraBinary(t)

	artifact := filepath.Join(tmpDir, "experiments.json")
	writeTestFile(t, artifact, integrationArtifact)

	t.Run("assigned", func(t *testing.T) {
		cmd := exec.Command(binaryPath, "evaluate", "new_checkout",
			"--artifact", artifact,
			"--user", "t2_integration",
			"--format", "json")
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("evaluate failed: %v\nOutput: %s", err, output)
		}

		var result struct {
			Experiment string `json:"experiment"`
			Assigned   bool   `json:"assigned"`
			Variant    string `json:"variant"`
		}
		if err := json.Unmarshal(output, &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
		}
		if !result.Assigned || result.Variant != "treatment" {
			t.Errorf("result = %+v, want assigned treatment", result)
		}
	})

	t.Run("missing bucket field", func(t *testing.T) {
		// new_checkout buckets on user_id; without it the evaluation
		// errors and the command reports no assignment.
		cmd := exec.Command(binaryPath, "evaluate", "new_checkout",
			"--artifact", artifact,
			"--device", "d-123",
			"--format", "json")
		output, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("evaluate failed: %v\nOutput: %s", err, output)
		}

		var result struct {
			Assigned bool   `json:"assigned"`
			Error    string `json:"error"`
		}
		if err := json.Unmarshal(output, &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
		}
		if result.Assigned {
			t.Error("assigned = true, want no assignment")
		}
		if result.Error == "" {
			t.Error("error is empty, want the missing bucket field reported")
		}
	})
}

// TestExposurePipeline drives the full exposure path: the library makes
// decisions and persists exposure events to SQLite, then the CLI queries,
// exports, and prunes the same database.
func TestExposurePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	binaryPath := buildTesseraBinary(t)

	artifact := filepath.Join(tmpDir, "experiments.json")
	writeTestFile(t, artifact, integrationArtifact)

	dbPath := filepath.Join(tmpDir, "exposures.db")
	configFile := filepath.Join(tmpDir, "config.yaml")
	writeTestFile(t, configFile, fmt.Sprintf(`
experiments:
  path: %q

exposure:
  sink: "store"
  store:
    backend: "sqlite"
    sqlite:
      path: %q

telemetry:
  logging:
    level: "warn"
    format: "json"
`, artifact, dbPath))

	// Decide through the library, which records exposures.
	cfg, err := config.LoadConfigWithEnvOverrides(configFile)
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	factory, err := experiments.FromConfig(cfg, experiments.FactoryOptions{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}

	ctx := context.Background()
	users := []string{"t2_alpha", "t2_beta", "t2_gamma"}
	for _, user := range users {
		client, err := factory.ClientFor(ctx, experiments.StaticIdentity{
			User:     user,
			SignedIn: true,
		})
		if err != nil {
			t.Fatalf("ClientFor(%s) failed: %v", user, err)
		}
		variant, ok := client.GetVariant(ctx, "new_checkout", map[string]any{"surface": "integration"})
		if !ok || variant != "treatment" {
			t.Fatalf("GetVariant(%s) = (%q, %v), want (treatment, true)", user, variant, ok)
		}
	}

	// Close drains the store sink and releases the database.
	if err := factory.Close(); err != nil {
		t.Fatalf("factory close failed: %v", err)
	}

	// Query through the CLI.
	t.Log("Querying exposure records...")
	queryCmd := exec.Command(binaryPath, "exposures", "query",
		"--config", configFile,
		"--experiment", "new_checkout",
		"--format", "json")
	output, err := queryCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("exposures query failed: %v\nOutput: %s", err, output)
	}

	var queryResult struct {
		TotalRecords int `json:"total_records"`
		Records      []struct {
			Experiment string `json:"experiment"`
			Variant    string `json:"variant"`
			UserID     string `json:"user_id"`
		} `json:"records"`
	}
	if err := json.Unmarshal(output, &queryResult); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	if queryResult.TotalRecords != len(users) {
		t.Errorf("total_records = %d, want %d", queryResult.TotalRecords, len(users))
	}
	for _, record := range queryResult.Records {
		if record.Experiment != "new_checkout" || record.Variant != "treatment" {
			t.Errorf("record = %+v, want new_checkout/treatment", record)
		}
	}

	// Export to a file and verify one JSON document per line.
	t.Log("Exporting exposure records...")
	exportFile := filepath.Join(tmpDir, "export.jsonl")
	exportCmd := exec.Command(binaryPath, "exposures", "export",
		"--config", configFile,
		"--output", exportFile)
	if output, err := exportCmd.CombinedOutput(); err != nil {
		t.Fatalf("exposures export failed: %v\nOutput: %s", err, output)
	}

	exported, err := os.ReadFile(exportFile)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(exported), "\n"), "\n")
	if len(lines) != len(users) {
		t.Fatalf("export has %d lines, want %d", len(lines), len(users))
	}
	for i, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Errorf("export line %d is not valid JSON: %v", i, err)
		}
	}

	// Fresh records survive a prune.
	t.Log("Pruning exposure records...")
	pruneCmd := exec.Command(binaryPath, "exposures", "prune",
		"--config", configFile,
		"--retention-days", "30")
	output, err = pruneCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("exposures prune failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("Deleted 0 records.")) {
		t.Errorf("prune output = %s, want no deletions", output)
	}
}

// TestCommandVersionOutput tests the version command.
func TestCommandVersionOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	binaryPath := buildTesseraBinary(t)

	cmd := exec.Command(binaryPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("version command failed: %v\nOutput: %s", err, output)
	}
	if !bytes.Contains(output, []byte("Tessera")) {
		t.Errorf("version output should contain 'Tessera', got: %s", output)
	}
}

// Helper functions

// buildTesseraBinary builds the tessera binary for testing.
func buildTesseraBinary(t *testing.T) string {
	t.Helper()

	binaryPath := "../bin/tessera"
	if _, err := os.Stat(binaryPath); err == nil {
		return binaryPath
	}

	t.Log("Building tessera binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/tessera")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build tessera: %v\nOutput: %s", err, output)
	}

	return binaryPath
}

// writeTestFile writes a fixture file.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
