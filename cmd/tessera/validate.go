package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"edgelab-hq/tessera/pkg/cli"
	"edgelab-hq/tessera/pkg/decider"
)

var validateFlags struct {
	capabilities string
	format       string
	strict       bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [artifact]",
	Short: "Validate an experiment rule artifact",
	Long: `Parse an experiment rule artifact and report what would load.

Validation runs the same parser the decision engine uses: entries the
engine would skip at runtime are listed with the reason, and an
artifact that cannot be parsed at all fails the command. Run this in CI
before an artifact reaches the fetcher.

With no artifact argument, the path comes from the configuration file.

Examples:
  # Validate a local artifact
  tessera validate ./experiments.json

  # Validate the configured artifact
  tessera validate --config /etc/tessera/config.yaml

  # Validate against a reduced capability set
  tessera validate ./experiments.json --capabilities "darkmode fractional_availability"

  # Fail when any entry would be skipped
  tessera validate ./experiments.json --strict

  # JSON report
  tessera validate ./experiments.json --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.capabilities, "capabilities", decider.AllCapabilities, "space-separated engine capability tokens")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "fail when any entry would be skipped")
}

type skippedEntry struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type validateReport struct {
	Artifact    string         `json:"artifact"`
	Experiments int            `json:"experiments"`
	Skipped     []skippedEntry `json:"skipped,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Experiments.Path
	}

	handle, err := decider.Init(validateFlags.capabilities, path)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	report := validateReport{
		Artifact:    path,
		Experiments: handle.Len(),
	}
	for _, note := range handle.Notes() {
		report.Skipped = append(report.Skipped, skippedEntry{Name: note.Name, Reason: note.Reason})
	}

	if validateFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report); err != nil {
			return err
		}
	} else {
		fmt.Printf("Artifact: %s\n", report.Artifact)
		fmt.Printf("Experiments loaded: %d\n", report.Experiments)
		if len(report.Skipped) == 0 {
			fmt.Println("Entries skipped: 0")
		} else {
			fmt.Printf("Entries skipped: %d\n", len(report.Skipped))
			fmt.Println()
			for _, s := range report.Skipped {
				fmt.Printf("  %s: %s\n", s.Name, s.Reason)
			}
		}
	}

	if validateFlags.strict && len(report.Skipped) > 0 {
		return cli.NewCommandError("validate",
			fmt.Errorf("%d entries would be skipped at load", len(report.Skipped)))
	}
	return nil
}
