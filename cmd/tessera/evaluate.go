package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"edgelab-hq/tessera/pkg/cli"
	"edgelab-hq/tessera/pkg/decider"
)

var evaluateFlags struct {
	artifact     string
	capabilities string
	user         string
	loid         string
	device       string
	country      string
	loggedIn     bool
	employee     bool
	attrs        []string
	format       string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <experiment>",
	Short: "Evaluate one experiment against an ad-hoc context",
	Long: `Make a single decision the way a request would and print the outcome.

The evaluation is dry: no exposure event is recorded, so it is safe to
run against production artifacts while debugging a rollout. Context
fields are supplied through flags; arbitrary engine fields (for
targeting predicates and bucket values) go through --attr.

Attribute values are coerced the way a request context would carry
them: "true"/"false" become booleans, numeric strings become numbers,
everything else stays a string.

Examples:
  # Who gets the new checkout?
  tessera evaluate new_checkout --user t2_abc --country US

  # Feed a targeting predicate field directly
  tessera evaluate employee_gate --user t2_abc --attr user_is_employee=true

  # Device-bucketed experiment
  tessera evaluate geo_test --user t2_abc --attr device_id=9f8e-7d6c

  # Against a local artifact copy
  tessera evaluate new_checkout --user t2_abc --artifact ./experiments.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateFlags.artifact, "artifact", "", "artifact path (default: from config)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.capabilities, "capabilities", decider.AllCapabilities, "space-separated engine capability tokens")
	evaluateCmd.Flags().StringVar(&evaluateFlags.user, "user", "", "user id")
	evaluateCmd.Flags().StringVar(&evaluateFlags.loid, "loid", "", "logged-out id")
	evaluateCmd.Flags().StringVar(&evaluateFlags.device, "device", "", "device id")
	evaluateCmd.Flags().StringVar(&evaluateFlags.country, "country", "", "country code")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.loggedIn, "logged-in", false, "logged-in state")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.employee, "employee", false, "employee state")
	evaluateCmd.Flags().StringArrayVar(&evaluateFlags.attrs, "attr", nil, "extra engine field as key=value (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
}

type evaluateResult struct {
	Experiment  string   `json:"experiment"`
	Assigned    bool     `json:"assigned"`
	Variant     string   `json:"variant,omitempty"`
	Error       string   `json:"error,omitempty"`
	Descriptors []string `json:"descriptors,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	path := evaluateFlags.artifact
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Experiments.Path
	}

	fields, err := evaluationFields(cmd)
	if err != nil {
		return err
	}

	handle, err := decider.Init(evaluateFlags.capabilities, path)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	choice := handle.Choose(args[0], fields)
	result := evaluateResult{
		Experiment:  args[0],
		Assigned:    choice.Assigned(),
		Error:       choice.Err,
		Descriptors: choice.Events,
	}
	if choice.Variant != nil {
		result.Variant = *choice.Variant
	}

	if evaluateFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	fmt.Printf("Experiment: %s\n", result.Experiment)
	switch {
	case result.Assigned:
		fmt.Printf("Variant: %s\n", result.Variant)
	case result.Error != "":
		fmt.Printf("Evaluation error: %s\n", result.Error)
	default:
		fmt.Println("No assignment.")
	}
	if verbose {
		for _, d := range result.Descriptors {
			fmt.Printf("Descriptor: %s\n", d)
		}
	}
	return nil
}

// evaluationFields builds the engine field mapping from flags. Boolean
// flags only appear when explicitly set, since absent and false are
// different things to targeting predicates.
func evaluationFields(cmd *cobra.Command) (map[string]any, error) {
	fields := make(map[string]any)

	for _, kv := range evaluateFlags.attrs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, cli.NewFlagError("attr", kv, "expected key=value")
		}
		fields[key] = coerceAttr(value)
	}

	if evaluateFlags.user != "" {
		fields["user_id"] = evaluateFlags.user
	}
	if evaluateFlags.loid != "" {
		fields["loid"] = evaluateFlags.loid
	}
	if evaluateFlags.device != "" {
		fields["device_id"] = evaluateFlags.device
	}
	if evaluateFlags.country != "" {
		fields["country_code"] = evaluateFlags.country
	}
	if cmd.Flags().Changed("logged-in") {
		fields["logged_in"] = evaluateFlags.loggedIn
	}
	if cmd.Flags().Changed("employee") {
		fields["user_is_employee"] = evaluateFlags.employee
	}

	return fields, nil
}

// coerceAttr parses a flag value the way a request context would carry
// it: typed booleans and numbers, strings otherwise.
func coerceAttr(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
