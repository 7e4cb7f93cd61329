package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"edgelab-hq/tessera/pkg/cli"
	"edgelab-hq/tessera/pkg/config"
	"edgelab-hq/tessera/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Tessera - request-scoped experiment decisions",
	Long: `Tessera is a library for making experiment and feature decisions inside
request handlers; this command is its operational companion.

It works against the same configuration and artifacts the library loads:
  - Validate rule artifacts before they are rolled out
  - Evaluate a single experiment against an ad-hoc context
  - Watch an artifact file and log hot reloads
  - Query, export, and prune stored exposure records`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the file named by --config, with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

// setupLogger builds the command logger from the configured logging
// section, raised to debug when --verbose is set. Logs go to stderr so
// data output on stdout stays parseable. The logger is installed as the
// process default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}

	logger, err := logging.NewWithWriter(logCfg, os.Stderr)
	if err != nil {
		logger = slog.Default()
	}
	slog.SetDefault(logger)
	return logger
}
