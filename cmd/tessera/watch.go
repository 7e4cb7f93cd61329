package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"edgelab-hq/tessera/pkg/cli"
	"edgelab-hq/tessera/pkg/experiments"
)

var watchFlags struct {
	artifact string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an artifact and log hot reloads",
	Long: `Run the config cache against an artifact until interrupted.

The cache watches the artifact's directory for renames and polls as a
fallback, exactly as a host service would. Each successful reload
prints the new generation; each failed parse prints the error while the
previous rule set stays active. Use this to verify a fetcher is
rotating artifacts correctly.

Examples:
  # Watch the configured artifact
  tessera watch

  # Watch a local file with verbose cache logging
  tessera watch --artifact ./experiments.json -v`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.artifact, "artifact", "", "artifact path (default: from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	path := watchFlags.artifact
	if path == "" {
		path = cfg.Experiments.Path
	}

	cache, err := experiments.New(path, experiments.Options{
		Backoff:      cfg.Experiments.Backoff,
		PollInterval: cfg.Experiments.PollInterval,
		Debounce:     cfg.Experiments.Debounce,
		Logger:       logger,
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer cache.Close()

	stats := cache.Stats()
	fmt.Printf("Watching %s\n", path)
	if stats.Generation > 0 {
		fmt.Printf("generation %d: %d experiments\n", stats.Generation, stats.Experiments)
	} else if stats.LastError != nil {
		fmt.Printf("not loaded yet: %v\n", stats.LastError)
	}

	ctx := cli.SetupSignalHandler()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastGeneration := stats.Generation
	lastError := errorString(stats.LastError)

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Println("Stopped.")
			return nil

		case <-ticker.C:
			stats := cache.Stats()
			if stats.Generation != lastGeneration {
				lastGeneration = stats.Generation
				fmt.Printf("generation %d: %d experiments (reloaded %s)\n",
					stats.Generation, stats.Experiments,
					stats.LastRefresh.Format(time.RFC3339))
			}
			if msg := errorString(stats.LastError); msg != lastError {
				lastError = msg
				if msg != "" {
					fmt.Printf("reload failed: %s\n", msg)
				}
			}
		}
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
