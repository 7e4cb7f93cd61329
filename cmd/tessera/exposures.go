package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"edgelab-hq/tessera/pkg/cli"
	"edgelab-hq/tessera/pkg/config"
	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/exposure/export"
	"edgelab-hq/tessera/pkg/exposure/query"
	"edgelab-hq/tessera/pkg/exposure/retention"
	"edgelab-hq/tessera/pkg/exposure/storage"
)

var exposuresFlags struct {
	backend    string
	timeRange  string
	experiment string
	variant    string
	user       string
	limit      int
	offset     int
	sort       string
	format     string
	output     string

	pageSize int

	retentionDays int
	maxRecords    int64
	archive       bool
	archivePath   string
	dryRun        bool
}

var exposuresCmd = &cobra.Command{
	Use:   "exposures",
	Short: "Operate on stored exposure records",
	Long: `Query, export, and prune the exposure record store.

These commands open the storage backend named in the configuration file
(or --backend) directly; run them on the host that owns the database.

Subcommands:
  query   - Query exposure records with filters
  export  - Export records as JSON lines
  prune   - Enforce retention now

Time Range Format:
  RFC3339 interval "start/end"; the start is inclusive, the end is not.
  Example: "2026-03-01T00:00:00Z/2026-03-02T00:00:00Z"

Examples:
  # Recent records for one experiment
  tessera exposures query --experiment new_checkout --limit 20

  # Export a day of records
  tessera exposures export --time-range "2026-03-01T00:00:00Z/2026-03-02T00:00:00Z" --output day.jsonl

  # Enforce retention
  tessera exposures prune`,
}

var exposuresQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query exposure records",
	Long: `Query exposure records with filters.

Examples:
  # One user's exposures across experiments
  tessera exposures query --user t2_abc

  # Treatment exposures in a time range, oldest first
  tessera exposures query --experiment new_checkout --variant treatment \
    --time-range "2026-03-01T00:00:00Z/2026-03-02T00:00:00Z" --sort asc

  # Machine-readable output
  tessera exposures query --format json
  tessera exposures query --format csv --output exposures.csv`,
	RunE: runExposuresQuery,
}

var exposuresExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export exposure records as JSON lines",
	Long: `Export exposure records as JSON lines, one record per line.

The export pages through the store in logged-at order, so it handles
tables larger than memory. Writing to a file shows progress on stderr;
interrupting the command stops cleanly at a record boundary.

Examples:
  # Everything, to stdout
  tessera exposures export

  # One experiment's records to a file
  tessera exposures export --experiment new_checkout --output new_checkout.jsonl`,
	RunE: runExposuresExport,
}

var exposuresPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Enforce retention now",
	Long: `Run one retention enforcement cycle against the store.

Retention settings come from the configuration file; flags override
them for one-off runs. With --dry-run the command reports what a prune
would delete without touching the store.

Examples:
  # Enforce configured retention
  tessera exposures prune

  # Tighter window, archived first
  tessera exposures prune --retention-days 30 --archive

  # See the damage first
  tessera exposures prune --retention-days 30 --dry-run`,
	RunE: runExposuresPrune,
}

func init() {
	rootCmd.AddCommand(exposuresCmd)
	exposuresCmd.AddCommand(exposuresQueryCmd, exposuresExportCmd, exposuresPruneCmd)

	exposuresCmd.PersistentFlags().StringVar(&exposuresFlags.backend, "backend", "", "storage backend: sqlite, memory (default: from config)")
	exposuresCmd.PersistentFlags().StringVar(&exposuresFlags.timeRange, "time-range", "", "time range over logged-at (RFC3339 interval: start/end)")
	exposuresCmd.PersistentFlags().StringVar(&exposuresFlags.experiment, "experiment", "", "filter by experiment")
	exposuresCmd.PersistentFlags().StringVar(&exposuresFlags.variant, "variant", "", "filter by variant")
	exposuresCmd.PersistentFlags().StringVar(&exposuresFlags.user, "user", "", "filter by user id")

	exposuresQueryCmd.Flags().IntVar(&exposuresFlags.limit, "limit", 100, "max results")
	exposuresQueryCmd.Flags().IntVar(&exposuresFlags.offset, "offset", 0, "pagination offset")
	exposuresQueryCmd.Flags().StringVar(&exposuresFlags.sort, "sort", "desc", "sort by logged-at: asc, desc")
	exposuresQueryCmd.Flags().StringVar(&exposuresFlags.format, "format", "text", "output format: text, json, csv")
	exposuresQueryCmd.Flags().StringVarP(&exposuresFlags.output, "output", "o", "", "output file (default: stdout)")

	exposuresExportCmd.Flags().IntVar(&exposuresFlags.pageSize, "page-size", 500, "records fetched per storage query")
	exposuresExportCmd.Flags().StringVarP(&exposuresFlags.output, "output", "o", "", "output file (default: stdout)")

	exposuresPruneCmd.Flags().IntVar(&exposuresFlags.retentionDays, "retention-days", 0, "override retention window in days")
	exposuresPruneCmd.Flags().Int64Var(&exposuresFlags.maxRecords, "max-records", 0, "override record count cap")
	exposuresPruneCmd.Flags().BoolVar(&exposuresFlags.archive, "archive", false, "archive records before deleting")
	exposuresPruneCmd.Flags().StringVar(&exposuresFlags.archivePath, "archive-path", "", "archive directory (default: from config)")
	exposuresPruneCmd.Flags().BoolVar(&exposuresFlags.dryRun, "dry-run", false, "report what would be deleted without deleting")
}

// openStorage opens the exposure store the way the library would,
// honoring the --backend override.
func openStorage(cfg *config.Config, logger *slog.Logger) (exposure.Storage, error) {
	backend := exposuresFlags.backend
	if backend == "" {
		backend = cfg.Exposure.Store.Backend
	}

	switch backend {
	case config.StoreBackendSQLite:
		return storage.NewSQLite(&storage.SQLiteConfig{
			Path:               cfg.Exposure.Store.SQLite.Path,
			BusyTimeout:        cfg.Exposure.Store.SQLite.BusyTimeout,
			WAL:                cfg.Exposure.Store.SQLite.WAL,
			CheckpointInterval: cfg.Exposure.Store.SQLite.CheckpointInterval,
			Logger:             logger,
		})
	case config.StoreBackendMemory:
		// Always empty in a fresh process; useful only for exercising
		// command plumbing.
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backend)
	}
}

// parseTimeRange splits an RFC3339 "start/end" interval.
func parseTimeRange(value string) (*time.Time, *time.Time, error) {
	if value == "" {
		return nil, nil, nil
	}

	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return nil, nil, cli.NewFlagError("time-range", value, "expected start/end in RFC3339")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, nil, cli.NewFlagError("time-range", parts[0], "invalid start time")
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return nil, nil, cli.NewFlagError("time-range", parts[1], "invalid end time")
	}
	return &start, &end, nil
}

func baseQuery() (*exposure.Query, error) {
	q := &exposure.Query{
		Experiment: exposuresFlags.experiment,
		Variant:    exposuresFlags.variant,
		UserID:     exposuresFlags.user,
	}
	var err error
	q.StartTime, q.EndTime, err = parseTimeRange(exposuresFlags.timeRange)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func outputWriter() (io.Writer, func() error, error) {
	if exposuresFlags.output == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(exposuresFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func runExposuresQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	store, err := openStorage(cfg, logger)
	if err != nil {
		return cli.NewCommandError("exposures", err)
	}
	defer store.Close()

	q, err := baseQuery()
	if err != nil {
		return err
	}
	q.Limit = exposuresFlags.limit
	q.Offset = exposuresFlags.offset
	q.SortOrder = exposuresFlags.sort
	query.ApplyDefaults(q)
	if err := query.Validate(q); err != nil {
		return err
	}

	records, err := store.Query(context.Background(), q)
	if err != nil {
		return cli.NewCommandError("exposures", fmt.Errorf("query failed: %w", err))
	}

	out, closeOut, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeOut()

	switch exposuresFlags.format {
	case "json":
		return cli.NewFormatter(cli.FormatJSON).FormatTo(out, map[string]any{
			"total_records": len(records),
			"records":       records,
		})
	case "csv":
		return cli.NewFormatter(cli.FormatCSV).FormatTo(out, recordTable(records))
	default:
		return printRecordsText(out, records, q)
	}
}

func recordTable(records []*exposure.Record) cli.Table {
	table := cli.Table{
		Headers: []string{"id", "logged_at", "experiment", "variant", "event_type", "user_id"},
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			r.ID,
			r.LoggedAt.Format(time.RFC3339),
			r.Experiment,
			r.Variant,
			r.EventType,
			r.UserID,
		})
	}
	return table
}

func printRecordsText(out io.Writer, records []*exposure.Record, q *exposure.Query) error {
	if q.StartTime != nil && q.EndTime != nil {
		fmt.Fprintf(out, "Time range: %s to %s\n",
			q.StartTime.Format(time.RFC3339),
			q.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Total records: %d\n", len(records))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}

		fmt.Fprintf(out, "Record ID: %s\n", record.ID)
		fmt.Fprintf(out, "Logged At: %s\n", record.LoggedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Experiment: %s\n", record.Experiment)
		fmt.Fprintf(out, "Variant: %s\n", record.Variant)
		if record.UserID != "" {
			fmt.Fprintf(out, "User: %s\n", record.UserID)
		}
		if len(record.Descriptors) > 0 {
			fmt.Fprintf(out, "Descriptors: %d\n", len(record.Descriptors))
		}
		if record.TraceID != "" {
			fmt.Fprintf(out, "Trace: %s\n", record.TraceID)
		}
	}

	return nil
}

func runExposuresExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	store, err := openStorage(cfg, logger)
	if err != nil {
		return cli.NewCommandError("exposures", err)
	}
	defer store.Close()

	base, err := baseQuery()
	if err != nil {
		return err
	}
	base.SortOrder = "asc"
	if err := query.Validate(base); err != nil {
		return err
	}

	ctx := cli.SetupSignalHandler()

	total, err := store.Count(ctx, base)
	if err != nil {
		return cli.NewCommandError("exposures", fmt.Errorf("count failed: %w", err))
	}

	out, closeOut, err := outputWriter()
	if err != nil {
		return err
	}
	defer closeOut()

	// Progress belongs on stderr, and only when stdout is not the data
	// stream.
	var progress cli.ProgressReporter
	if exposuresFlags.output != "" {
		progress = cli.NewProgressReporter(os.Stderr)
		progress.Start(total)
	}

	exporter := export.NewJSONLExporter()
	pageSize := exposuresFlags.pageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var exported int64
	for offset := 0; ; offset += pageSize {
		page := *base
		page.Limit = pageSize
		page.Offset = offset

		records, err := store.Query(ctx, &page)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("exposures", fmt.Errorf("query failed: %w", err))
		}
		if len(records) == 0 {
			break
		}

		if err := exporter.Export(ctx, records, out); err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("exposures", err)
		}

		exported += int64(len(records))
		if progress != nil {
			progress.Update(exported)
		}
		if len(records) < pageSize {
			break
		}
	}

	if progress != nil {
		progress.Finish()
		fmt.Printf("Exported %d records to %s\n", exported, exposuresFlags.output)
	}
	return nil
}

func runExposuresPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	store, err := openStorage(cfg, logger)
	if err != nil {
		return cli.NewCommandError("exposures", err)
	}
	defer store.Close()

	retCfg := &retention.Config{
		RetentionDays:       cfg.Exposure.Retention.Days,
		PruneSchedule:       cfg.Exposure.Retention.PruneSchedule,
		MaxRecords:          cfg.Exposure.Retention.MaxRecords,
		ArchiveBeforeDelete: cfg.Exposure.Retention.ArchiveBeforeDelete,
		ArchivePath:         cfg.Exposure.Retention.ArchivePath,
	}
	if cmd.Flags().Changed("retention-days") {
		retCfg.RetentionDays = exposuresFlags.retentionDays
	}
	if cmd.Flags().Changed("max-records") {
		retCfg.MaxRecords = exposuresFlags.maxRecords
	}
	if cmd.Flags().Changed("archive") {
		retCfg.ArchiveBeforeDelete = exposuresFlags.archive
	}
	if exposuresFlags.archivePath != "" {
		retCfg.ArchivePath = exposuresFlags.archivePath
	}

	ctx := context.Background()

	if exposuresFlags.dryRun {
		return pruneDryRun(ctx, store, retCfg)
	}

	deleted, err := retention.NewPruner(store, retCfg).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("exposures", err)
	}

	fmt.Printf("Deleted %d records.\n", deleted)
	if retCfg.ArchiveBeforeDelete && deleted > 0 {
		fmt.Printf("Archived to %s\n", retCfg.ArchivePath)
	}
	return nil
}

// pruneDryRun reports what one enforcement cycle would delete, reusing
// the same cutoff arithmetic the pruner applies.
func pruneDryRun(ctx context.Context, store exposure.Storage, retCfg *retention.Config) error {
	var byAge int64
	if retCfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -retCfg.RetentionDays)
		count, err := store.Count(ctx, &exposure.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("exposures", fmt.Errorf("count failed: %w", err))
		}
		byAge = count
	}

	var byCount int64
	if retCfg.MaxRecords > 0 {
		total, err := store.Count(ctx, &exposure.Query{})
		if err != nil {
			return cli.NewCommandError("exposures", fmt.Errorf("count failed: %w", err))
		}
		if remaining := total - byAge; remaining > retCfg.MaxRecords {
			byCount = remaining - retCfg.MaxRecords
		}
	}

	fmt.Printf("Would delete %d records (%d past retention window, %d over record cap).\n",
		byAge+byCount, byAge, byCount)
	return nil
}
