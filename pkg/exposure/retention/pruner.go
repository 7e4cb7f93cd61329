// Package retention enforces age and size limits on the exposure store.
// A Pruner deletes (optionally archiving first); a Scheduler runs it on
// a cron expression.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"edgelab-hq/tessera/pkg/exposure"
	"edgelab-hq/tessera/pkg/exposure/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain exposure records.
	// 0 means keep records forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables scheduling.
	PruneSchedule string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64

	// ArchiveBeforeDelete writes pruned records to a JSON-lines archive
	// before deleting them.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory archives are written to.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		MaxRecords:          0,
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
	}
}

// Pruner enforces retention limits on an exposure store.
type Pruner struct {
	storage   exposure.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(storage exposure.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "exposure.retention"),
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune runs one enforcement cycle: first age-based (records older than
// the retention window), then count-based (oldest beyond MaxRecords).
// Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("exposure pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Debug("no exposure records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes records older than the retention window.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveBefore(ctx, cutoff); err != nil {
			return 0, exposure.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, exposure.NewRetentionError(p.config.RetentionDays, err)
	}

	if deleted > 0 {
		p.logger.Info("pruned exposure records by age",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest records beyond MaxRecords. It resolves
// the overage to a timestamp cutoff so deletion stays a single ranged
// operation on the store.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &exposure.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, &exposure.Query{
		SortOrder: "asc",
		Limit:     int(excess),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query oldest records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	// Everything logged up to and including the last overage record goes.
	cutoff := oldest[len(oldest)-1].LoggedAt.Add(time.Nanosecond)

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveRecords(ctx, oldest); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	p.logger.Info("pruned exposure records by count",
		"deleted_count", deleted,
		"max_records", p.config.MaxRecords,
	)
	return deleted, nil
}

// archiveBefore archives every record older than the cutoff, paging
// through the store so large backlogs are not loaded in one query.
func (p *Pruner) archiveBefore(ctx context.Context, cutoff time.Time) error {
	const pageSize = 500

	var records []*exposure.Record
	for offset := 0; ; offset += pageSize {
		page, err := p.storage.Query(ctx, &exposure.Query{
			EndTime:   &cutoff,
			SortOrder: "asc",
			Limit:     pageSize,
			Offset:    offset,
		})
		if err != nil {
			return fmt.Errorf("failed to query records for archiving: %w", err)
		}
		records = append(records, page...)
		if len(page) < pageSize {
			break
		}
	}
	return p.archiveRecords(ctx, records)
}

// archiveRecords appends records to a dated JSON-lines archive file.
func (p *Pruner) archiveRecords(ctx context.Context, records []*exposure.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("exposures-%s.jsonl", time.Now().Format("2006-01-02-150405"))
	archiveFile := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if err := export.NewJSONLExporter().Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("exposure records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)
	return nil
}

// Start begins scheduled pruning. Call at application startup.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning, waiting for a running cycle to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled pruning time, nil when no
// schedule is active.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
