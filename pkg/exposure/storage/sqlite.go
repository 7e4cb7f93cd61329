package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"edgelab-hq/tessera/pkg/exposure"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WAL enables write-ahead logging for better concurrent reads.
	// Default: true
	WAL bool

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// Logger receives storage lifecycle logs.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:               "data/exposures.db",
		BusyTimeout:        5 * time.Second,
		WAL:                true,
		CheckpointInterval: 5 * time.Minute,
	}
}

// SQLite implements exposure.Storage over a local SQLite database. The
// driver is pure Go, so host services linking this module never grow a
// cgo dependency. SQLite allows a single writer: the pool is capped at
// one connection and the store sink's worker is the only steady writer.
type SQLite struct {
	db         *sql.DB
	config     *SQLiteConfig
	logger     *slog.Logger
	insertStmt *sql.Stmt

	done      chan struct{}
	closeOnce sync.Once
}

// NewSQLite creates a SQLite storage backend, initializing the schema
// on first use and verifying the schema version on every open.
func NewSQLite(config *SQLiteConfig) (*SQLite, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		config.Path = DefaultSQLiteConfig().Path
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = DefaultSQLiteConfig().BusyTimeout
	}
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = DefaultSQLiteConfig().CheckpointInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "exposure.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, exposure.NewStorageError("sqlite", "open", err)
	}

	// Single writer; database/sql serializes access through one conn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLite{
		db:     db,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.insertStmt, err = db.Prepare(`
		INSERT INTO exposures (
			id, experiment, variant, event_type, user_id,
			inputs, context, descriptors, trace_id, span_id,
			logged_at, stored_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, exposure.NewStorageError("sqlite", "prepare_insert", err)
	}

	if config.WAL {
		go s.checkpointLoop()
	}

	logger.Info("sqlite exposure storage initialized",
		"path", config.Path,
		"wal", config.WAL,
		"busy_timeout", config.BusyTimeout,
	)

	return s, nil
}

// initialize applies pragmas, creates the schema, and verifies its
// version.
func (s *SQLite) initialize() error {
	if s.config.WAL {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return exposure.NewStorageError("sqlite", "enable_wal", err)
		}
		if _, err := s.db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
			return exposure.NewStorageError("sqlite", "set_synchronous", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return exposure.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return exposure.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return exposure.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return exposure.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return exposure.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists one exposure record.
func (s *SQLite) Store(ctx context.Context, record *exposure.Record) error {
	inputs, err := marshalMap(record.Inputs)
	if err != nil {
		return exposure.NewStorageError("sqlite", "marshal_inputs", err)
	}
	evalContext, err := marshalMap(record.Context)
	if err != nil {
		return exposure.NewStorageError("sqlite", "marshal_context", err)
	}

	var descriptors any
	if len(record.Descriptors) > 0 {
		raw, err := json.Marshal(record.Descriptors)
		if err != nil {
			return exposure.NewStorageError("sqlite", "marshal_descriptors", err)
		}
		descriptors = string(raw)
	}

	_, err = s.insertStmt.ExecContext(ctx,
		record.ID, record.Experiment, record.Variant, record.EventType,
		nullable(record.UserID),
		inputs, evalContext, descriptors,
		nullable(record.TraceID), nullable(record.SpanID),
		record.LoggedAt.UnixNano(), time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return exposure.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the filters, ordered by logged_at.
func (s *SQLite) Query(ctx context.Context, query *exposure.Query) ([]*exposure.Record, error) {
	where, args := buildWhereClause(query)

	sqlQuery := `
		SELECT id, experiment, variant, event_type, user_id,
		       inputs, context, descriptors, trace_id, span_id,
		       logged_at, stored_at
		FROM exposures
	`
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	order := "DESC"
	if query.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery += " ORDER BY logged_at " + order

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, exposure.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*exposure.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, exposure.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, exposure.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLite) Count(ctx context.Context, query *exposure.Query) (int64, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM exposures"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, exposure.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// DeleteOlderThan removes records logged before the cutoff.
func (s *SQLite) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM exposures WHERE logged_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, exposure.NewStorageError("sqlite", "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, exposure.NewStorageError("sqlite", "delete", err)
	}
	return deleted, nil
}

// Close stops the checkpoint loop, runs a final checkpoint, and closes
// the database. Close is idempotent.
func (s *SQLite) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		close(s.done)

		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if s.config.WAL {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

// checkpointLoop periodically flushes the WAL back into the main file.
func (s *SQLite) checkpointLoop() {
	ticker := time.NewTicker(s.config.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE);")
		case <-s.done:
			return
		}
	}
}

// buildWhereClause translates query filters into SQL conditions.
func buildWhereClause(query *exposure.Query) (string, []any) {
	conditions := []string{}
	args := []any{}

	if query.StartTime != nil {
		conditions = append(conditions, "logged_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "logged_at < ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.Experiment != "" {
		conditions = append(conditions, "experiment = ?")
		args = append(args, query.Experiment)
	}
	if query.Variant != "" {
		conditions = append(conditions, "variant = ?")
		args = append(args, query.Variant)
	}
	if query.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, query.UserID)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRow reads one exposure row back into a record.
func scanRow(rows *sql.Rows) (*exposure.Record, error) {
	var (
		record      exposure.Record
		userID      sql.NullString
		inputs      sql.NullString
		evalContext sql.NullString
		descriptors sql.NullString
		traceID     sql.NullString
		spanID      sql.NullString
		loggedAt    int64
		storedAt    int64
	)

	if err := rows.Scan(
		&record.ID, &record.Experiment, &record.Variant, &record.EventType,
		&userID, &inputs, &evalContext, &descriptors, &traceID, &spanID,
		&loggedAt, &storedAt,
	); err != nil {
		return nil, err
	}

	record.UserID = userID.String
	record.TraceID = traceID.String
	record.SpanID = spanID.String
	record.LoggedAt = time.Unix(0, loggedAt).UTC()
	record.StoredAt = time.Unix(0, storedAt).UTC()

	if inputs.Valid && inputs.String != "" {
		if err := json.Unmarshal([]byte(inputs.String), &record.Inputs); err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %w", err)
		}
	}
	if evalContext.Valid && evalContext.String != "" {
		if err := json.Unmarshal([]byte(evalContext.String), &record.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
	}
	if descriptors.Valid && descriptors.String != "" {
		if err := json.Unmarshal([]byte(descriptors.String), &record.Descriptors); err != nil {
			return nil, fmt.Errorf("unmarshal descriptors: %w", err)
		}
	}

	return &record, nil
}

// marshalMap serializes a map column, mapping empty to NULL.
func marshalMap(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// nullable maps empty strings to NULL columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
