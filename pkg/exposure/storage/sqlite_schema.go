package storage

// SchemaVersion is the current exposure store schema version. Bump it
// together with Schema when the table layout changes.
const SchemaVersion = 1

// Schema creates the exposure store tables and indexes. Timestamps are
// stored as Unix nanoseconds so range comparisons stay integer-only.
const Schema = `
CREATE TABLE IF NOT EXISTS exposures (
	id TEXT PRIMARY KEY,
	experiment TEXT NOT NULL,
	variant TEXT NOT NULL,
	event_type TEXT NOT NULL,
	user_id TEXT,
	inputs TEXT,
	context TEXT,
	descriptors TEXT,
	trace_id TEXT,
	span_id TEXT,
	logged_at INTEGER NOT NULL,
	stored_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exposures_logged_at ON exposures(logged_at);
CREATE INDEX IF NOT EXISTS idx_exposures_experiment ON exposures(experiment);
CREATE INDEX IF NOT EXISTS idx_exposures_user_id ON exposures(user_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version on first initialization.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version, applied_at)
VALUES (?, strftime('%s', 'now'));
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT COALESCE(MAX(version), 0) FROM schema_version;
`
