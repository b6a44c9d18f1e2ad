package storage

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// timeLayout is a fixed-width UTC layout so stored timestamps compare
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteSchema contains the SQL statements to create the audit schema.
const SQLiteSchema = `
-- Append-only audit events
CREATE TABLE IF NOT EXISTS audit_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    case_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    dedup_key TEXT NOT NULL,
    occurred_at TEXT NOT NULL,
    details TEXT,
    UNIQUE (case_id, dedup_key)
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_case_id ON audit_events(case_id);
CREATE INDEX IF NOT EXISTS idx_audit_events_occurred_at ON audit_events(occurred_at);
`

// insertSchemaVersion records the schema version.
const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// getSchemaVersion retrieves the current schema version.
const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// PostgresSchema contains the SQL statements to create the audit schema in
// PostgreSQL.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    case_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    dedup_key TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    details JSONB,
    UNIQUE (case_id, dedup_key)
);

CREATE INDEX IF NOT EXISTS idx_audit_events_case_id ON audit_events(case_id);
`
