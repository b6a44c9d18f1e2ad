package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements audit.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database and creates the schema if needed.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, audit.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(config))
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// sqliteDSN carries the busy timeout in the DSN so every pooled connection
// gets it, not only the one that ran the PRAGMA.
func sqliteDSN(config *SQLiteConfig) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", config.Path, config.BusyTimeout.Milliseconds())
	if config.WALMode {
		dsn += "&_journal_mode=WAL"
	}
	return dsn
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(SQLiteSchema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Append implements audit.Store.
func (s *SQLiteStore) Append(ctx context.Context, event *caserecord.Event) (bool, error) {
	details, err := marshalDetails(event.Detail)
	if err != nil {
		return false, audit.NewStorageError("sqlite", "append", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, case_id, kind, dedup_key, occurred_at, details)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id, dedup_key) DO NOTHING
	`, event.ID, event.CaseID, string(event.Kind), event.Key(), event.Timestamp.UTC().Format(timeLayout), details)
	if err != nil {
		return false, audit.NewStorageError("sqlite", "append", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, audit.NewStorageError("sqlite", "append", err)
	}
	return n == 1, nil
}

// Has implements audit.Store.
func (s *SQLiteStore) Has(ctx context.Context, caseID, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM audit_events WHERE case_id = ? AND dedup_key = ? LIMIT 1",
		caseID, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, audit.NewStorageError("sqlite", "has", err)
	}
	return true, nil
}

// Query implements audit.Store.
func (s *SQLiteStore) Query(ctx context.Context, query *audit.Query) ([]*caserecord.Event, error) {
	if query == nil {
		query = &audit.Query{}
	}

	var (
		where []string
		args  []any
	)
	if query.CaseID != "" {
		where = append(where, "case_id = ?")
		args = append(args, query.CaseID)
	}
	if len(query.Kinds) > 0 {
		placeholders := make([]string, len(query.Kinds))
		for i, k := range query.Kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}
	if query.StartTime != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, query.StartTime.UTC().Format(timeLayout))
	}
	if query.EndTime != nil {
		where = append(where, "occurred_at <= ?")
		args = append(args, query.EndTime.UTC().Format(timeLayout))
	}

	sqlQuery := "SELECT id, case_id, kind, dedup_key, occurred_at, details FROM audit_events"
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY seq ASC"
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	} else if query.Offset > 0 {
		sqlQuery += " LIMIT -1"
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*caserecord.Event{}
	for rows.Next() {
		var (
			e          caserecord.Event
			kind       string
			occurredAt string
			details    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CaseID, &kind, &e.DedupKey, &occurredAt, &details); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		e.Kind = caserecord.EventKind(kind)
		if e.Timestamp, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		if e.Detail, err = unmarshalDetails(details); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return events, nil
}

// Ping implements audit.Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements audit.Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalDetails(detail map[string]any) (any, error) {
	if len(detail) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return string(data), nil
}

func unmarshalDetails(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var detail map[string]any
	if err := json.Unmarshal([]byte(raw.String), &detail); err != nil {
		return nil, fmt.Errorf("decode details: %w", err)
	}
	return detail, nil
}
