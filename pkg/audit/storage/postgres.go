package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// PostgresStore implements audit.Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore wraps an open database handle. Call EnsureSchema before
// first use on a fresh database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "audit.storage.postgres"),
	}
}

// OpenPostgresStore connects to dsn and creates the schema if needed.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, audit.NewStorageError("postgres", "open", err)
	}
	s := NewPostgresStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("PostgreSQL audit store initialized")
	return s, nil
}

// EnsureSchema creates the audit tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PostgresSchema); err != nil {
		return audit.NewStorageError("postgres", "create_schema", err)
	}
	return nil
}

// Append implements audit.Store.
func (s *PostgresStore) Append(ctx context.Context, event *caserecord.Event) (bool, error) {
	details, err := marshalDetails(event.Detail)
	if err != nil {
		return false, audit.NewStorageError("postgres", "append", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_events (id, case_id, kind, dedup_key, occurred_at, details) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (case_id, dedup_key) DO NOTHING",
		event.ID, event.CaseID, string(event.Kind), event.Key(), event.Timestamp.UTC(), details)
	if err != nil {
		return false, audit.NewStorageError("postgres", "append", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, audit.NewStorageError("postgres", "append", err)
	}
	return n == 1, nil
}

// Has implements audit.Store.
func (s *PostgresStore) Has(ctx context.Context, caseID, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM audit_events WHERE case_id = $1 AND dedup_key = $2 LIMIT 1",
		caseID, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, audit.NewStorageError("postgres", "has", err)
	}
	return true, nil
}

// Query implements audit.Store.
func (s *PostgresStore) Query(ctx context.Context, query *audit.Query) ([]*caserecord.Event, error) {
	if query == nil {
		query = &audit.Query{}
	}

	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if query.CaseID != "" {
		where = append(where, "case_id = "+next(query.CaseID))
	}
	if len(query.Kinds) > 0 {
		kinds := make([]string, len(query.Kinds))
		for i, k := range query.Kinds {
			kinds[i] = string(k)
		}
		where = append(where, "kind = ANY("+next(pq.Array(kinds))+")")
	}
	if query.StartTime != nil {
		where = append(where, "occurred_at >= "+next(query.StartTime.UTC()))
	}
	if query.EndTime != nil {
		where = append(where, "occurred_at <= "+next(query.EndTime.UTC()))
	}

	sqlQuery := "SELECT id, case_id, kind, dedup_key, occurred_at, details FROM audit_events"
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY seq ASC"
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("postgres", "query", err)
	}
	defer rows.Close()

	events := []*caserecord.Event{}
	for rows.Next() {
		var (
			e       caserecord.Event
			kind    string
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CaseID, &kind, &e.DedupKey, &e.Timestamp, &details); err != nil {
			return nil, audit.NewStorageError("postgres", "scan", err)
		}
		e.Kind = caserecord.EventKind(kind)
		e.Timestamp = e.Timestamp.UTC()
		if e.Detail, err = unmarshalDetails(details); err != nil {
			return nil, audit.NewStorageError("postgres", "scan", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("postgres", "query", err)
	}
	return events, nil
}

// Ping implements audit.Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements audit.Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
