package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/arbiter/pkg/review"
)

const reviewSchema = `
CREATE TABLE IF NOT EXISTS review_queue (
	case_id      TEXT PRIMARY KEY,
	submitted_at TEXT NOT NULL,
	status       TEXT NOT NULL,
	payload      TEXT NOT NULL,
	review       TEXT
);

CREATE INDEX IF NOT EXISTS idx_review_status ON review_queue(status, submitted_at);
`

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteConfig configures the SQLite review store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore is a review.Store backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the review database at cfg.Path.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, review.NewStorageError("sqlite", "open", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, review.NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(reviewSchema); err != nil {
		db.Close()
		return nil, review.NewStorageError("sqlite", "initialize", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "review.storage.sqlite"),
	}
	s.logger.Debug("review store opened", "path", cfg.Path)
	return s, nil
}

// Create implements review.Store.
func (s *SQLiteStore) Create(ctx context.Context, rec *review.Record) (bool, error) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return false, review.NewStorageError("sqlite", "create", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO review_queue (case_id, submitted_at, status, payload, review)
		 VALUES (?, ?, ?, ?, NULL)
		 ON CONFLICT(case_id) DO NOTHING`,
		rec.CaseID, rec.SubmittedAt.UTC().Format(timeLayout), string(rec.Status), string(payload),
	)
	if err != nil {
		return false, review.NewStorageError("sqlite", "create", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, review.NewStorageError("sqlite", "create", err)
	}
	return n == 1, nil
}

// Get implements review.Store.
func (s *SQLiteStore) Get(ctx context.Context, caseID string) (*review.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT case_id, submitted_at, status, payload, review FROM review_queue WHERE case_id = ?`,
		caseID,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, review.ErrReviewNotFound
	}
	if err != nil {
		return nil, review.NewStorageError("sqlite", "get", err)
	}
	return rec, nil
}

// Complete implements review.Store.
func (s *SQLiteStore) Complete(ctx context.Context, caseID string, rv *review.Review) error {
	data, err := json.Marshal(rv)
	if err != nil {
		return review.NewStorageError("sqlite", "complete", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE review_queue SET status = ?, review = ? WHERE case_id = ? AND status = ?`,
		string(review.StatusReviewed), string(data), caseID, string(review.StatusPending),
	)
	if err != nil {
		return review.NewStorageError("sqlite", "complete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return review.NewStorageError("sqlite", "complete", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM review_queue WHERE case_id = ?`, caseID).Scan(&exists)
	if err == sql.ErrNoRows {
		return review.ErrReviewNotFound
	}
	if err != nil {
		return review.NewStorageError("sqlite", "complete", err)
	}
	return review.ErrAlreadyReviewed
}

// List implements review.Store.
func (s *SQLiteStore) List(ctx context.Context, status review.Status) ([]*review.Record, error) {
	query := `SELECT case_id, submitted_at, status, payload, review FROM review_queue`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY submitted_at ASC, case_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, review.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var out []*review.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, review.NewStorageError("sqlite", "list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, review.NewStorageError("sqlite", "list", err)
	}
	return out, nil
}

// Ping implements review.Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return review.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close implements review.Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*review.Record, error) {
	var (
		rec         review.Record
		submittedAt string
		status      string
		payload     string
		reviewData  sql.NullString
	)
	if err := row.Scan(&rec.CaseID, &submittedAt, &status, &payload, &reviewData); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, submittedAt)
	if err != nil {
		return nil, fmt.Errorf("parse submitted_at: %w", err)
	}
	rec.SubmittedAt = t
	rec.Status = review.Status(status)

	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if reviewData.Valid && reviewData.String != "" {
		var rv review.Review
		if err := json.Unmarshal([]byte(reviewData.String), &rv); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		rec.Review = &rv
	}
	return &rec, nil
}
