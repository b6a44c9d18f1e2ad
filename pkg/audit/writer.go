package audit

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/arbiter/pkg/caserecord"
)

// Observer receives notifications about written and suppressed events.
// The telemetry metrics collector satisfies it.
type Observer interface {
	RecordAuditEvent(kind string)
	RecordAuditDuplicate(kind string)
}

// Writer appends events to a Store with duplicate suppression.
type Writer struct {
	store    Store
	observer Observer
	logger   *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithObserver attaches an Observer to the writer.
func WithObserver(o Observer) WriterOption {
	return func(w *Writer) {
		w.observer = o
	}
}

// NewWriter creates a Writer over store.
func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		logger: slog.Default().With("component", "audit.writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Record appends events in order and returns the events that were actually
// written. Events whose (case_id, dedup key) already exists are skipped.
func (w *Writer) Record(ctx context.Context, events ...caserecord.Event) ([]caserecord.Event, error) {
	var written []caserecord.Event
	for i := range events {
		e := events[i]
		if e.CaseID == "" || e.Kind == "" {
			return written, fmt.Errorf("%w: case_id and kind are required", ErrInvalidEvent)
		}
		if e.DedupKey == "" {
			e.DedupKey = string(e.Kind)
		}
		e.Timestamp = e.Timestamp.UTC()

		ok, err := w.store.Append(ctx, &e)
		if err != nil {
			return written, err
		}
		if !ok {
			w.logger.Debug("duplicate audit event suppressed",
				"case_id", e.CaseID,
				"kind", e.Kind,
				"dedup_key", e.DedupKey,
			)
			if w.observer != nil {
				w.observer.RecordAuditDuplicate(string(e.Kind))
			}
			continue
		}
		if w.observer != nil {
			w.observer.RecordAuditEvent(string(e.Kind))
		}
		written = append(written, e)
	}
	return written, nil
}

// Seen reports whether the case already has an event with the dedup key.
func (w *Writer) Seen(ctx context.Context, caseID, key string) (bool, error) {
	return w.store.Has(ctx, caseID, key)
}

// Timeline returns the full ordered timeline of a case.
func (w *Writer) Timeline(ctx context.Context, caseID string) ([]caserecord.Event, error) {
	events, err := w.store.Query(ctx, &Query{CaseID: caseID})
	if err != nil {
		return nil, err
	}
	out := make([]caserecord.Event, len(events))
	for i, e := range events {
		out[i] = *e
	}
	return out, nil
}

// Store returns the underlying store.
func (w *Writer) Store() Store {
	return w.store
}
