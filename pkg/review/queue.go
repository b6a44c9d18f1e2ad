package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/arbiter/pkg/audit"
	"mercator-hq/arbiter/pkg/caserecord"
)

// Observer receives review queue notifications. The telemetry metrics
// collector satisfies it.
type Observer interface {
	RecordReviewEnqueued()
	RecordReviewSubmitted(decision string)
	RecordReviewRejected(reason string)
}

// Queue is the review queue service used by the governance gate and the
// reviewer-facing entry points.
type Queue struct {
	store    Store
	audit    *audit.Writer
	locks    *caseLocks
	clock    func() time.Time
	observer Observer
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithAuditWriter records a HUMAN_REVIEW event for every submission.
func WithAuditWriter(w *audit.Writer) Option {
	return func(q *Queue) {
		q.audit = w
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// WithTracer sets the tracer used for queue spans.
func WithTracer(t trace.Tracer) Option {
	return func(q *Queue) {
		q.tracer = t
	}
}

// NewQueue creates a review queue over store.
func NewQueue(store Store, opts ...Option) *Queue {
	q := &Queue{
		store:  store,
		locks:  newCaseLocks(),
		clock:  time.Now,
		tracer: noop.NewTracerProvider().Tracer("review"),
		logger: slog.Default().With("component", "review.queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue creates a PENDING record for the case unless one already exists.
// It reports whether a record was created.
func (q *Queue) Enqueue(ctx context.Context, caseID string, payload Payload) (bool, error) {
	if caseID == "" {
		return false, ErrInvalidCaseID
	}

	ctx, span := q.tracer.Start(ctx, "review.enqueue", trace.WithAttributes(attribute.String("case.id", caseID)))
	defer span.End()

	unlock := q.locks.lock(caseID)
	defer unlock()

	rec := &Record{
		CaseID:      caseID,
		SubmittedAt: q.clock().UTC(),
		Status:      StatusPending,
		Payload:     payload,
	}
	created, err := q.store.Create(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		return false, err
	}
	span.SetAttributes(attribute.Bool("review.created", created))

	if created {
		q.logger.Info("case queued for human review",
			"case_id", caseID,
			"system_decision", payload.SystemDecision,
			"evidence_mismatch", payload.EvidenceMismatch,
		)
		if q.observer != nil {
			q.observer.RecordReviewEnqueued()
		}
	} else {
		q.logger.Debug("review already queued", "case_id", caseID)
	}
	return created, nil
}

// LoadReview returns the completed review for a case, or nil when the case
// has no record or its record is still pending.
func (q *Queue) LoadReview(ctx context.Context, caseID string) (*Review, error) {
	rec, err := q.store.Get(ctx, caseID)
	if errors.Is(err, ErrReviewNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusReviewed || rec.Review == nil {
		return nil, nil
	}
	return rec.Review, nil
}

// Submit records a reviewer's decision. It fails with ErrReviewNotFound when
// the case was never escalated and ErrAlreadyReviewed when it has already
// been decided.
func (q *Queue) Submit(ctx context.Context, caseID, reviewer string, decision Decision, comments string) (*Submission, error) {
	ctx, span := q.tracer.Start(ctx, "review.submit", trace.WithAttributes(
		attribute.String("case.id", caseID),
		attribute.String("review.decision", string(decision)),
	))
	defer span.End()

	if caseID == "" {
		return nil, q.reject(span, "invalid_case_id", ErrInvalidCaseID)
	}
	if strings.TrimSpace(reviewer) == "" {
		return nil, q.reject(span, "invalid_reviewer", ErrInvalidReviewer)
	}
	if !decision.Valid() {
		return nil, q.reject(span, "invalid_decision", fmt.Errorf("%w: %q", ErrInvalidDecision, decision))
	}

	unlock := q.locks.lock(caseID)
	defer unlock()

	review := &Review{
		Reviewer:   reviewer,
		Decision:   decision,
		Comments:   comments,
		ReviewedAt: q.clock().UTC(),
	}
	if err := q.store.Complete(ctx, caseID, review); err != nil {
		switch {
		case errors.Is(err, ErrReviewNotFound):
			return nil, q.reject(span, "not_found", err)
		case errors.Is(err, ErrAlreadyReviewed):
			return nil, q.reject(span, "already_reviewed", err)
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit failed")
			return nil, err
		}
	}

	q.logger.Info("human review submitted",
		"case_id", caseID,
		"reviewer", reviewer,
		"decision", decision,
	)
	if q.observer != nil {
		q.observer.RecordReviewSubmitted(string(decision))
	}

	if q.audit != nil {
		event := caserecord.NewEvent(caseID, caserecord.EventHumanReview, HumanReviewDetail(review))
		event.Timestamp = review.ReviewedAt
		if _, err := q.audit.Record(ctx, event); err != nil {
			// The review is committed and the gate records HUMAN_REVIEW when
			// it adopts the decision.
			span.RecordError(err)
			q.logger.Warn("human review audit write failed",
				"case_id", caseID,
				"error", err,
			)
		}
	}

	return &Submission{
		CaseID:        caseID,
		FinalDecision: decision,
		Reviewer:      reviewer,
		Status:        string(caserecord.ReviewCompleted),
	}, nil
}

// Get returns the review record for a case.
func (q *Queue) Get(ctx context.Context, caseID string) (*Record, error) {
	return q.store.Get(ctx, caseID)
}

// List returns records with the given status; an empty status lists all.
func (q *Queue) List(ctx context.Context, status Status) ([]*Record, error) {
	return q.store.List(ctx, status)
}

// Store returns the underlying store.
func (q *Queue) Store() Store {
	return q.store
}

func (q *Queue) reject(span trace.Span, reason string, err error) error {
	span.SetAttributes(attribute.String("review.rejected", reason))
	if q.observer != nil {
		q.observer.RecordReviewRejected(reason)
	}
	q.logger.Warn("review submission rejected", "reason", reason, "error", err)
	return err
}

// HumanReviewDetail is the audit detail payload for a completed review.
func HumanReviewDetail(r *Review) map[string]any {
	return map[string]any{
		"action":   "HUMAN_REVIEW",
		"reviewer": r.Reviewer,
		"decision": string(r.Decision),
	}
}
