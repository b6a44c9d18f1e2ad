package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/arbiter/pkg/config"
)

// ReviewMetrics tracks the human review queue.
//
// Metrics:
//   - arbiter_review_enqueued_total: Cases queued for review
//   - arbiter_review_submitted_total: Accepted submissions by decision
//   - arbiter_review_rejected_total: Rejected submissions by reason
//   - arbiter_review_pending: Pending reviews at the last monitor sweep
//   - arbiter_review_stale: Stale reviews at the last monitor sweep
type ReviewMetrics struct {
	enqueuedTotal  prometheus.Counter
	submittedTotal *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
	pending        prometheus.Gauge
	stale          prometheus.Gauge
}

// NewReviewMetrics creates and registers review metrics.
func NewReviewMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ReviewMetrics {
	rm := &ReviewMetrics{
		enqueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "review_enqueued_total",
			Help:      "Total number of cases queued for human review",
		}),
		submittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "review_submitted_total",
				Help:      "Total number of accepted review submissions",
			},
			[]string{"decision"},
		),
		rejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "review_rejected_total",
				Help:      "Total number of rejected review submissions",
			},
			[]string{"reason"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "review_pending",
			Help:      "Number of pending reviews at the last sweep",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "review_stale",
			Help:      "Number of stale reviews at the last sweep",
		}),
	}

	registry.MustRegister(rm.enqueuedTotal, rm.submittedTotal, rm.rejectedTotal, rm.pending, rm.stale)
	return rm
}
