package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/arbiter/pkg/config"
)

// GovernanceMetrics tracks governance gate outcomes.
//
// Metrics:
//   - arbiter_governance_decisions_total: Gate results by state and decision
//   - arbiter_governance_confidence: Reported confidence by state
type GovernanceMetrics struct {
	decisionsTotal *prometheus.CounterVec
	confidence     *prometheus.HistogramVec
}

// NewGovernanceMetrics creates and registers governance metrics.
func NewGovernanceMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GovernanceMetrics {
	gm := &GovernanceMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "governance_decisions_total",
				Help:      "Total number of governance gate results",
			},
			[]string{"state", "decision"},
		),
		confidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "governance_confidence",
				Help:      "Confidence reported by the governance gate",
				Buckets:   []float64{0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1.0},
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(gm.decisionsTotal, gm.confidence)
	return gm
}
