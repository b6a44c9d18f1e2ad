package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/arbiter/pkg/config"
)

// AuditMetrics tracks the audit trail.
//
// Metrics:
//   - arbiter_audit_events_total: Appended events by kind
//   - arbiter_audit_duplicates_suppressed_total: Suppressed duplicates by kind
type AuditMetrics struct {
	eventsTotal     *prometheus.CounterVec
	duplicatesTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_events_total",
				Help:      "Total number of audit events appended",
			},
			[]string{"kind"},
		),
		duplicatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_duplicates_suppressed_total",
				Help:      "Total number of duplicate audit events suppressed",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(am.eventsTotal, am.duplicatesTotal)
	return am
}
