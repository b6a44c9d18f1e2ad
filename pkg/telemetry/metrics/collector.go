package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/arbiter/pkg/config"
)

// Collector owns every Prometheus metric Arbiter exports. It satisfies the
// observer interfaces of the pipeline runner, the governance gate, the
// review queue, the review monitor and the audit writer, so one instance is
// passed to each of them.
//
// When metrics are disabled every Record method is a no-op and nothing is
// registered.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	pipeline   *PipelineMetrics
	governance *GovernanceMetrics
	review     *ReviewMetrics
	audit      *AuditMetrics
}

// NewCollector creates a collector and registers its metrics. If registry is
// nil a new registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "arbiter"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.StageDurationBuckets) == 0 {
		cfg.StageDurationBuckets = append([]float64(nil), config.DefaultStageDurationBuckets...)
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}
	if !cfg.Enabled {
		return c
	}

	c.pipeline = NewPipelineMetrics(cfg, registry)
	c.governance = NewGovernanceMetrics(cfg, registry)
	c.review = NewReviewMetrics(cfg, registry)
	c.audit = NewAuditMetrics(cfg, registry)
	return c
}

// Registry returns the registry the collector registers with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordStage implements pipeline.Observer.
func (c *Collector) RecordStage(stage, status string, duration time.Duration) {
	if c.pipeline == nil {
		return
	}
	c.pipeline.runsTotal.WithLabelValues(stage, status).Inc()
	c.pipeline.duration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordGovernance implements governance.Observer.
func (c *Collector) RecordGovernance(state, decision string, confidence float64) {
	if c.governance == nil {
		return
	}
	c.governance.decisionsTotal.WithLabelValues(state, decision).Inc()
	c.governance.confidence.WithLabelValues(state).Observe(confidence)
}

// RecordReviewEnqueued implements review.Observer.
func (c *Collector) RecordReviewEnqueued() {
	if c.review == nil {
		return
	}
	c.review.enqueuedTotal.Inc()
}

// RecordReviewSubmitted implements review.Observer.
func (c *Collector) RecordReviewSubmitted(decision string) {
	if c.review == nil {
		return
	}
	c.review.submittedTotal.WithLabelValues(decision).Inc()
}

// RecordReviewRejected implements review.Observer.
func (c *Collector) RecordReviewRejected(reason string) {
	if c.review == nil {
		return
	}
	c.review.rejectedTotal.WithLabelValues(reason).Inc()
}

// SetPendingReviews implements review.MonitorObserver.
func (c *Collector) SetPendingReviews(n int) {
	if c.review == nil {
		return
	}
	c.review.pending.Set(float64(n))
}

// SetStaleReviews implements review.MonitorObserver.
func (c *Collector) SetStaleReviews(n int) {
	if c.review == nil {
		return
	}
	c.review.stale.Set(float64(n))
}

// RecordAuditEvent implements audit.Observer.
func (c *Collector) RecordAuditEvent(kind string) {
	if c.audit == nil {
		return
	}
	c.audit.eventsTotal.WithLabelValues(kind).Inc()
}

// RecordAuditDuplicate implements audit.Observer.
func (c *Collector) RecordAuditDuplicate(kind string) {
	if c.audit == nil {
		return
	}
	c.audit.duplicatesTotal.WithLabelValues(kind).Inc()
}
