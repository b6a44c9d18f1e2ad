package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/arbiter/pkg/config"
)

// PipelineMetrics tracks stage execution.
//
// Metrics:
//   - arbiter_stage_runs_total: Stage runs by stage and status
//     (ok, restored, failed)
//   - arbiter_stage_duration_seconds: Stage duration
type PipelineMetrics struct {
	runsTotal *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stage_runs_total",
				Help:      "Total number of pipeline stage runs",
			},
			[]string{"stage", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   cfg.StageDurationBuckets,
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(pm.runsTotal, pm.duration)
	return pm
}
