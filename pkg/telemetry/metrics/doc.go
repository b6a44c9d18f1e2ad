// Package metrics provides Prometheus metrics collection for Arbiter.
//
// # Overview
//
// A single Collector implements the observer interfaces of the pipeline
// runner, governance gate, review queue, review monitor and audit writer.
//
// # Metrics
//
//   - arbiter_stage_runs_total{stage,status}
//   - arbiter_stage_duration_seconds{stage}
//   - arbiter_governance_decisions_total{state,decision}
//   - arbiter_governance_confidence{state}
//   - arbiter_review_enqueued_total
//   - arbiter_review_submitted_total{decision}
//   - arbiter_review_rejected_total{reason}
//   - arbiter_review_pending
//   - arbiter_review_stale
//   - arbiter_audit_events_total{kind}
//   - arbiter_audit_duplicates_suppressed_total{kind}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	runner, _ := pipeline.NewRunner(stages, pipeline.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Labels carry stage names, states, decisions and audit kinds only. Case
// identifiers never become label values.
package metrics
