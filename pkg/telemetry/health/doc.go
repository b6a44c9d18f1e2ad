// Package health provides liveness and readiness checks for long-running
// Arbiter commands.
//
// `arbiter watch` registers a ping check per store (audit, review queue,
// artifacts) and serves the probes next to the metrics endpoint:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("audit", health.PingCheck(auditStore))
//	checker.RegisterCheck("review", health.PingCheck(reviewStore))
//	health.Register(mux, checker, cfg.Telemetry.Health, info, 10)
//
// Liveness always answers 200 while the process runs. Readiness answers 503
// when any store ping fails or times out.
package health
