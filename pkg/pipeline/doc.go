// Package pipeline runs an ordered list of stages over a case record.
//
// Each stage receives a copy of the previous stage's output and returns an
// updated record. The first failing stage aborts the run with a
// *StageFailure naming the stage and the case; no partial governance run
// follows a failure. Stage order is fixed when the Runner is built.
//
// # Milestones and Replay
//
// Every stage names a milestone event kind. After a stage completes, the
// Runner saves a checkpoint of its output to the artifact store and then
// records the milestone through the audit writer, in that order. When a
// case is run again, a stage whose milestone is already in the audit trail
// and whose checkpoint loads is restored instead of re-run, so provider
// calls and other side effects are not repeated. If the checkpoint is
// missing the stage runs again and the audit writer suppresses the
// duplicate milestone.
//
// # Batches
//
// RunBatch evaluates independent cases concurrently with a worker limit.
// Each case owns its record; one case's failure does not cancel the others.
package pipeline
