// Package artifacts stores the per-case outputs of a pipeline run: stage
// checkpoints, the governed record, the final governed decision and any
// variant-specific reports.
//
// Artifacts are addressed by (case id, name). JSON artifacts are written in
// RFC 8785 canonical form so the SHA-256 recorded in a Ref is stable across
// runs that produce the same content.
//
// Backends:
//
//   - MemoryStore for tests
//   - FileStore, laid out as <root>/runs/<case_id>/<name>
//   - S3Store, laid out as <prefix>runs/<case_id>/<name> in a bucket
package artifacts
