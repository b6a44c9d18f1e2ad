// Package caserecord defines the shared state threaded through a case
// evaluation: the Record each stage receives and returns, the risk facts the
// governance rules consume, and the timeline events that make up the audit
// trail.
//
// # Record Lifecycle
//
// A Record is created from a validated Definition at pipeline entry. Every
// stage receives a clone and returns an updated copy. Fields are only ever
// added or overwritten: the Extensions map has no delete operation, and the
// case identifier is fixed once the Record exists. The governance gate reads
// the final Record and never mutates it.
//
// # Schema Versioning
//
// Records carry a semantic SchemaVersion. Persisted records (stage
// checkpoints) are accepted on restore only when CheckSchema reports them as
// compatible with the running binary.
//
// # Case Definitions
//
// Definitions are JSON documents validated against an embedded JSON Schema
// (draft 2020-12) before a Record is built from them:
//
//	def, err := caserecord.LoadDefinition("cases/HC-001.json")
//	if err != nil {
//	    return err
//	}
//	rec := caserecord.New(def)
package caserecord
