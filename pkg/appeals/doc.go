// Package appeals provides the stages of the healthcare appeals pipeline:
//
//	intake → reasoning → decision
//
// Intake reads the extracted document text and image findings from the
// case definition. Reasoning asks the reasoning provider for a medical
// necessity assessment and derives the evidence-mismatch flag, preferring
// a structured flag from the provider over the legacy phrase list.
// Decision turns the reasoning into APPROVE, DENY or ESCALATE; an evidence
// mismatch always escalates.
//
// Reasoning text may contain protected health information. It is kept in
// the case record and the reasoning artifact but never logged.
package appeals
