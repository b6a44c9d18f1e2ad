// Package policy maps risk facts to rule verdicts.
//
// Every function here is pure: no I/O, no clock, no randomness. Identical
// facts always produce identical verdicts, which is what lets a governance
// run be replayed after a human review without drifting.
//
// # Financial Crime
//
// Each scored entity receives one verdict. The thresholds are inclusive:
//
//	score >= 8  ENHANCED_DUE_DILIGENCE_REQUIRED
//	score >= 5  TRANSACTION_MONITORING_REQUIRED
//	otherwise   NO_VIOLATION
//
// # Appeals
//
// An appeal has a single verdict keyed by CaseEntity. An evidence mismatch
// forces ESCALATE before any text-derived assessment is considered.
//
// # Classifiers
//
// Reasoning text is turned into an outcome by a Classifier. PhraseClassifier
// keeps the legacy marker-phrase behaviour; a structured classifier can
// replace it without changing the governance state machine.
package policy
