// Package fincrime provides the stages of the financial-crime review
// pipeline:
//
//	intake → signal_fusion → risk_scoring → classification → decision →
//	investigation → explainability → narratives → case_file
//
// Scoring, classification and decisioning are deterministic. Investigation
// and explainability ask the reasoning provider for free text per entity;
// the text is stored in the case record and is never interpreted.
//
// The composite score of an entity is
//
//	network_risk*3 + transaction_anomaly*2 + kyc_risk
//
// unless the case definition supplies a precomputed risk_score.
// Classification tiers are HIGH_RISK (score >= 7), MEDIUM_RISK (>= 3) and
// LOW_RISK. A case escalates when any entity is escalated for
// investigation.
package fincrime
