// Arbiter runs governed multi-stage case decisioning for healthcare appeals
// and financial-crime reviews.
//
// A case definition passes through its variant's stages, is scored and
// checked against policy, and either receives a final decision or waits for
// a human reviewer. Every milestone is written to an append-only audit
// trail, so a case can be run again after a review without repeating work.
//
// Usage:
//
//	# Evaluate case definitions
//	arbiter run cases/appeal-001.json cases/fincrime-007.json
//
//	# Record a reviewer's decision, then resume the case
//	arbiter review submit APP-001 dr.lee APPROVE "records reconciled"
//	arbiter resume cases/appeal-001.json
//
//	# Inspect and export the audit trail
//	arbiter audit show APP-001
//	arbiter audit export APP-001 --format csv -o app-001.csv
//
//	# Evaluate files dropped into an inbox, serving metrics and health
//	arbiter watch --inbox ./inbox
package main

import "os"

func main() {
	os.Exit(Execute())
}
