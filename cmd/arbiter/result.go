package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/governance"
	"mercator-hq/arbiter/pkg/pipeline"
	"mercator-hq/arbiter/pkg/review"
)

// caseOutcome is one line of a run report.
type caseOutcome struct {
	CaseID string             `json:"case_id"`
	Result *governance.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// runReport is printed by run, resume and watch.
type runReport struct {
	Cases []caseOutcome `json:"cases"`
}

func newRunReport(results []pipeline.BatchResult) *runReport {
	r := &runReport{Cases: make([]caseOutcome, 0, len(results))}
	for _, res := range results {
		out := caseOutcome{CaseID: res.CaseID, Result: res.Result}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		r.Cases = append(r.Cases, out)
	}
	return r
}

// Table implements cli.Tabular.
func (r *runReport) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"CASE", "STATE", "DECISION", "CONFIDENCE", "REVIEW", "REASON"}}
	for _, c := range r.Cases {
		if c.Result == nil {
			t.Rows = append(t.Rows, []string{c.CaseID, "FAILED", "-", "-", "-", c.Error})
			continue
		}
		res := c.Result
		t.Rows = append(t.Rows, []string{
			c.CaseID,
			string(res.State),
			res.FinalDecision,
			strconv.FormatFloat(res.Confidence, 'f', 2, 64),
			string(res.ReviewStatus),
			res.DecisionReason,
		})
	}
	return t
}

// exitError reports failures before pending reviews.
func (r *runReport) exitError() error {
	pending := false
	for _, c := range r.Cases {
		if c.Result == nil {
			return &cli.ExitError{Code: cli.ExitFailure}
		}
		if c.Result.Pending() {
			pending = true
		}
	}
	if pending {
		return &cli.ExitError{Code: cli.ExitPending}
	}
	return nil
}

// reviewList renders review queue records.
type reviewList struct {
	Records []*review.Record `json:"records"`
}

// Table implements cli.Tabular.
func (l *reviewList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"CASE", "STATUS", "QUEUED", "SYSTEM_DECISION", "MISMATCH", "REVIEWER", "DECISION"}}
	for _, rec := range l.Records {
		reviewer, decision := "-", "-"
		if rec.Review != nil {
			reviewer, decision = rec.Review.Reviewer, string(rec.Review.Decision)
		}
		t.Rows = append(t.Rows, []string{
			rec.CaseID,
			string(rec.Status),
			rec.SubmittedAt.Format(time.RFC3339),
			string(rec.Payload.SystemDecision),
			strconv.FormatBool(rec.Payload.EvidenceMismatch),
			reviewer,
			decision,
		})
	}
	return t
}

// submissionView renders a review submission.
type submissionView struct {
	*review.Submission
}

// Table implements cli.Tabular.
func (s submissionView) Table() *cli.Table {
	return &cli.Table{
		Headers: []string{"CASE", "FINAL_DECISION", "REVIEWER", "STATUS"},
		Rows:    [][]string{{s.CaseID, string(s.FinalDecision), s.Reviewer, s.Status}},
	}
}

// timeline renders a case's audit events.
type timeline struct {
	CaseID string             `json:"case_id"`
	Events []caserecord.Event `json:"events"`
}

// Table implements cli.Tabular.
func (tl *timeline) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"TIME", "KIND", "KEY", "DETAIL"}}
	for _, e := range tl.Events {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			detail = []byte(fmt.Sprintf("%v", e.Detail))
		}
		t.Rows = append(t.Rows, []string{
			e.Timestamp.Format(time.RFC3339),
			string(e.Kind),
			e.Key(),
			string(detail),
		})
	}
	return t
}
