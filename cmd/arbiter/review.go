package main

import (
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/review"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

var reviewFlags struct {
	status string
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and decide escalated cases",
	Long: `Work the human review queue.

Subcommands:
  submit  - Record a reviewer's decision for an escalated case
  show    - Show the review record of a case
  list    - List review records`,
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <case_id> <reviewer> <APPROVE|DENY|REQUEST_MORE_INFO> [comments]",
	Short: "Submit a human review decision",
	Long: `Submit records a reviewer's decision for a case waiting in the review
queue. A case can be reviewed once. Run "arbiter resume" afterwards to
produce the final governed result.

Examples:
  arbiter review submit APP-001 dr.lee APPROVE "records reconciled"
  arbiter review submit FC-042 analyst.kim REQUEST_MORE_INFO "need bank statements"`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runReviewSubmit,
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <case_id>",
	Short: "Show the review record of a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewShow,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review records",
	Long: `List review records, oldest first.

Examples:
  arbiter review list --status PENDING`,
	Args: cobra.NoArgs,
	RunE: runReviewList,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	reviewCmd.AddCommand(reviewSubmitCmd, reviewShowCmd, reviewListCmd)

	reviewListCmd.Flags().StringVar(&reviewFlags.status, "status", "", "filter by status (PENDING, REVIEWED)")
}

func runReviewSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	caseID, reviewer := args[0], args[1]
	decision := review.Decision(strings.ToUpper(args[2]))
	var comments string
	if len(args) == 4 {
		comments = args[3]
	}

	ctx := logging.WithReviewer(logging.WithCaseID(cmd.Context(), caseID), reviewer)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("review submit", err)
	}
	defer a.Close()

	sub, err := a.queue.Submit(ctx, caseID, reviewer, decision, comments)
	if err != nil {
		return cli.NewCommandError("review submit", err)
	}
	return f.FormatTo(cmd.OutOrStdout(), submissionView{sub})
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return cli.NewCommandError("review show", err)
	}
	defer a.Close()

	rec, err := a.queue.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("review show", err)
	}
	return f.FormatTo(cmd.OutOrStdout(), &reviewList{Records: []*review.Record{rec}})
}

func runReviewList(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	status := review.Status(strings.ToUpper(reviewFlags.status))
	switch status {
	case "", review.StatusPending, review.StatusReviewed:
	default:
		return cli.NewConfigError("status", "must be PENDING or REVIEWED")
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return cli.NewCommandError("review list", err)
	}
	defer a.Close()

	records, err := a.queue.List(cmd.Context(), status)
	if err != nil {
		return cli.NewCommandError("review list", err)
	}
	return f.FormatTo(cmd.OutOrStdout(), &reviewList{Records: records})
}
