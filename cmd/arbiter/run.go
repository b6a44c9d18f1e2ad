package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/pipeline"
)

var runFlags struct {
	workers  int
	progress bool
}

var runCmd = &cobra.Command{
	Use:   "run <case.json>...",
	Short: "Evaluate case definitions",
	Long: `Evaluate one or more case definitions through their variant's stages and
the governance gate, then print the governed results.

Several files are evaluated concurrently. The command exits with status 3
when every case was governed but at least one waits for human review.

Examples:
  # Evaluate a single appeal
  arbiter run cases/appeal-001.json

  # Evaluate a batch with 8 workers and print JSON
  arbiter run cases/*.json --workers 8 --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCases,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <case.json>...",
	Short: "Resume cases after human review",
	Long: `Resume evaluates case definitions again. Stages whose milestones are already
in the audit trail are restored from their checkpoints, so the reasoning
provider is not called twice, and escalated cases adopt the submitted review.

Examples:
  arbiter review submit APP-001 dr.lee APPROVE "records reconciled"
  arbiter resume cases/appeal-001.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCases,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	for _, cmd := range []*cobra.Command{runCmd, resumeCmd} {
		cmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "concurrent cases (default from config)")
		cmd.Flags().BoolVar(&runFlags.progress, "progress", false, "show batch progress on stderr")
	}
}

func runCases(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	f, err := formatter()
	if err != nil {
		return err
	}

	defs := make([]*caserecord.Definition, 0, len(args))
	for _, path := range args {
		def, err := caserecord.LoadDefinition(path)
		if err != nil {
			return cli.NewCommandError(cmd.Name(), err)
		}
		defs = append(defs, def)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	defer a.Close()

	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	workers := runFlags.workers
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}

	var progress *cli.BatchProgress
	if runFlags.progress {
		progress = cli.NewBatchProgress(cmd.ErrOrStderr())
		progress.Start(len(defs))
	}
	results := p.RunBatchFunc(ctx, defs, workers, func(r pipeline.BatchResult) {
		if progress != nil {
			progress.Record(r.CaseID, batchOutcome(r))
		}
	})
	if progress != nil {
		progress.Finish()
	}

	report := newRunReport(results)
	if err := f.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return report.exitError()
}

func batchOutcome(r pipeline.BatchResult) cli.Outcome {
	switch {
	case r.Err != nil || r.Result == nil:
		return cli.OutcomeFailed
	case r.Result.Pending():
		return cli.OutcomePending
	default:
		return cli.OutcomeDone
	}
}
