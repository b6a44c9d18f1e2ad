package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/review"
)

var monitorFlags struct {
	once bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Report reviews pending longer than review.stale_after",
	Long: `Monitor sweeps the review queue on the review.monitor_schedule cron
expression and logs every review that has been pending longer than
review.stale_after. Records are never expired or removed.

Examples:
  # Run until interrupted
  arbiter monitor

  # Sweep once and list the overdue reviews
  arbiter monitor --once`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorFlags.once, "once", false, "sweep once, print overdue reviews and exit")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("monitor", err)
	}
	defer a.Close()

	monitor := review.NewMonitor(a.reviews, review.MonitorConfig{
		Schedule:   cfg.Review.MonitorSchedule,
		StaleAfter: cfg.Review.StaleAfter,
	}, a.collector)

	if monitorFlags.once {
		f, err := formatter()
		if err != nil {
			return err
		}
		report, err := monitor.Sweep(ctx)
		if err != nil {
			return cli.NewCommandError("monitor", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d pending, %d overdue\n", report.Pending, len(report.Stale))
		return f.FormatTo(cmd.OutOrStdout(), &reviewList{Records: report.Stale})
	}

	if err := monitor.Start(ctx); err != nil {
		return cli.NewCommandError("monitor", err)
	}
	if next := monitor.NextRun(); next != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Review monitor started, next sweep at %s\n", next.Format(time.RFC3339))
	}

	<-ctx.Done()
	monitor.Stop()
	fmt.Fprintln(cmd.ErrOrStderr(), "✓ Review monitor stopped")
	return nil
}
