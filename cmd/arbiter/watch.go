package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/inbox"
	"mercator-hq/arbiter/pkg/pipeline"
	"mercator-hq/arbiter/pkg/review"
	"mercator-hq/arbiter/pkg/telemetry/health"
)

// healthRequestsPerSecond limits readiness probes, which ping every store.
const healthRequestsPerSecond = 10

var watchFlags struct {
	inbox       string
	metricsAddr string
	debounce    time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Evaluate case files dropped into an inbox directory",
	Long: `Watch evaluates every case definition written to the inbox directory,
including files already present at start. A file written again is evaluated
again, which resumes an escalated case once its review is submitted.

The command also serves Prometheus metrics and health endpoints and runs
the stale review monitor until SIGINT or SIGTERM.

Examples:
  arbiter watch --inbox ./inbox
  arbiter watch --inbox ./inbox --metrics-addr 0.0.0.0:9090`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchFlags.inbox, "inbox", "inbox", "directory to watch for case definitions")
	watchCmd.Flags().StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "override metrics and health listen address")
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 200*time.Millisecond, "quiet period before a written file is evaluated")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer a.Close()

	p, err := a.buildPipeline()
	if err != nil {
		return err
	}

	watcher, err := inbox.NewWatcher(inbox.Config{
		Dir:              watchFlags.inbox,
		DebounceInterval: watchFlags.debounce,
		ScanExisting:     true,
	})
	if err != nil {
		return cli.NewCommandError("watch", err)
	}

	monitor := review.NewMonitor(a.reviews, review.MonitorConfig{
		Schedule:   cfg.Review.MonitorSchedule,
		StaleAfter: cfg.Review.StaleAfter,
	}, a.collector)
	if err := monitor.Start(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer monitor.Stop()

	addr := watchFlags.metricsAddr
	if addr == "" {
		addr = cfg.Telemetry.Health.ListenAddress
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newTelemetryMux(a),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry server shutdown failed", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Watching %s\n", watchFlags.inbox)
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Health endpoint: http://%s%s\n", addr, cfg.Telemetry.Health.ReadinessPath)

	f, err := formatter()
	if err != nil {
		return err
	}
	var printMu sync.Mutex
	handle := func(ctx context.Context, path string) {
		report := evaluateFile(ctx, p, path)
		printMu.Lock()
		defer printMu.Unlock()
		if err := f.FormatTo(cmd.OutOrStdout(), report); err != nil {
			slog.Error("failed to print result", "path", path, "error", err)
		}
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx, handle)
	}()

	select {
	case err := <-srvErr:
		stop()
		<-watchErr
		return cli.NewCommandError("watch", fmt.Errorf("telemetry server: %w", err))
	case err := <-watchErr:
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Watcher stopped")
		return nil
	}
}

// newTelemetryMux serves metrics and the health endpoints.
func newTelemetryMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	if a.cfg.Telemetry.Metrics.Enabled {
		mux.Handle(a.cfg.Telemetry.Metrics.Path, a.collector.Handler())
	}
	health.Register(mux, a.healthChecker(), a.cfg.Telemetry.Health, health.VersionInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	}, healthRequestsPerSecond)
	return mux
}

// evaluateFile loads and evaluates one inbox file. Invalid files are
// reported as failed cases.
func evaluateFile(ctx context.Context, p *pipeline.Pipeline, path string) *runReport {
	def, err := caserecord.LoadDefinition(path)
	if err != nil {
		slog.Warn("skipping invalid case definition", "path", path, "error", err)
		return newRunReport([]pipeline.BatchResult{{CaseID: path, Err: err}})
	}
	res, err := p.Evaluate(ctx, def)
	return newRunReport([]pipeline.BatchResult{{CaseID: def.CaseID, Result: res, Err: err}})
}
