package review

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MonitorObserver receives the results of each sweep.
type MonitorObserver interface {
	SetPendingReviews(n int)
	SetStaleReviews(n int)
}

// MonitorConfig configures the stale review monitor.
type MonitorConfig struct {
	// Schedule is a standard cron expression.
	// Default: "*/15 * * * *"
	Schedule string

	// StaleAfter is how long a review may stay pending before it is
	// reported. Default: 72 hours
	StaleAfter time.Duration
}

// StaleReport is the result of one sweep.
type StaleReport struct {
	Pending int
	Stale   []*Record
}

// Monitor periodically reports reviews that have been pending too long.
type Monitor struct {
	store    Store
	config   MonitorConfig
	clock    func() time.Time
	observer MonitorObserver
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewMonitor creates a stale review monitor.
func NewMonitor(store Store, config MonitorConfig, observer MonitorObserver) *Monitor {
	if config.Schedule == "" {
		config.Schedule = "*/15 * * * *"
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 72 * time.Hour
	}
	return &Monitor{
		store:    store,
		config:   config,
		clock:    time.Now,
		observer: observer,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "review.monitor"),
	}
}

// SetClock overrides the time source.
func (m *Monitor) SetClock(clock func() time.Time) {
	m.clock = clock
}

// Sweep lists pending reviews and returns those older than StaleAfter.
func (m *Monitor) Sweep(ctx context.Context) (*StaleReport, error) {
	pending, err := m.store.List(ctx, StatusPending)
	if err != nil {
		return nil, err
	}

	cutoff := m.clock().Add(-m.config.StaleAfter)
	report := &StaleReport{Pending: len(pending)}
	for _, rec := range pending {
		if rec.SubmittedAt.Before(cutoff) {
			report.Stale = append(report.Stale, rec)
			m.logger.Warn("human review overdue",
				"case_id", rec.CaseID,
				"pending_for", m.clock().Sub(rec.SubmittedAt).Round(time.Minute).String(),
			)
		}
	}

	if m.observer != nil {
		m.observer.SetPendingReviews(report.Pending)
		m.observer.SetStaleReviews(len(report.Stale))
	}
	return report, nil
}

// Start schedules Sweep on the configured cron expression. The monitor
// stops when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := cron.ParseStandard(m.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", m.config.Schedule, err)
	}

	if _, err := m.cron.AddFunc(m.config.Schedule, func() {
		if _, err := m.Sweep(ctx); err != nil {
			m.logger.Error("stale review sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule review monitor: %w", err)
	}

	m.cron.Start()
	m.running = true

	m.logger.Info("review monitor started",
		"schedule", m.config.Schedule,
		"stale_after", m.config.StaleAfter.String(),
	)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop stops the monitor and waits for a running sweep to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		<-m.cron.Stop().Done()
		m.running = false
		m.logger.Info("review monitor stopped")
	}
}

// IsRunning reports whether the monitor is scheduled.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// NextRun returns the next scheduled sweep time, or nil when not started.
func (m *Monitor) NextRun() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
