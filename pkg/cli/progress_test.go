package cli

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock advances by step on every read.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

// TestBatchProgress_Lines tests the per-case lines and the summary.
func TestBatchProgress_Lines(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewBatchProgress(buf)
	p.now = fakeClock(time.Second)

	p.Start(3)
	p.Record("APP-1", OutcomeDone)
	p.Record("APP-2", OutcomePending)
	p.Record("FC-1", OutcomeFailed)
	p.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}

	tests := []struct {
		line int
		want string
	}{
		{0, "[1/3] APP-1 done"},
		{1, "[2/3] APP-2 pending review"},
		{2, "[3/3] FC-1 failed"},
		{3, "1 done, 1 pending review, 1 failed"},
	}
	for _, tt := range tests {
		if !strings.Contains(lines[tt.line], tt.want) {
			t.Errorf("line %d = %q, want it to contain %q", tt.line, lines[tt.line], tt.want)
		}
	}
	if strings.Contains(lines[2], "eta") {
		t.Errorf("last case line %q has an eta", lines[2])
	}
}

// TestBatchProgress_ETA tests extrapolation from the mean case time.
func TestBatchProgress_ETA(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewBatchProgress(buf)
	p.now = fakeClock(2 * time.Second)

	// Start reads the clock once, Record once more before eta.
	p.Start(4)
	p.Record("APP-1", OutcomeDone)

	if !strings.Contains(buf.String(), "(eta 6s)") {
		t.Errorf("output %q, want eta 6s", buf.String())
	}
}

// TestBatchProgress_UnknownOutcome tests that unknown outcomes count as failed.
func TestBatchProgress_UnknownOutcome(t *testing.T) {
	p := NewBatchProgress(&bytes.Buffer{})
	p.Start(1)
	p.Record("APP-1", Outcome(9))

	if _, _, failed := p.Counts(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

// TestBatchProgress_Concurrent tests updates from batch workers.
func TestBatchProgress_Concurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewBatchProgress(buf)
	p.Start(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.Record(fmt.Sprintf("APP-%d-%d", w, j), Outcome(j%3))
			}
		}(i)
	}
	wg.Wait()
	p.Finish()

	done, pending, failed := p.Counts()
	if done+pending+failed != 100 {
		t.Errorf("counts = %d/%d/%d, want 100 total", done, pending, failed)
	}
	if !strings.Contains(buf.String(), "[100/100]") {
		t.Error("missing final tally line")
	}
}

// TestNewBatchProgress_NilWriter tests the stderr default.
func TestNewBatchProgress_NilWriter(t *testing.T) {
	p := NewBatchProgress(nil)
	if p.w == nil {
		t.Fatal("NewBatchProgress(nil) left writer nil")
	}
}
