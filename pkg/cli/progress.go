package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Outcome classifies a finished case for progress reporting.
type Outcome int

const (
	// OutcomeDone is a case that reached a terminal governed state.
	OutcomeDone Outcome = iota
	// OutcomePending is a case waiting for human review.
	OutcomePending
	// OutcomeFailed is a case whose evaluation returned an error.
	OutcomeFailed
)

// BatchProgress prints a running tally of a case batch, one status line
// per finished case. It is safe for use from batch workers.
type BatchProgress struct {
	mu      sync.Mutex
	w       io.Writer
	now     func() time.Time
	started time.Time
	total   int
	counts  [3]int
}

// NewBatchProgress creates a reporter writing to w, or os.Stderr when w
// is nil so progress never mixes with command output.
func NewBatchProgress(w io.Writer) *BatchProgress {
	if w == nil {
		w = os.Stderr
	}
	return &BatchProgress{w: w, now: time.Now}
}

// Start resets the tally for a batch of total cases.
func (p *BatchProgress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.counts = [3]int{}
	p.started = p.now()
}

// Record counts one finished case and prints the tally.
func (p *BatchProgress) Record(caseID string, o Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if o < OutcomeDone || o > OutcomeFailed {
		o = OutcomeFailed
	}
	p.counts[o]++

	done := p.finished()
	line := fmt.Sprintf("[%d/%d] %s %s", done, p.total, caseID, o)
	if eta := p.eta(done); eta > 0 {
		line += fmt.Sprintf(" (eta %s)", eta)
	}
	fmt.Fprintln(p.w, line)
}

// Finish prints the summary line.
func (p *BatchProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "✓ %d cases in %s: %d done, %d pending review, %d failed\n",
		p.finished(), p.now().Sub(p.started).Round(time.Millisecond),
		p.counts[OutcomeDone], p.counts[OutcomePending], p.counts[OutcomeFailed])
}

// Counts returns the done, pending and failed totals.
func (p *BatchProgress) Counts() (done, pending, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[OutcomeDone], p.counts[OutcomePending], p.counts[OutcomeFailed]
}

func (p *BatchProgress) finished() int {
	return p.counts[OutcomeDone] + p.counts[OutcomePending] + p.counts[OutcomeFailed]
}

// eta extrapolates the mean time per finished case over the remainder.
func (p *BatchProgress) eta(done int) time.Duration {
	remaining := p.total - done
	if done == 0 || remaining <= 0 {
		return 0
	}
	perCase := p.now().Sub(p.started) / time.Duration(done)
	return (perCase * time.Duration(remaining)).Round(time.Second)
}

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomePending:
		return "pending review"
	default:
		return "failed"
	}
}
