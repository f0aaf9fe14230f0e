// Package progress provides advisory progress display for dispatch rounds.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker displays completed-of-total progress while a round is running.
// Updates are throttled; dropping a draw is always safe.
type Tracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	mu        sync.Mutex
	writer    io.Writer
	enabled   bool
	lastDraw  time.Time
}

// NewTracker creates a progress tracker for a round of the given size
func NewTracker(total int, writer io.Writer, enabled bool) *Tracker {
	return &Tracker{
		total:     total,
		startTime: time.Now(),
		writer:    writer,
		enabled:   enabled,
	}
}

// Update records one completed target
func (p *Tracker) Update(success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if success {
		p.completed++
	} else {
		p.failed++
	}

	if p.enabled {
		p.draw()
	}
}

// Observe replaces the counters with an absolute snapshot. Snapshots may
// arrive out of order under load; completed only moves forward.
func (p *Tracker) Observe(completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if completed-failed < p.completed {
		return
	}
	p.completed = completed - failed
	p.failed = failed

	if p.enabled {
		p.draw()
	}
}

// Finish clears the progress line and prints the final summary
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}

	elapsed := time.Since(p.startTime).Round(time.Second)
	total := p.completed + p.failed

	fmt.Fprintf(p.writer, "\r\033[K")
	if p.failed == 0 {
		fmt.Fprintf(p.writer, "Completed %d/%d computers successfully in %v\n", p.completed, p.total, elapsed)
	} else {
		fmt.Fprintf(p.writer, "Completed %d/%d computers (%d succeeded, %d failed) in %v\n",
			total, p.total, p.completed, p.failed, elapsed)
	}
}

// Stats returns the current counters
func (p *Tracker) Stats() (completed, failed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.failed, p.total
}

func (p *Tracker) draw() {
	now := time.Now()
	if now.Sub(p.lastDraw) < 100*time.Millisecond {
		return
	}
	p.lastDraw = now

	if p.total == 0 {
		return
	}

	total := p.completed + p.failed
	elapsed := now.Sub(p.startTime).Round(time.Second)

	fmt.Fprintf(p.writer, "\rProgress: %d/%d computers completed (ok %d, failed %d) [%v]",
		total, p.total, p.completed, p.failed, elapsed)
}
