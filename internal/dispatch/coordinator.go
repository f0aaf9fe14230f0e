// Package dispatch fans a single command out to many targets concurrently
// and collects exactly one outcome per target.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adfleet/internal/logging"
	"adfleet/internal/remote"
	"adfleet/internal/target"
)

// Config holds coordinator parameters
type Config struct {
	Concurrency  int           // Worker cap; 0 spawns one worker per target
	CmdTimeout   time.Duration // Per-target command timeout
	RoundTimeout time.Duration // Ceiling for the whole round; 0 waits forever
}

// Round is the aggregate of one dispatched command. It is created when
// dispatch starts, mutated only by outcome arrival, and terminal once every
// target has reported.
type Round struct {
	ID       string
	Command  string
	Targets  []target.Target
	Outcomes []remote.Outcome
	Started  time.Time
	Finished time.Time
}

// Complete reports whether every target has an outcome
func (r *Round) Complete() bool {
	return len(r.Outcomes) == len(r.Targets)
}

// Counts returns the success and failure totals
func (r *Round) Counts() (successes, failures int) {
	for _, o := range r.Outcomes {
		if o.OK() {
			successes++
		} else {
			failures++
		}
	}
	return successes, failures
}

// Progress is an advisory completed-of-total snapshot. Events may be dropped
// or coalesced freely; they carry no correctness obligation.
type Progress struct {
	Completed int
	Failed    int
	Total     int
}

// ProgressFunc receives progress events during a round
type ProgressFunc func(Progress)

// Coordinator runs dispatch rounds. The runner is shared read-only state; the
// coordinator exclusively owns each round's outcome collection.
type Coordinator struct {
	runner     remote.Runner
	config     Config
	logger     *logging.Logger
	onProgress ProgressFunc
}

// NewCoordinator creates a coordinator
func NewCoordinator(runner remote.Runner, config Config, logger *logging.Logger) *Coordinator {
	return &Coordinator{runner: runner, config: config, logger: logger}
}

// OnProgress registers an advisory progress callback. Must be set before
// Dispatch is called.
func (c *Coordinator) OnProgress(fn ProgressFunc) {
	c.onProgress = fn
}

// Dispatch runs command on every target and blocks until each one has
// reported. The returned round always satisfies
// len(Outcomes) == len(Targets), regardless of how many units failed. With a
// round ceiling configured, targets still pending at expiry are reported as
// timed-out failures rather than waited on.
func (c *Coordinator) Dispatch(ctx context.Context, targets []target.Target, command string) *Round {
	// Completion is tracked per name; duplicate names would stall the
	// collector, so they are collapsed up front.
	targets = target.Dedupe(targets)

	round := &Round{
		ID:      uuid.NewString(),
		Command: command,
		Targets: targets,
		Started: time.Now(),
	}

	if len(targets) == 0 {
		round.Finished = time.Now()
		return round
	}

	roundCtx := ctx
	var cancel context.CancelFunc
	if c.config.RoundTimeout > 0 {
		roundCtx, cancel = context.WithTimeout(ctx, c.config.RoundTimeout)
	} else {
		roundCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	concurrency := c.effectiveConcurrency(len(targets))
	if c.logger != nil {
		c.logger.LogDispatchStart(round.ID, len(targets), concurrency)
	}

	jobs := make(chan target.Target, len(targets))
	// Buffered to capacity so a straggler finishing after the round ceiling
	// never blocks its worker goroutine.
	results := make(chan remote.Outcome, len(targets))

	for i := 0; i < concurrency; i++ {
		go func() {
			for t := range jobs {
				results <- c.runTarget(roundCtx, t, command)
			}
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)

	c.collect(roundCtx, round, results)

	round.Finished = time.Now()
	if c.logger != nil {
		successes, failures := round.Counts()
		c.logger.LogDispatchComplete(round.ID, len(targets), successes, failures, round.Finished.Sub(round.Started))
	}
	return round
}

// collect drains results until every target has reported or the round
// context expires, in which case the pending targets are synthesized as
// timed-out failures. Exactly one outcome lands per target either way.
func (c *Coordinator) collect(ctx context.Context, round *Round, results <-chan remote.Outcome) {
	done := make(map[string]bool, len(round.Targets))
	failed := 0

	for len(round.Outcomes) < len(round.Targets) {
		select {
		case outcome := <-results:
			if done[outcome.TargetName] {
				continue
			}
			done[outcome.TargetName] = true
			round.Outcomes = append(round.Outcomes, outcome)
			if !outcome.OK() {
				failed++
			}
			c.emitProgress(len(round.Outcomes), failed, len(round.Targets))

		case <-ctx.Done():
			for _, t := range round.Targets {
				if done[t.Name] {
					continue
				}
				done[t.Name] = true
				failed++
				round.Outcomes = append(round.Outcomes, remote.Failure(
					t.Name,
					fmt.Sprintf("round ceiling exceeded: %v", ctx.Err()),
					time.Since(round.Started),
				))
			}
			c.emitProgress(len(round.Outcomes), failed, len(round.Targets))
			return
		}
	}
}

// runTarget produces exactly one outcome for one target. A failure here,
// including a panicking runner, never reaches the sibling units.
func (c *Coordinator) runTarget(ctx context.Context, t target.Target, command string) (out remote.Outcome) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			out = remote.Failure(t.Name, fmt.Sprintf("dispatch unit panic: %v", rec), time.Since(start))
		}
	}()

	// An address-less record fails without any session attempt.
	if !t.HasAddress() {
		return remote.Failure(t.Name, fmt.Sprintf("no network address on record for %s", t.Name), time.Since(start))
	}

	cmdCtx := ctx
	if c.config.CmdTimeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, c.config.CmdTimeout)
		defer cancel()
	}

	return c.runner.Run(cmdCtx, t, command)
}

func (c *Coordinator) emitProgress(completed, failed, total int) {
	if c.onProgress != nil {
		c.onProgress(Progress{Completed: completed, Failed: failed, Total: total})
	}
}

// effectiveConcurrency resolves the worker count for a round. Zero means the
// original per-target fan-out; a positive cap is the bounded-pool drop-in.
func (c *Coordinator) effectiveConcurrency(targetCount int) int {
	if c.config.Concurrency <= 0 || c.config.Concurrency > targetCount {
		return targetCount
	}
	return c.config.Concurrency
}
