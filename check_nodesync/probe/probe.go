// Package probe runs one node-sync check against an inventory source.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxforge/nodesync/check_nodesync/classify"
	"github.com/fluxforge/nodesync/check_nodesync/inventory"
	"github.com/fluxforge/nodesync/check_nodesync/observability"
	"github.com/fluxforge/nodesync/check_nodesync/severity"
	"github.com/google/uuid"
)

// DefaultTimeout bounds a run when Options.Timeout is not set.
const DefaultTimeout = 60 * time.Second

// Deps are the collaborators of a run. Source is required.
type Deps struct {
	Source   inventory.Source
	Clock    func() time.Time
	Recorder *observability.Recorder
	Logger   *slog.Logger
}

type Options struct {
	Classify classify.Options
	Policy   severity.Policy
	Timeout  time.Duration
}

// Outcome is the result of one run. When Err is set, State is UNKNOWN and
// Summary and Result are nil.
type Outcome struct {
	State    severity.State
	Summary  *severity.Summary
	Result   *classify.Result
	Err      error
	RunID    string
	Duration time.Duration
}

type classified struct {
	res *classify.Result
	err error
}

// Run classifies the inventory of deps.Source and aggregates it under
// opts.Policy. The whole run is bounded by opts.Timeout; when it expires Run
// returns immediately without waiting for the in-flight query.
func Run(ctx context.Context, deps Deps, opts Options) Outcome {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runID := uuid.NewString()
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("run_id", runID)

	start := time.Now()
	out := Outcome{State: severity.Unknown, RunID: runID}
	defer func() {
		if deps.Recorder != nil {
			deps.Recorder.ObserveRun(out.State, out.Duration)
		}
	}()

	if deps.Source == nil {
		out.Err = errors.New("no inventory source configured")
		out.Duration = time.Since(start)
		return out
	}

	src := deps.Source
	if deps.Recorder != nil {
		src = deps.Recorder.Instrument(src)
	}

	copts := opts.Classify
	copts.Logger = logger

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("[PROBE] run started", "source", src.Name(), "timeout", timeout, "max_sync_minutes", copts.MaxSyncMinutes)

	now := clock()
	done := make(chan classified, 1)
	go func() {
		res, err := classify.Classify(runCtx, src, now, copts)
		done <- classified{res: res, err: err}
	}()

	var c classified
	select {
	case c = <-done:
	case <-runCtx.Done():
		c = classified{err: runCtx.Err()}
	}
	out.Duration = time.Since(start)

	if c.err != nil {
		out.Err = classifyError(runCtx, c.err, timeout)
		logger.Warn("[PROBE] run failed", "error", out.Err, "duration", out.Duration)
		return out
	}

	summary := opts.Policy.Evaluate(c.res)
	out.State = summary.State
	out.Summary = &summary
	out.Result = c.res

	if deps.Recorder != nil {
		deps.Recorder.ObserveResult(c.res, now)
	}
	logger.Info("[PROBE] run finished", "state", out.State.String(), "nodes", len(c.res.Total), "duration", out.Duration)
	return out
}

// classifyError maps a run failure onto the error taxonomy reported to the
// operator.
func classifyError(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{After: timeout}
	}

	var integrity *classify.IntegrityError
	if errors.As(err, &integrity) {
		return fmt.Errorf("data integrity: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("probe aborted: %w", err)
	}
	return fmt.Errorf("connectivity: %w", err)
}
