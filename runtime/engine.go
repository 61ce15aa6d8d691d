// Package runtime implements the retry engine: the loop that launches
// the child process, resolves each outcome to a shell-style code,
// consults the policy, and applies the final rewrite.
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/glennpratt/retry/exitcode"
	"github.com/glennpratt/retry/journal"
	"github.com/glennpratt/retry/log"
	"github.com/glennpratt/retry/metrics"
	"github.com/glennpratt/retry/policy"
	"github.com/glennpratt/retry/types"
)

// RunConfig configures a single retry run.
type RunConfig struct {
	// Command is the fully resolved child-process specification.
	Command types.CommandSpec
	// RunID identifies the run in logs, journal records, and events.
	// Empty means Execute mints a fresh ULID per run.
	RunID string
	// Policy is the retry policy. An unset Until defaults to {0}.
	Policy policy.RetryPolicy
	// Diagnostics receives launch-failure messages, one line each,
	// tagged with the command. Nil means no diagnostics are emitted;
	// write failures are ignored either way.
	Diagnostics io.Writer
	// Logger receives engine lifecycle logs. Nil means error-level
	// logging to stderr.
	Logger *log.Logger
	// Journal, when set, records every attempt. Append failures are
	// logged at warn and never fail the run.
	Journal *journal.Writer
	// Collector is the metrics collector for this run.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// LauncherFactory overrides launcher creation (for testing).
	// If nil, uses NewCommandLauncher.
	LauncherFactory LauncherFactory
}

// RunResult represents the result of a completed run.
type RunResult struct {
	// RunID is the ULID minted for this run.
	RunID string
	// Command is the child command that was run.
	Command types.CommandSpec
	// State is the last attempt's process state; nil when the final
	// attempt never produced one (launch failure).
	State *os.ProcessState
	// Outcome is the last attempt's outcome kind.
	Outcome exitcode.Kind
	// StopCode is the resolved code the loop stopped on, before rewrite.
	StopCode int
	// FinalCode is the code after the rewrite table was applied.
	FinalCode int
	// Rewritten reports whether the rewrite table changed the stop code.
	Rewritten bool
	// Attempts lists every attempt in order. Codes are unrewritten.
	Attempts []types.AttemptRecord
	// Duration is the total wall-clock time of the run.
	Duration time.Duration
}

// Engine owns one child-process specification and policy, and drives
// the retry loop. One attempt runs at a time; the launch blocks until
// the child terminates and the inter-attempt sleep blocks for the
// configured delay. A second Execute starts an independent run with a
// fresh run ID.
type Engine struct {
	config *RunConfig
	policy policy.RetryPolicy
	logger *log.Logger

	// Injected for deterministic tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewEngine creates an engine from the given config. The config's
// policy is captured at construction; later mutation has no effect on
// a running loop.
func NewEngine(config *RunConfig) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("run config is required")
	}
	if config.Command.Empty() {
		return nil, fmt.Errorf("command is required")
	}

	pol := config.Policy
	if !pol.Until.IsSet() {
		pol.Until = policy.NewCodeSet(0)
	}
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = log.New("error")
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		config: config,
		policy: pol,
		logger: logger,
		now:    time.Now,
		sleep:  sleepWithContext,
	}, nil
}

// Execute runs the retry loop to completion and returns the result.
// It fails only by propagating an unresolved status from the resolver,
// or ctx.Err() when the caller cancels; the loop itself introduces no
// new error kinds.
func (e *Engine) Execute(ctx context.Context) (*RunResult, error) {
	runID := e.config.RunID
	if runID == "" {
		runID = ulid.Make().String()
	}
	logger := e.logger.With(map[string]any{
		"run_id":  runID,
		"command": e.config.Command.String(),
	})

	logger.Debug("starting run", map[string]any{
		"timeout": e.policy.Timeout.String(),
		"delay":   e.policy.Delay.String(),
	})

	start := e.now()
	var attempts []types.AttemptRecord

	for seq := 1; ; seq++ {
		attemptStart := e.now()
		outcome, state := e.launch(ctx)
		attemptDur := e.now().Sub(attemptStart)

		// A context kill surfaces as a signal death; report the
		// cancellation, not a synthesized exit code.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		e.config.Collector.IncAttempt()
		switch outcome.Kind {
		case exitcode.KindSignaled:
			e.config.Collector.IncSignalExit()
		case exitcode.KindNotFound, exitcode.KindNotExecutable:
			e.config.Collector.IncLaunchFailure()
		}

		resolved, err := exitcode.Resolve(outcome)
		if err != nil {
			e.config.Collector.IncUnresolved()
			logger.Error("cannot resolve process status", map[string]any{
				"attempt": seq,
				"error":   err.Error(),
			})
			return nil, err
		}

		if resolved.Diagnostic != "" && e.config.Diagnostics != nil {
			// Informational only; a broken sink never escalates.
			_, _ = fmt.Fprintf(e.config.Diagnostics, "%s: %s\n", e.config.Command, resolved.Diagnostic)
		}

		elapsed := e.now().Sub(start)
		stop := e.policy.ShouldStop(resolved.Code, elapsed)

		rec := types.AttemptRecord{
			RunID:      runID,
			Seq:        seq,
			Outcome:    string(outcome.Kind),
			Code:       resolved.Code,
			Diagnostic: resolved.Diagnostic,
			StartedAt:  attemptStart.UTC().Format(time.RFC3339Nano),
			DurationMs: attemptDur.Milliseconds(),
			ElapsedMs:  elapsed.Milliseconds(),
			Stop:       stop,
		}
		attempts = append(attempts, rec)
		e.record(logger, &rec)

		if stop {
			final := e.policy.FinalCode(resolved.Code)
			if final != resolved.Code {
				e.config.Collector.IncRewrite()
			}

			logger.Info("run stopped", map[string]any{
				"attempts":   seq,
				"stop_code":  resolved.Code,
				"final_code": final,
				"elapsed":    elapsed.String(),
			})

			return &RunResult{
				RunID:     runID,
				Command:   e.config.Command,
				State:     state,
				Outcome:   outcome.Kind,
				StopCode:  resolved.Code,
				FinalCode: final,
				Rewritten: final != resolved.Code,
				Attempts:  attempts,
				Duration:  elapsed,
			}, nil
		}

		e.config.Collector.IncRetry()
		logger.Debug("retrying", map[string]any{
			"attempt": seq,
			"code":    resolved.Code,
			"delay":   e.policy.Delay.String(),
		})

		if err := e.sleep(ctx, e.policy.Delay); err != nil {
			return nil, err
		}
	}
}

// ExitCode runs the loop and returns the shell-style final code alone.
func (e *Engine) ExitCode(ctx context.Context) (int, error) {
	result, err := e.Execute(ctx)
	if err != nil {
		return exitcode.Internal, err
	}
	return result.FinalCode, nil
}

func (e *Engine) launch(ctx context.Context) (exitcode.Outcome, *os.ProcessState) {
	var launcher Launcher
	if e.config.LauncherFactory != nil {
		launcher = e.config.LauncherFactory(e.config.Command)
	} else {
		launcher = NewCommandLauncher(e.config.Command)
	}
	return launcher.Launch(ctx)
}

// record journals one attempt, best effort.
func (e *Engine) record(logger *log.Logger, rec *types.AttemptRecord) {
	logger.Debug("attempt finished", map[string]any{
		"attempt":     rec.Seq,
		"outcome":     rec.Outcome,
		"code":        rec.Code,
		"duration_ms": rec.DurationMs,
		"stop":        rec.Stop,
	})

	if e.config.Journal == nil {
		return
	}
	if err := e.config.Journal.Append(rec); err != nil {
		logger.Warn("journal append failed (best effort)", map[string]any{
			"attempt": rec.Seq,
			"error":   err.Error(),
		})
	}
}

// sleepWithContext blocks for d or until ctx is done, whichever comes
// first. A non-positive d returns immediately with ctx's error, if any.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
