// Package cmd implements the retry CLI surface: flag parsing, policy
// construction, and the glue between the engine and its optional
// report, journal, and notification outputs.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"

	"github.com/glennpratt/retry/cli/render"
	"github.com/glennpratt/retry/exitcode"
	"github.com/glennpratt/retry/iox"
	"github.com/glennpratt/retry/journal"
	"github.com/glennpratt/retry/log"
	"github.com/glennpratt/retry/metrics"
	"github.com/glennpratt/retry/notify"
	"github.com/glennpratt/retry/runtime"
	"github.com/glennpratt/retry/types"
)

// ArgsUsage is the positional argument hint shown in help output.
const ArgsUsage = "-- COMMAND [ARGS]..."

// Flags returns the full flag surface of the retry binary.
func Flags() []cli.Flag {
	return []cli.Flag{
		// Policy flags
		&cli.StringFlag{
			Name:  "retry-timeout",
			Usage: "Stop retrying once `TIMEOUT` has elapsed (seconds, or a duration like 1m30s)",
		},
		&cli.StringFlag{
			Name:  "retry-delay",
			Usage: "Pause for `DELAY` between attempts (seconds, or a duration like 500ms)",
		},
		&cli.IntSliceFlag{
			Name:  "retry-until",
			Usage: "Stop when the command exits with `EXITCODE` (repeatable; default 0)",
		},
		&cli.IntSliceFlag{
			Name:  "retry-on",
			Usage: "Retry only on `EXITCODE`; any other code stops the run (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "rewrite",
			Usage: "Rewrite a final exit status `A=B` (repeatable; the last match wins)",
		},
		// Output flags
		&cli.StringFlag{
			Name:  "report",
			Usage: "Render an attempt report to stderr after the run: json, table, yaml",
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Append per-attempt records to `PATH`",
		},
		&cli.StringFlag{
			Name:  "notify",
			Usage: "Publish a run-finished event to `URL` (http(s):// webhook or redis:// channel)",
		},
		&cli.StringFlag{
			Name:  "notify-channel",
			Usage: "Redis pub/sub channel for --notify",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Engine log verbosity: debug, info, warn, error",
			Value: "error",
		},
	}
}

// OnUsageError converts flag parse failures (unknown flag, non-integer
// value) into the internal exit code, keeping them distinct from the
// spawned command's own statuses. urfave reports these before Action
// runs, as plain errors that would otherwise exit 1.
func OnUsageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
}

// Action is the root action: build the policy and engine from flags,
// run the command to completion, then exit with the final code.
//
// Configuration errors exit with the internal code (125) before the
// loop starts; the child's own codes are never conflated with it.
func Action(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return cli.Exit(
			fmt.Sprintf("Error: no command given\nUsage: %s %s", c.App.Name, ArgsUsage),
			exitcode.Internal,
		)
	}
	spec := types.CommandSpec{Path: args[0], Args: args[1:]}

	pol, err := buildPolicy(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
	}

	logger, err := log.New(c.String("log-level"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
	}

	reportFormat, err := render.ParseFormat(c.String("report"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
	}

	notifier, err := buildNotifier(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	var jw *journal.Writer
	if path := c.String("journal"); path != "" {
		jw, err = journal.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
		}
		defer iox.DiscardClose(jw)
	}

	runID := ulid.Make().String()
	collector := metrics.NewCollector(runID)

	engine, err := runtime.NewEngine(&runtime.RunConfig{
		Command:     spec,
		RunID:       runID,
		Policy:      pol,
		Diagnostics: os.Stderr,
		Logger:      logger,
		Journal:     jw,
		Collector:   collector,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), exitcode.Internal)
	}

	// No signal handling here: the terminal delivers SIGINT to the
	// whole foreground process group, child included.
	result, err := engine.Execute(context.Background())
	if err != nil {
		return cli.Exit(fmt.Sprintf("retry: %v", err), exitcode.Internal)
	}

	snap := collector.Snapshot()
	logger.Debug("run metrics", map[string]any{
		"attempts":        snap.Attempts,
		"retries":         snap.Retries,
		"launch_failures": snap.LaunchFailures,
		"signal_exits":    snap.SignalExits,
		"rewrites":        snap.Rewrites,
	})

	report := buildReport(result, pol.Summary(), snap)
	if reportFormat != "" {
		if err := render.NewRenderer(reportFormat).Render(report); err != nil {
			logger.Warn("report rendering failed (best effort)", map[string]any{
				"error": err.Error(),
			})
		}
	}

	if notifier != nil {
		publishEvent(notifier, logger, result)
	}

	return cli.Exit("", result.FinalCode)
}

func buildReport(result *runtime.RunResult, pol types.PolicySummary, snap metrics.Snapshot) *types.RunReport {
	return &types.RunReport{
		Version:    types.Version,
		RunID:      result.RunID,
		Command:    result.Command.String(),
		Policy:     pol,
		Attempts:   result.Attempts,
		FinalCode:  result.FinalCode,
		Rewritten:  result.Rewritten,
		DurationMs: result.Duration.Milliseconds(),
		Metrics: types.MetricsSummary{
			Attempts:       snap.Attempts,
			Retries:        snap.Retries,
			LaunchFailures: snap.LaunchFailures,
			SignalExits:    snap.SignalExits,
			Rewrites:       snap.Rewrites,
		},
	}
}

// publishEvent sends the run-finished event, best effort: a failed
// publish warns and never changes the run's exit code.
func publishEvent(notifier notify.Notifier, logger *log.Logger, result *runtime.RunResult) {
	event := &notify.Event{
		EventType:  notify.EventType,
		Version:    types.Version,
		RunID:      result.RunID,
		Command:    result.Command.String(),
		StopCode:   result.StopCode,
		FinalCode:  result.FinalCode,
		Outcome:    string(result.Outcome),
		Attempts:   len(result.Attempts),
		DurationMs: result.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := notifier.Publish(ctx, event); err != nil {
		logger.Warn("notify publish failed (best effort)", map[string]any{
			"error": err.Error(),
		})
	}
}
