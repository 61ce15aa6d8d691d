package types

// AttemptRecord describes one launch-to-termination cycle of the child
// process. Records are appended to the journal as the run progresses and
// collected on the final result; codes here are resolved but never
// rewritten (the rewrite table applies only to the run's final code).
type AttemptRecord struct {
	// RunID is the ULID of the run this attempt belongs to.
	RunID string `msgpack:"run_id" json:"run_id" yaml:"run_id"`
	// Seq is the attempt number, starts at 1.
	Seq int `msgpack:"seq" json:"seq" yaml:"seq"`
	// Outcome is the observed outcome kind (exited, signaled, ...).
	Outcome string `msgpack:"outcome" json:"outcome" yaml:"outcome"`
	// Code is the resolved shell-style status for this attempt.
	Code int `msgpack:"code" json:"code" yaml:"code"`
	// Diagnostic is the launch-failure message, when one exists.
	Diagnostic string `msgpack:"diagnostic,omitempty" json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	// StartedAt is the attempt start timestamp in ISO 8601 UTC format.
	StartedAt string `msgpack:"started_at" json:"started_at" yaml:"started_at"`
	// DurationMs is the wall-clock time this attempt took.
	DurationMs int64 `msgpack:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
	// ElapsedMs is the cumulative wall-clock time since the run began,
	// measured when the stop predicate was evaluated.
	ElapsedMs int64 `msgpack:"elapsed_ms" json:"elapsed_ms" yaml:"elapsed_ms"`
	// Stop records the stop predicate's decision after this attempt.
	Stop bool `msgpack:"stop" json:"stop" yaml:"stop"`
}

// PolicySummary echoes the policy a run was configured with, in a form
// suitable for reports and events.
type PolicySummary struct {
	// TimeoutMs is the retry budget in milliseconds.
	TimeoutMs int64 `json:"timeout_ms" yaml:"timeout_ms"`
	// DelayMs is the inter-attempt delay in milliseconds.
	DelayMs int64 `json:"delay_ms" yaml:"delay_ms"`
	// Until is the sorted set of accepted (success) codes.
	Until []int `json:"until" yaml:"until"`
	// On is the sorted set of retryable codes; nil means any code is
	// retryable.
	On []int `json:"on,omitempty" yaml:"on,omitempty"`
	// Rewrites is the configured rewrite table, in configuration order,
	// rendered as "from=to" pairs.
	Rewrites []string `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
}

// RunReport is the user-facing summary of a completed run, rendered by
// --report and embedded in run-finished notifications.
type RunReport struct {
	// Version is the retry release that produced this report.
	Version string `json:"version" yaml:"version"`
	// RunID is the ULID of the run.
	RunID string `json:"run_id" yaml:"run_id"`
	// Command is the child command as invoked.
	Command string `json:"command" yaml:"command"`
	// Policy echoes the effective retry policy.
	Policy PolicySummary `json:"policy" yaml:"policy"`
	// Attempts lists every attempt in order.
	Attempts []AttemptRecord `json:"attempts" yaml:"attempts"`
	// FinalCode is the run's final status after rewrite.
	FinalCode int `json:"final_code" yaml:"final_code"`
	// Rewritten reports whether the rewrite table changed the stop code.
	Rewritten bool `json:"rewritten" yaml:"rewritten"`
	// DurationMs is the total wall-clock time of the run.
	DurationMs int64 `json:"duration_ms" yaml:"duration_ms"`
	// Metrics summarizes the run's counters.
	Metrics MetricsSummary `json:"metrics" yaml:"metrics"`
}

// MetricsSummary embeds the run's counters in the report.
type MetricsSummary struct {
	// Attempts is the number of child launches.
	Attempts int64 `json:"attempts" yaml:"attempts"`
	// Retries is the number of sleep-and-relaunch cycles.
	Retries int64 `json:"retries" yaml:"retries"`
	// LaunchFailures counts not-found and permission-denied attempts.
	LaunchFailures int64 `json:"launch_failures" yaml:"launch_failures"`
	// SignalExits counts attempts terminated by a signal.
	SignalExits int64 `json:"signal_exits" yaml:"signal_exits"`
	// Rewrites counts final codes changed by the rewrite table.
	Rewrites int64 `json:"rewrites" yaml:"rewrites"`
}
