// Package metrics provides per-run metrics collection.
//
// The Collector accumulates counters during a single retry run. It is a
// leaf package with no internal dependencies. All increment methods are
// nil-receiver safe, so an unconfigured engine needs no guards around
// metric calls.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all run counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after
// creation.
type Snapshot struct {
	// Attempts is the number of child launches, successful or not.
	Attempts int64
	// Retries is the number of times the loop slept and relaunched.
	Retries int64
	// LaunchFailures counts not-found and permission-denied attempts.
	LaunchFailures int64
	// SignalExits counts attempts terminated by a signal.
	SignalExits int64
	// Unresolved counts outcomes the resolver could not map to a code.
	Unresolved int64
	// Rewrites counts final codes changed by the rewrite table (0 or 1).
	Rewrites int64

	// RunID is the informational run dimension, set at construction.
	RunID string
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex; every method is nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	attempts       int64
	retries        int64
	launchFailures int64
	signalExits    int64
	unresolved     int64
	rewrites       int64

	runID string
}

// NewCollector creates a Collector labeled with the run's identity.
func NewCollector(runID string) *Collector {
	return &Collector{runID: runID}
}

// IncAttempt records one child launch.
func (c *Collector) IncAttempt() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attempts++
	c.mu.Unlock()
}

// IncRetry records a continue decision (sleep and relaunch).
func (c *Collector) IncRetry() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.retries++
	c.mu.Unlock()
}

// IncLaunchFailure records a classified launch failure (127 or 126).
func (c *Collector) IncLaunchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.launchFailures++
	c.mu.Unlock()
}

// IncSignalExit records an attempt terminated by a signal.
func (c *Collector) IncSignalExit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.signalExits++
	c.mu.Unlock()
}

// IncUnresolved records an outcome the resolver rejected.
func (c *Collector) IncUnresolved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.unresolved++
	c.mu.Unlock()
}

// IncRewrite records a final code changed by the rewrite table.
func (c *Collector) IncRewrite() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rewrites++
	c.mu.Unlock()
}

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Attempts:       c.attempts,
		Retries:        c.retries,
		LaunchFailures: c.launchFailures,
		SignalExits:    c.signalExits,
		Unresolved:     c.unresolved,
		Rewrites:       c.rewrites,
		RunID:          c.runID,
	}
}
