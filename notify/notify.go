// Package notify defines the run-finished notification boundary.
//
// Notifiers publish a single event after the retry loop stops, telling
// downstream systems what the command finally exited with. Publication
// is best-effort: the CLI logs a warning on failure and never lets it
// change the run's exit code.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventType is the type discriminant carried by every event.
const EventType = "run_finished"

// Event is the payload published when a retry run finishes.
type Event struct {
	EventType string `json:"event_type"` // always "run_finished"
	Version   string `json:"version"`
	RunID     string `json:"run_id"`
	Command   string `json:"command"`
	// StopCode is the resolved code the loop stopped on, before rewrite.
	StopCode int `json:"stop_code"`
	// FinalCode is the code returned to the caller, after rewrite.
	FinalCode int `json:"final_code"`
	// Outcome is the last attempt's outcome kind (exited, signaled, ...).
	Outcome    string `json:"outcome"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  string `json:"timestamp"` // ISO 8601
}

// Notifier publishes run-finished events to a downstream system.
// Implementations must be safe for single-use per run.
type Notifier interface {
	// Publish sends a run-finished event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *Event) error

	// Close releases notifier resources.
	Close() error
}

// ErrPermanent marks a delivery failure that must not be retried.
// Transports wrap rejections that more attempts cannot fix (an HTTP 4xx,
// for example) so Deliver stops instead of burning the remaining budget.
var ErrPermanent = errors.New("permanent delivery failure")

// deliveryBackoff is the delay before the first redelivery; it doubles
// on each subsequent one. The event is a courtesy signal after the run
// already finished, so the schedule stays short.
const deliveryBackoff = 250 * time.Millisecond

// Deliver runs send up to 1+retries times. Returns nil on the first
// success, immediately on an ErrPermanent failure, and the last error
// once the budget is spent. A zero retries value sends exactly once.
func Deliver(ctx context.Context, retries int, send func(context.Context) error) error {
	var lastErr error
	attempts := 1 + retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("delivery canceled: %w", err)
		}

		if i > 0 {
			delay := deliveryBackoff << uint(i-1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("delivery canceled during backoff: %w", ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
	}

	return fmt.Errorf("delivery failed after %d attempts: %w", attempts, lastErr)
}
