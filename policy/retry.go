// Package policy defines the acceptance policy that decides, after
// each attempt, whether the retry loop stops or continues, and how the
// final status is rewritten before it reaches the caller.
package policy

import (
	"fmt"
	"slices"
	"time"

	"github.com/glennpratt/retry/types"
)

// CodeSet is an optional set of exit codes. The zero value is unset,
// which evaluation treats as "no restriction"; NewCodeSet with no
// arguments is an explicitly empty set. The distinction keeps "any
// code" an explicit state instead of an ambiguous empty collection.
type CodeSet struct {
	codes map[int]struct{}
}

// NewCodeSet builds a set from the given codes. The result counts as
// set even when codes is empty.
func NewCodeSet(codes ...int) CodeSet {
	s := CodeSet{codes: make(map[int]struct{}, len(codes))}
	for _, c := range codes {
		s.codes[c] = struct{}{}
	}
	return s
}

// IsSet reports whether the set was explicitly constructed.
func (s CodeSet) IsSet() bool {
	return s.codes != nil
}

// Contains reports membership. An unset set contains nothing.
func (s CodeSet) Contains(code int) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of codes in the set.
func (s CodeSet) Len() int {
	return len(s.codes)
}

// Codes returns the members in ascending order, for reports and log
// fields. An unset set returns nil.
func (s CodeSet) Codes() []int {
	if s.codes == nil {
		return nil
	}
	out := make([]int, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Rule is one rewrite table entry: a final status of From becomes To.
type Rule struct {
	From int
	To   int
}

// String renders the rule the way it is configured on the command line.
func (r Rule) String() string {
	return fmt.Sprintf("%d=%d", r.From, r.To)
}

// RetryPolicy is the immutable-after-construction retry configuration.
// Build it once before the run starts; the engine never mutates it.
type RetryPolicy struct {
	// Timeout is the retry budget measured from the first launch.
	// Zero (the default) permits exactly one attempt.
	Timeout time.Duration
	// Delay is the pause between attempts.
	Delay time.Duration
	// Until holds the accepted (success) codes. Default() seeds it
	// with {0}; the zero value accepts nothing.
	Until CodeSet
	// On, when set, restricts retrying to the listed codes; any other
	// code stops the loop even on failure. Unset means every code is
	// retryable.
	On CodeSet
	// Rewrite is the ordered rewrite table applied to the final stop
	// code. Later entries override earlier ones for the same From.
	Rewrite []Rule
}

// Default returns the policy the CLI assumes when nothing is
// configured: one attempt, no delay, success on exit 0.
func Default() RetryPolicy {
	return RetryPolicy{Until: NewCodeSet(0)}
}

// Validate rejects configurations the loop cannot execute.
func (p RetryPolicy) Validate() error {
	if p.Timeout < 0 {
		return fmt.Errorf("retry timeout must be >= 0, got %v", p.Timeout)
	}
	if p.Delay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %v", p.Delay)
	}
	return nil
}

// ShouldStop decides whether the loop ends after an attempt that
// resolved to code, with elapsed measured from the start of the run.
// Clause order defines precedence between acceptance and timeout:
//
//  1. code in Until: stop, desired terminal state reached.
//  2. On is set and code is not in it: stop, retrying is pointless.
//  3. elapsed >= Timeout: stop, budget exhausted.
//  4. otherwise continue.
func (p RetryPolicy) ShouldStop(code int, elapsed time.Duration) bool {
	if p.Until.Contains(code) {
		return true
	}
	if p.On.IsSet() && !p.On.Contains(code) {
		return true
	}
	return elapsed >= p.Timeout
}

// FinalCode applies the rewrite table to the stop code. The table is
// scanned in reverse so the last configured entry with a matching From
// wins; repeated flags supplying the same From therefore override
// earlier ones. No match leaves the code unchanged. Never applied to
// intermediate attempt codes.
func (p RetryPolicy) FinalCode(code int) int {
	for i := len(p.Rewrite) - 1; i >= 0; i-- {
		if p.Rewrite[i].From == code {
			return p.Rewrite[i].To
		}
	}
	return code
}

// Summary renders the policy for reports and run-finished events.
func (p RetryPolicy) Summary() types.PolicySummary {
	var rewrites []string
	if len(p.Rewrite) > 0 {
		rewrites = make([]string, 0, len(p.Rewrite))
		for _, r := range p.Rewrite {
			rewrites = append(rewrites, r.String())
		}
	}
	return types.PolicySummary{
		TimeoutMs: p.Timeout.Milliseconds(),
		DelayMs:   p.Delay.Milliseconds(),
		Until:     p.Until.Codes(),
		On:        p.On.Codes(),
		Rewrites:  rewrites,
	}
}
