// Package exitcode resolves raw child-process outcomes into the single
// shell-style integer status the retry loop operates on.
//
// The convention matches what POSIX shells report for their own
// children, so downstream tooling treats retry's exit uniformly with
// shell pipelines: a signal death becomes 128+N, a command that could
// not be found becomes 127, one that could not be executed becomes 126.
package exitcode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// Shell-convention codes for conditions retry reports itself.
const (
	NotExecutable = 126 // command found but not executable
	NotFound      = 127 // command not found
	SignalBase    = 128 // added to the terminating signal number
	Internal      = 125 // failure internal to retry, never from the child
)

// ErrUnresolved reports a process outcome with no representable status:
// an unclassifiable launch error, or a termination carrying neither an
// exit code nor a signal.
var ErrUnresolved = errors.New("exit status unresolved")

// Kind discriminates the outcome variants of one launch attempt.
type Kind string

const (
	// KindExited is a normal termination with an exit code.
	KindExited Kind = "exited"
	// KindSignaled is a termination by signal.
	KindSignaled Kind = "signaled"
	// KindNotFound is a launch failure: executable not found.
	KindNotFound Kind = "not_found"
	// KindNotExecutable is a launch failure: permission denied.
	KindNotExecutable Kind = "not_executable"
	// KindLaunchError is any other launch failure; it has no
	// representable status and resolution fails on it.
	KindLaunchError Kind = "launch_error"
)

// Outcome is the raw result of one launch attempt, produced by Observe
// and consumed by Resolve. Kind selects which of the remaining fields
// is meaningful; an Outcome is never retained beyond its attempt.
type Outcome struct {
	// Kind is the variant discriminator.
	Kind Kind
	// Code is the exit code, valid for KindExited.
	Code int
	// Signal is the terminating signal number, valid for KindSignaled.
	Signal int
	// Message is the launch failure text, valid for the failure kinds.
	Message string
}

// Resolved is a normalized process status: the shell-style code plus an
// optional diagnostic line. An empty Diagnostic means none.
type Resolved struct {
	// Code is the resolved shell-style status.
	Code int
	// Diagnostic carries the launch-failure reason, when one exists.
	Diagnostic string
}

// Observe classifies the result of a synchronous process launch into an
// Outcome. state and err are the values produced by (*exec.Cmd).Run:
// nil err means a clean zero exit, *exec.ExitError carries the child's
// wait status, anything else is a failure to launch at all.
func Observe(state *os.ProcessState, err error) Outcome {
	if err == nil {
		if state == nil {
			return Outcome{Kind: KindLaunchError, Message: "process state unavailable"}
		}
		return observeState(state)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ProcessState != nil {
		return observeState(exitErr.ProcessState)
	}

	switch {
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		return Outcome{Kind: KindNotFound, Message: err.Error()}
	case errors.Is(err, fs.ErrPermission):
		return Outcome{Kind: KindNotExecutable, Message: err.Error()}
	default:
		return Outcome{Kind: KindLaunchError, Message: err.Error()}
	}
}

// observeState maps a wait status onto the exited/signaled variants.
// A status that is neither (stopped/continued states leaking through
// on some platforms) is unrepresentable and classified as a launch
// error so that resolution fails on it.
func observeState(state *os.ProcessState) Outcome {
	if status, ok := state.Sys().(syscall.WaitStatus); ok {
		switch {
		case status.Exited():
			return Outcome{Kind: KindExited, Code: status.ExitStatus()}
		case status.Signaled():
			return Outcome{Kind: KindSignaled, Signal: int(status.Signal())}
		default:
			return Outcome{Kind: KindLaunchError, Message: fmt.Sprintf("wait status %v has no exit code or signal", state)}
		}
	}
	if state.Exited() {
		return Outcome{Kind: KindExited, Code: state.ExitCode()}
	}
	return Outcome{Kind: KindLaunchError, Message: "exit status unavailable"}
}

// Resolve maps an Outcome onto the shell-derived status convention.
// Pure function of its input; resolving the same Outcome twice yields
// the same Resolved.
//
//   - exited               -> the exit code as-is
//   - signaled             -> SignalBase + signal
//   - not found            -> NotFound, with the failure text attached
//   - not executable       -> NotExecutable, with the failure text attached
//   - anything else        -> error wrapping ErrUnresolved
func Resolve(o Outcome) (Resolved, error) {
	switch o.Kind {
	case KindExited:
		return Resolved{Code: o.Code}, nil
	case KindSignaled:
		return Resolved{Code: SignalBase + o.Signal}, nil
	case KindNotFound:
		return Resolved{Code: NotFound, Diagnostic: o.Message}, nil
	case KindNotExecutable:
		return Resolved{Code: NotExecutable, Diagnostic: o.Message}, nil
	case KindLaunchError:
		return Resolved{}, fmt.Errorf("%w: %s", ErrUnresolved, o.Message)
	default:
		return Resolved{}, fmt.Errorf("%w: unknown outcome kind %q", ErrUnresolved, o.Kind)
	}
}
