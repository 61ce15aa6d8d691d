package runtime

import (
	"context"
	"os"
	"os/exec"

	"github.com/glennpratt/retry/exitcode"
	"github.com/glennpratt/retry/types"
)

// Launcher runs the child process once, blocking until it terminates,
// and classifies the raw result. The process state is the raw
// termination evidence for the caller; it is nil when the process
// never started.
type Launcher interface {
	Launch(ctx context.Context) (exitcode.Outcome, *os.ProcessState)
}

// LauncherFactory creates a Launcher for one attempt. Used for test
// injection; the default builds a CommandLauncher.
type LauncherFactory func(spec types.CommandSpec) Launcher

// CommandLauncher launches the child via os/exec with the parent's
// stdio attached. The child owns the terminal for the duration of the
// attempt; retry's own output stays on stderr through the logger.
type CommandLauncher struct {
	spec types.CommandSpec
}

// NewCommandLauncher creates a launcher for the given command spec.
func NewCommandLauncher(spec types.CommandSpec) *CommandLauncher {
	return &CommandLauncher{spec: spec}
}

// Launch runs the command and blocks until it exits. Context
// cancellation kills an in-flight child; the engine checks ctx before
// interpreting the resulting outcome.
func (l *CommandLauncher) Launch(ctx context.Context) (exitcode.Outcome, *os.ProcessState) {
	cmd := exec.CommandContext(ctx, l.spec.Path, l.spec.Args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	return exitcode.Observe(cmd.ProcessState, err), cmd.ProcessState
}
