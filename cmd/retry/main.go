// Package main provides the retry CLI entrypoint.
//
// retry runs a command repeatedly until its exit status satisfies the
// configured policy or the retry budget runs out, then exits with the
// command's final (optionally rewritten) status.
//
// Usage:
//
//	retry [OPTIONS] -- COMMAND [ARGS]...
//
// Exit codes:
//   - the command's final status, after any --rewrite mapping
//   - 125: flag/configuration errors and internal failures, never the
//     spawned command's own exit
//   - 126/127: the shell convention for a command that could not be
//     executed or found, flowing through the policy like any other code
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/glennpratt/retry/cli/cmd"
	"github.com/glennpratt/retry/exitcode"
	"github.com/glennpratt/retry/types"
)

func main() {
	// The original tool uses -V for version; urfave defaults to -v.
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:            "retry",
		Usage:           "Run a command until its exit status satisfies a retry policy",
		ArgsUsage:       cmd.ArgsUsage,
		Version:         types.Version,
		Flags:           cmd.Flags(),
		Action:          cmd.Action,
		OnUsageError:    cmd.OnUsageError,
		HideHelpCommand: true,
		ExitErrHandler:  exitErrHandler,
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(exitcode.Internal)
	}
}

// exitErrHandler handles errors from the CLI, preserving exit codes from
// cli.Exit(). This is how the child's final status becomes retry's own.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	// Check for ExitCoder (from cli.Exit), handles wrapped errors
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// Only print if there's a real message (not just "exit status N")
		// cli.Exit("", N).Error() returns "exit status N", so skip those
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	// Unexpected error: internal failure, never a child status
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitcode.Internal)
}
