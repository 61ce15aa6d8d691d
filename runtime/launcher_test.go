//go:build unix

package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glennpratt/retry/exitcode"
	"github.com/glennpratt/retry/policy"
	"github.com/glennpratt/retry/types"
)

func TestCommandLauncher_ExitCode(t *testing.T) {
	l := NewCommandLauncher(types.CommandSpec{Path: "sh", Args: []string{"-c", "exit 3"}})

	outcome, state := l.Launch(context.Background())
	if outcome.Kind != exitcode.KindExited {
		t.Fatalf("kind = %s, want exited (%s)", outcome.Kind, outcome.Message)
	}
	if outcome.Code != 3 {
		t.Errorf("code = %d, want 3", outcome.Code)
	}
	if state == nil {
		t.Error("process state should be present for a started child")
	}
}

func TestCommandLauncher_Signal(t *testing.T) {
	l := NewCommandLauncher(types.CommandSpec{Path: "sh", Args: []string{"-c", "kill -9 $$"}})

	outcome, _ := l.Launch(context.Background())
	if outcome.Kind != exitcode.KindSignaled {
		t.Fatalf("kind = %s, want signaled", outcome.Kind)
	}
	if outcome.Signal != 9 {
		t.Errorf("signal = %d, want 9", outcome.Signal)
	}

	resolved, err := exitcode.Resolve(outcome)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Code != 137 {
		t.Errorf("resolved = %d, want 137", resolved.Code)
	}
}

func TestCommandLauncher_NotFound(t *testing.T) {
	l := NewCommandLauncher(types.CommandSpec{Path: "retry-test-no-such-binary"})

	outcome, state := l.Launch(context.Background())
	if outcome.Kind != exitcode.KindNotFound {
		t.Fatalf("kind = %s, want not_found", outcome.Kind)
	}
	if state != nil {
		t.Error("process state should be nil when the child never started")
	}

	resolved, err := exitcode.Resolve(outcome)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Code != 127 {
		t.Errorf("resolved = %d, want 127", resolved.Code)
	}
	if resolved.Diagnostic == "" {
		t.Error("not-found should carry a diagnostic")
	}
}

func TestCommandLauncher_PermissionDenied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-executable")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	l := NewCommandLauncher(types.CommandSpec{Path: path})

	outcome, _ := l.Launch(context.Background())
	if outcome.Kind != exitcode.KindNotExecutable {
		t.Fatalf("kind = %s, want not_executable", outcome.Kind)
	}

	resolved, err := exitcode.Resolve(outcome)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Code != 126 {
		t.Errorf("resolved = %d, want 126", resolved.Code)
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	// Full loop with the real launcher: a marker file makes the child
	// fail twice, then succeed.
	marker := filepath.Join(t.TempDir(), "count")
	script := "c=$(cat " + marker + " 2>/dev/null || echo 0); c=$((c+1)); echo $c > " + marker + "; [ $c -ge 3 ]"

	engine, err := NewEngine(&RunConfig{
		Command: types.CommandSpec{Path: "sh", Args: []string{"-c", script}},
		Policy: policy.RetryPolicy{
			Timeout: 30 * time.Second, // comfortably beyond three quick attempts
			Until:   policy.NewCodeSet(0),
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result, err := engine.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.FinalCode != 0 {
		t.Errorf("final = %d, want 0", result.FinalCode)
	}
	if len(result.Attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(result.Attempts))
	}
}
