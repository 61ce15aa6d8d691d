// Package types defines the shared domain types for the retry engine.
//
//nolint:revive // types is a common Go package naming convention
package types

import "strings"

// CommandSpec is a fully resolved child-process specification: the
// executable to launch and its argument vector. Construction from a
// command line is the caller's concern; the engine treats the spec as
// opaque identity.
type CommandSpec struct {
	// Path is the executable path or name (resolved via PATH lookup
	// when it contains no separator).
	Path string `msgpack:"path" json:"path" yaml:"path"`
	// Args is the argument vector, not including the executable itself.
	Args []string `msgpack:"args,omitempty" json:"args,omitempty" yaml:"args,omitempty"`
}

// String renders the command the way it was invoked, for diagnostics
// and report output.
func (c CommandSpec) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// Empty reports whether the spec names no executable.
func (c CommandSpec) Empty() bool {
	return c.Path == ""
}
