// Package iox provides I/O helpers for resource cleanup.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable, such as
// the journal file and notifier teardown after the run's exit code is
// already decided:
//
//	defer iox.DiscardClose(jw)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(reader))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}
