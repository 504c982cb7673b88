// Package progress implements a process-wide progress reporter: a single
// background goroutine that, on a fixed tick, logs one line per
// registered tracker summarizing how much of a named task has completed.
//
// Callers never construct the reporter themselves; they call Track to get
// a Tracker for a named unit of work, report progress against it with
// OneDone or Done, and Close it when finished. The reporter's goroutine is
// started lazily on the first call to Track and is never waited on at
// process exit.
package progress
