// Package watcher turns filesystem change notifications under a configured
// source tree into coalesced Events, so that a long-lived server only
// re-extracts a file once per burst of edits rather than once per write
// syscall.
package watcher
