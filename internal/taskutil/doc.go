// Package taskutil provides the small set of concurrency-coordination
// primitives used by the pipeline, the server, and the CLI's server
// command: a
// hierarchical, named wait-group (TaskGroup), a hierarchical signal
// broadcaster used for cooperative shutdown (SignalManager), and a
// stack-trace helper used to turn a recovered panic into a loggable line.
//
// None of these are meant to be general-purpose; they exist because the
// three components in this repository all need some version of "wait for a
// named, possibly-nested set of goroutines to finish" and "run this cleanup
// exactly once when told to stop, without caring which goroutine told it".
package taskutil
