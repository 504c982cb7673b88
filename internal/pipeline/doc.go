// Package pipeline implements an order-preserving parallel pipeline: items
// are submitted in FIFO order, transformed by a pool of worker goroutines
// that may finish in any order, and delivered to a single consumer in
// exactly the order they were submitted.
//
// A worker panic drops that item; a consumer panic drops that item's
// result. Neither kind of panic takes down the worker pool or the emitter,
// and neither is surfaced to the caller — Pipeline is deliberately
// best-effort per item, with drops observable only through the drop hook
// passed to New with WithDropHook and through the pipeline's log lines.
package pipeline
