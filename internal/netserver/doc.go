// Package netserver implements a small request/response TCP server and
// matching client, framed with a line-based text protocol: each message is
// one or more lines, and the last line of a message ends with the literal
// marker "[<EOM>]".
//
// A server handles connections off its accept loop, concurrently, through a
// bounded pool of handler goroutines tracked with a taskutil.TaskGroup, so
// that Stop can close the listener and then drain in-flight requests. A
// message that trim-equals "shutdown" is the server's own control message:
// it replies "Shutting down" and begins closing, rather than reaching the
// caller's handler.
//
// The client is one-shot: Send may be called successfully exactly once per
// Dial.
package netserver
