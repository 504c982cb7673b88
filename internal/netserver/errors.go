package netserver

import "errors"

// ErrConfig is wrapped by errors arising from a malformed address string
// (anything not of the form "host::port").
var ErrConfig = errors.New("netserver: malformed address")

// ErrAlreadyRunning is returned by Start if a Server has already been
// started in this process.
var ErrAlreadyRunning = errors.New("netserver: server already running")

// ErrUnreachable is returned by Dial when the peer does not answer the
// reachability probe within the timeout.
var ErrUnreachable = errors.New("netserver: peer unreachable")

// ErrInvalidMessage is returned by send when the payload contains the
// framing marker as a literal substring, which would otherwise be
// ambiguous on the wire.
var ErrInvalidMessage = errors.New("netserver: message contains the framing marker")
