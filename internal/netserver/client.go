package netserver

import "sync/atomic"

// Client is a one-shot connection to a Server: Send may be called
// successfully exactly once per Dial. Subsequent calls return an empty
// reply without touching the network, mirroring the one-shot semantics of
// the connection this package's client is modeled on.
type Client struct {
	conn *connection
	sent atomic.Bool
}

// Dial opens a connection to address ("host::port"). It returns an error
// wrapping ErrConfig for a malformed address, or ErrUnreachable if the peer
// does not answer within the reachability timeout.
func Dial(address string) (*Client, error) {
	if address == "" {
		address = DefaultAddress
	}
	network, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	conn, err := probeReachable(network)
	if err != nil {
		return nil, err
	}

	return &Client{conn: newConnection(conn)}, nil
}

// Send writes message as a framed request and returns the server's framed
// reply. After the first call to Send, whether or not it succeeded, the
// Client is spent: further calls return "" with no error.
func (c *Client) Send(message string) (string, error) {
	if !c.sent.CompareAndSwap(false, true) {
		return "", nil
	}

	if err := c.conn.send(message); err != nil {
		return "", err
	}
	return c.conn.receive()
}

// Close releases the underlying connection. Safe to call after Send.
func (c *Client) Close() error {
	return c.conn.close()
}
