package transport

import (
	"net"
	"strconv"
)

// Transport defines the interface for client-side network I/O
type Transport interface {
	// Connect establishes a connection to the specified host and port
	Connect(host string, port int) error

	// Write sends data over the connection
	// Returns the number of bytes written
	Write(buf []byte) (int, error)

	// Read receives data from the connection
	// Returns the number of bytes read
	Read(buf []byte) (int, error)

	// Close closes the connection
	Close() error
}

// Conn is one accepted server-side connection
type Conn interface {
	// Read receives data from the peer. When the peer has shut down its
	// side the error is TransportErrorConnectionClosed wrapping io.EOF.
	Read(buf []byte) (int, error)

	// Write sends all of buf to the peer
	Write(buf []byte) (int, error)

	// Close closes the connection. Closing also aborts a blocked Read or Write.
	Close() error
}

// Listener owns one bound and listening socket
type Listener interface {
	// Accept blocks until a connection arrives. After Close it returns a
	// TransportErrorListenerClosed error.
	Accept() (Conn, error)

	// Close stops the listener and wakes a blocked Accept
	Close() error

	// Addr returns the bound address
	Addr() net.Addr
}

// Endpoint is the address every worker binds
type Endpoint struct {
	Host string
	Port int
}

// DefaultEndpoint is the loopback endpoint used when nothing is configured
var DefaultEndpoint = Endpoint{Host: "127.0.0.1", Port: 42069}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// DefaultBacklog is the pending-connection queue passed to listen(2)
const DefaultBacklog = 128
