package transport

import (
	stderrors "errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/nczempin/httpd-go-uring/errors"
)

// TcpListener serves accepted connections through the Go runtime poller
type TcpListener struct {
	ln net.Listener
}

// NewTcpListener binds ep and wraps the listening socket in a net.Listener
func NewTcpListener(ep Endpoint, backlog int) (*TcpListener, error) {
	fd, err := ListenSocket(ep, backlog)
	if err != nil {
		return nil, err
	}

	// FileListener dups the descriptor, so the original is closed either way
	file := os.NewFile(uintptr(fd), "listener "+ep.String())
	ln, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, errors.NewSetupError(
			errors.SetupErrorListen,
			"Unable to wrap listening socket",
			err,
		)
	}

	return &TcpListener{ln: ln}, nil
}

// Accept waits for the next connection
func (l *TcpListener) Accept() (Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		if stderrors.Is(err, net.ErrClosed) {
			return nil, errors.NewTransportError(errors.TransportErrorListenerClosed, "listener closed", err)
		}
		return nil, errors.NewTransportError(errors.TransportErrorAcceptFailure, "accept failed", err)
	}
	return &TcpConn{conn: c}, nil
}

// Close closes the listening socket
func (l *TcpListener) Close() error {
	return l.ln.Close()
}

// Addr returns the bound address
func (l *TcpListener) Addr() net.Addr {
	return l.ln.Addr()
}

// TcpConn is a connection on the runtime poller, accepted or dialed
type TcpConn struct {
	conn net.Conn
}

// Read receives data from the connection
func (c *TcpConn) Read(buf []byte) (int, error) {
	n, err := c.conn.Read(buf)
	if err != nil {
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, syscall.ECONNRESET) || stderrors.Is(err, net.ErrClosed) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "read failed", err)
	}
	return n, nil
}

// Write sends data over the connection
func (c *TcpConn) Write(buf []byte) (int, error) {
	n, err := c.conn.Write(buf)
	if err != nil {
		// Check for broken pipe or connection reset
		if stderrors.Is(err, syscall.EPIPE) || stderrors.Is(err, syscall.ECONNRESET) || stderrors.Is(err, net.ErrClosed) {
			return n, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed", err)
		}
		return n, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "write failed", err)
	}
	return n, nil
}

// Close closes the connection
func (c *TcpConn) Close() error {
	if err := c.conn.Close(); err != nil {
		return errors.NewTransportError(errors.TransportErrorSocketCloseFailure, "close failed", err)
	}
	return nil
}
