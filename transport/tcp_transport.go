package transport

import (
	"net"
	"strconv"

	"github.com/nczempin/httpd-go-uring/errors"
)

// TcpTransport is the client side Transport. Once connected it classifies
// I/O errors exactly like an accepted TcpConn.
type TcpTransport struct {
	conn *TcpConn
}

// NewTcpTransport creates an unconnected TcpTransport
func NewTcpTransport() *TcpTransport {
	return &TcpTransport{}
}

// Connect dials host:port
func (t *TcpTransport) Connect(host string, port int) error {
	c, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return errors.NewTransportError(errors.TransportErrorSocketConnectFailure, "connect failed", err)
	}

	t.conn = &TcpConn{conn: c}
	return nil
}

// Write sends buf to the server
func (t *TcpTransport) Write(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketWriteFailure, "not connected", nil)
	}
	return t.conn.Write(buf)
}

// Read receives from the server; ConnectionClosed marks the end of the response
func (t *TcpTransport) Read(buf []byte) (int, error) {
	if t.conn == nil {
		return 0, errors.NewTransportError(errors.TransportErrorSocketReadFailure, "not connected", nil)
	}
	return t.conn.Read(buf)
}

// Close is idempotent
func (t *TcpTransport) Close() error {
	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil
	return err
}
