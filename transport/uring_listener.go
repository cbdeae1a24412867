package transport

import (
	stderrors "errors"
	"io"
	"net"
	"sync"

	"github.com/iceber/iouring-go"
	"golang.org/x/sys/unix"

	"github.com/nczempin/httpd-go-uring/errors"
)

// UringListener submits accept, recv and send through an iouring-go ring
type UringListener struct {
	iour *iouring.IOURing
	fd   int
	addr net.Addr

	closeOnce sync.Once
	done      chan struct{}
}

// NewUringListener binds ep and creates the ring shared by all accepted connections
func NewUringListener(ep Endpoint, backlog int) (*UringListener, error) {
	// Create io_uring instance with queue depth of 32
	iour, err := iouring.New(32)
	if err != nil {
		return nil, errors.NewSetupError(
			errors.SetupErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	fd, err := ListenSocket(ep, backlog)
	if err != nil {
		iour.Close()
		return nil, err
	}

	return &UringListener{
		iour: iour,
		fd:   fd,
		addr: socketAddr(fd),
		done: make(chan struct{}),
	}, nil
}

// Accept waits for the next connection
func (l *UringListener) Accept() (Conn, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := l.iour.SubmitRequest(iouring.Accept(l.fd), ch); err != nil {
		if l.isClosed() {
			return nil, errors.NewTransportError(errors.TransportErrorListenerClosed, "listener closed", err)
		}
		return nil, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit accept request",
			err,
		)
	}

	select {
	case result := <-ch:
		fd, err := result.ReturnFd()
		if err != nil {
			if l.isClosed() {
				return nil, errors.NewTransportError(errors.TransportErrorListenerClosed, "listener closed", err)
			}
			return nil, errors.NewTransportError(errors.TransportErrorAcceptFailure, "accept failed", err)
		}
		return &UringConn{iour: l.iour, fd: fd, done: l.done}, nil
	case <-l.done:
		return nil, errors.NewTransportError(errors.TransportErrorListenerClosed, "listener closed", nil)
	}
}

// Close wakes a pending accept, closes the socket and tears down the ring
func (l *UringListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = wakeAndClose(l.fd)
		l.iour.Close()
	})
	return err
}

// Addr returns the bound address
func (l *UringListener) Addr() net.Addr {
	return l.addr
}

func (l *UringListener) isClosed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// UringConn is an accepted connection whose I/O goes through the listener's ring
type UringConn struct {
	iour *iouring.IOURing
	fd   int
	done <-chan struct{}

	closeOnce sync.Once
}

// Read receives data from the connection using io_uring
func (c *UringConn) Read(buf []byte) (int, error) {
	ch := make(chan iouring.Result, 1)
	if _, err := c.iour.SubmitRequest(iouring.Recv(c.fd, buf, 0), ch); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit read request",
			err,
		)
	}

	var result iouring.Result
	select {
	case result = <-ch:
	case <-c.done:
		return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "listener closed", nil)
	}

	n, err := completion(result.(iouring.Request).GetRes())
	if err != nil {
		if stderrors.Is(err, unix.ECONNRESET) {
			return 0, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection reset by peer", err)
		}
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"read failed",
			err,
		)
	}

	if n == 0 && len(buf) > 0 {
		return 0, errors.NewTransportError(
			errors.TransportErrorConnectionClosed,
			"connection closed by peer",
			io.EOF,
		)
	}

	return n, nil
}

// Write sends all of buf using io_uring
func (c *UringConn) Write(buf []byte) (int, error) {
	totalWritten := 0
	for totalWritten < len(buf) {
		ch := make(chan iouring.Result, 1)
		if _, err := c.iour.SubmitRequest(iouring.Send(c.fd, buf[totalWritten:], unix.MSG_NOSIGNAL), ch); err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorIoUringSubmit,
				"failed to submit write request",
				err,
			)
		}

		var result iouring.Result
		select {
		case result = <-ch:
		case <-c.done:
			return totalWritten, errors.NewTransportError(errors.TransportErrorConnectionClosed, "listener closed", nil)
		}

		n, err := completion(result.(iouring.Request).GetRes())
		if err != nil {
			if stderrors.Is(err, unix.EPIPE) || stderrors.Is(err, unix.ECONNRESET) {
				return totalWritten, errors.NewTransportError(errors.TransportErrorConnectionClosed, "connection closed during write", err)
			}
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"write failed",
				err,
			)
		}

		if n <= 0 {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorConnectionClosed,
				"connection closed during write",
				nil,
			)
		}

		totalWritten += n
	}

	return totalWritten, nil
}

// Close shuts the socket down and closes it
func (c *UringConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if cerr := wakeAndClose(c.fd); cerr != nil {
			err = errors.NewTransportError(errors.TransportErrorSocketCloseFailure, "failed to close socket", cerr)
		}
	})
	return err
}

// completion turns the raw completion result of a recv or send into a byte
// count. Those requests carry no resolver in iouring-go, so a negative
// result is the errno and must be decoded here.
func completion(res int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if res < 0 {
		return 0, unix.Errno(-res)
	}
	return res, nil
}
