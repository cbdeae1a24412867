package transport

import (
	"io"
	"net"
	"sync"

	"github.com/godzie44/go-uring/uring"
	"golang.org/x/sys/unix"

	"github.com/nczempin/httpd-go-uring/errors"
)

// UringListenerV2 accepts with a blocking accept4(2) and moves connection
// bytes through a godzie44/go-uring ring. The ring is not safe for
// concurrent use, which matches the one-connection-at-a-time worker loop.
type UringListenerV2 struct {
	ring *uring.Ring
	fd   int
	addr net.Addr

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewUringListenerV2 binds ep and creates the ring (v2 using godzie44/go-uring)
func NewUringListenerV2(ep Endpoint, backlog int) (*UringListenerV2, error) {
	// Create io_uring instance with queue depth of 32
	ring, err := uring.New(32)
	if err != nil {
		return nil, errors.NewSetupError(
			errors.SetupErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	fd, err := ListenSocket(ep, backlog)
	if err != nil {
		ring.Close()
		return nil, err
	}

	return &UringListenerV2{
		ring: ring,
		fd:   fd,
		addr: socketAddr(fd),
	}, nil
}

// Accept waits for the next connection
func (l *UringListenerV2) Accept() (Conn, error) {
	nfd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		if l.isClosed() {
			return nil, errors.NewTransportError(errors.TransportErrorListenerClosed, "listener closed", err)
		}
		return nil, errors.NewTransportError(errors.TransportErrorAcceptFailure, "accept failed", err)
	}
	return &UringConnV2{listener: l, fd: nfd}, nil
}

// Close wakes a blocked accept and closes the socket. The ring is released
// once no connection can be using it.
func (l *UringListenerV2) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		err = wakeAndClose(l.fd)
	})
	return err
}

// Destroy closes the listener and releases the ring
func (l *UringListenerV2) Destroy() {
	l.Close()
	if l.ring != nil {
		l.ring.Close()
		l.ring = nil
	}
}

// Addr returns the bound address
func (l *UringListenerV2) Addr() net.Addr {
	return l.addr
}

func (l *UringListenerV2) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// UringConnV2 is an accepted connection using the listener's ring
type UringConnV2 struct {
	listener  *UringListenerV2
	fd        int
	closeOnce sync.Once
}

// Read receives data from the connection using io_uring
func (c *UringConnV2) Read(buf []byte) (int, error) {
	ring := c.listener.ring

	// Queue read operation
	sqe := uring.Read(uintptr(c.fd), buf, 0)
	if err := ring.QueueSQE(sqe, 0, 0); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to queue read request",
			err,
		)
	}

	// Submit and wait
	if _, err := ring.Submit(); err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorIoUringSubmit,
			"failed to submit read request",
			err,
		)
	}

	cqe, err := ring.WaitCQEvents(1)
	if err != nil {
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"failed to wait for read completion",
			err,
		)
	}

	if err := cqe.Error(); err != nil {
		ring.SeenCQE(cqe)
		return 0, errors.NewTransportError(
			errors.TransportErrorSocketReadFailure,
			"read operation failed",
			err,
		)
	}

	n := int(cqe.Res)
	ring.SeenCQE(cqe)

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
func (c *UringConnV2) Write(buf []byte) (int, error) {
	ring := c.listener.ring

	totalWritten := 0
	for totalWritten < len(buf) {
		// Sockets ignore the offset
		sqe := uring.Write(uintptr(c.fd), buf[totalWritten:], 0)
		if err := ring.QueueSQE(sqe, 0, 0); err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorIoUringSubmit,
				"failed to queue write request",
				err,
			)
		}

		if _, err := ring.Submit(); err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorIoUringSubmit,
				"failed to submit write request",
				err,
			)
		}

		cqe, err := ring.WaitCQEvents(1)
		if err != nil {
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"failed to wait for write completion",
				err,
			)
		}

		if err := cqe.Error(); err != nil {
			ring.SeenCQE(cqe)
			return totalWritten, errors.NewTransportError(
				errors.TransportErrorSocketWriteFailure,
				"write operation failed",
				err,
			)
		}

		n := int(cqe.Res)
		ring.SeenCQE(cqe)

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
func (c *UringConnV2) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if cerr := wakeAndClose(c.fd); cerr != nil {
			err = errors.NewTransportError(errors.TransportErrorSocketCloseFailure, "failed to close socket", cerr)
		}
	})
	return err
}
