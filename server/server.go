// Package server runs the accept/read/respond/close loop of one worker.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nczempin/httpd-go-uring/errors"
	"github.com/nczempin/httpd-go-uring/protocol"
	"github.com/nczempin/httpd-go-uring/transport"
)

// Options configures the listening side of a worker
type Options struct {
	Engine         transport.Engine
	Endpoint       transport.Endpoint
	Backlog        int
	ReadBufferSize int
}

// DefaultOptions matches the fixed loopback endpoint and buffer sizes
func DefaultOptions() Options {
	return Options{
		Engine:         transport.EngineNet,
		Endpoint:       transport.DefaultEndpoint,
		Backlog:        transport.DefaultBacklog,
		ReadBufferSize: protocol.MaxRequestSize,
	}
}

// Server owns one listener and serves one connection at a time
type Server struct {
	listener transport.Listener
	handler  *Handler
	log      *logrus.Entry
	bufSize  int

	mu      sync.Mutex
	active  transport.Conn
	stopped bool
}

// New creates a server on an already listening socket
func New(l transport.Listener, h *Handler, log *logrus.Entry, bufSize int) *Server {
	if bufSize <= 0 {
		bufSize = protocol.MaxRequestSize
	}
	return &Server{
		listener: l,
		handler:  h,
		log:      log,
		bufSize:  bufSize,
	}
}

// ListenAndServe binds according to opts and serves until ctx is done.
// A bind or listen failure is returned immediately and never retried.
func ListenAndServe(ctx context.Context, opts Options, h *Handler, log *logrus.Entry) error {
	l, err := transport.Listen(opts.Engine, opts.Endpoint, opts.Backlog)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"addr":   l.Addr().String(),
		"engine": string(opts.Engine),
	}).Info("listening")

	return New(l, h, log, opts.ReadBufferSize).Serve(ctx)
}

// Serve accepts connections until the listener is closed. Accept errors
// are not fatal; the loop simply tries again. Every accepted connection
// is closed after at most one response.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()
	defer transport.Release(s.listener)

	buf := make([]byte, s.bufSize)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.IsTransport(err, errors.TransportErrorListenerClosed) {
				return nil
			}
			s.log.WithError(err).Debug("accept failed")
			continue
		}

		s.serveConn(conn, buf)
	}
}

// Stop closes the listener and aborts the connection in flight, if any.
// Nothing is drained.
func (s *Server) Stop() {
	s.mu.Lock()
	s.stopped = true
	active := s.active
	s.mu.Unlock()

	if active != nil {
		active.Close()
	}
	s.listener.Close()
}

func (s *Server) serveConn(conn transport.Conn, buf []byte) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer func() {
		s.track(nil)
		conn.Close()
	}()

	// One read is the whole request, however short. A peer that shuts down
	// without sending anything has made an empty request, not failed.
	n, err := conn.Read(buf)
	if err != nil && !stderrors.Is(err, io.EOF) {
		s.log.WithError(err).Debug("read failed")
		return
	}
	if s.isStopped() {
		return
	}

	resp := s.handler.Handle(buf[:n])
	if resp == nil {
		return
	}

	if _, err := conn.Write(resp); err != nil {
		s.log.WithError(err).Debug("write failed")
	}
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// track records conn as in flight. It reports false once the server is stopped.
func (s *Server) track(conn transport.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn != nil && s.stopped {
		return false
	}
	s.active = conn
	return true
}
