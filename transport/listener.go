package transport

import (
	"fmt"

	"github.com/nczempin/httpd-go-uring/errors"
)

// Engine selects the I/O implementation behind a Listener
type Engine string

const (
	// EngineNet uses the Go runtime network poller
	EngineNet Engine = "net"
	// EngineIoUring uses iceber/iouring-go for accept, recv and send
	EngineIoUring Engine = "iouring"
	// EngineGoUring uses godzie44/go-uring for read and write
	EngineGoUring Engine = "gouring"
)

// Engines lists the valid engine names
var Engines = []Engine{EngineNet, EngineIoUring, EngineGoUring}

// Listen binds ep with the requested engine
func Listen(engine Engine, ep Endpoint, backlog int) (Listener, error) {
	switch engine {
	case EngineNet, "":
		return NewTcpListener(ep, backlog)
	case EngineIoUring:
		return NewUringListener(ep, backlog)
	case EngineGoUring:
		return NewUringListenerV2(ep, backlog)
	default:
		return nil, errors.NewSetupError(
			errors.SetupErrorUnknownEngine,
			fmt.Sprintf("unknown engine %q", engine),
			nil,
		)
	}
}

// Release frees whatever a listener holds beyond its socket
func Release(l Listener) {
	if d, ok := l.(interface{ Destroy() }); ok {
		d.Destroy()
		return
	}
	l.Close()
}
