// Package supervisor starts one worker per processing unit and tears the
// whole group down as soon as any single worker ends.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/nczempin/httpd-go-uring/errors"
)

// WorkerEnv marks a re-executed child and carries its worker id
const WorkerEnv = "HTTPD_WORKER_ID"

// Mode selects how workers are run
type Mode string

const (
	// ModeProcess pre-forks child processes sharing the endpoint via SO_REUSEPORT
	ModeProcess Mode = "process"
	// ModeGoroutine runs workers as goroutines in the current process
	ModeGoroutine Mode = "goroutine"
)

// Modes lists the valid mode names
var Modes = []Mode{ModeProcess, ModeGoroutine}

// WorkerFunc runs one listener loop until ctx is done or it fails
type WorkerFunc func(ctx context.Context, id int) error

// IsChild reports whether this process was started as a worker by a primary
func IsChild() bool {
	_, ok := os.LookupEnv(WorkerEnv)
	return ok
}

// WorkerID returns the id given to this child, or 0 outside a child
func WorkerID() int {
	id, err := strconv.Atoi(os.Getenv(WorkerEnv))
	if err != nil {
		return 0
	}
	return id
}

// Workers resolves a configured worker count; zero or less means one per CPU
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

// Supervisor owns the worker set for the lifetime of the program
type Supervisor struct {
	Workers int
	Mode    Mode
	Log     *logrus.Entry

	// Run is the listener loop used in goroutine mode and when only one
	// worker is needed
	Run WorkerFunc

	// Spawn overrides how a child process is built in process mode
	Spawn SpawnFunc
}

// Start runs the workers and blocks until the group is torn down. With one
// processing unit or fewer the listener loop runs directly in this process.
func (s *Supervisor) Start(ctx context.Context) error {
	n := Workers(s.Workers)
	log := s.Log.WithField("workers", n)

	if n <= 1 {
		log.Info("running single worker in process")
		return s.Run(ctx, 0)
	}

	switch s.Mode {
	case ModeProcess, "":
		log.WithField("mode", ModeProcess).Info("starting workers")
		return s.runProcesses(ctx, n)
	case ModeGoroutine:
		log.WithField("mode", ModeGoroutine).Info("starting workers")
		return s.runGoroutines(ctx, n)
	default:
		return errors.NewSupervisorError(
			errors.SupervisorErrorUnknownMode,
			fmt.Sprintf("unknown mode %q", s.Mode),
			nil,
		)
	}
}
