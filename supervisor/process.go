package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nczempin/httpd-go-uring/errors"
)

// SpawnFunc builds the child process for worker id
type SpawnFunc func(id int) *exec.Cmd

// SelfCommand re-executes the running binary with the same arguments,
// marked as worker id. The child receives SIGTERM if the primary dies.
func SelfCommand(id int) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", WorkerEnv, id))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
	return cmd
}

type child struct {
	id  int
	cmd *exec.Cmd
}

type exit struct {
	id  int
	err error
}

// runProcesses forks n children and waits for the first one to exit, or
// for ctx to end, then signals every child still tracked
func (s *Supervisor) runProcesses(ctx context.Context, n int) error {
	spawn := s.Spawn
	if spawn == nil {
		spawn = SelfCommand
	}

	exits := make(chan exit, n)
	var children []child

	for id := 1; id <= n; id++ {
		cmd := spawn(id)
		if err := cmd.Start(); err != nil {
			s.Log.WithError(err).WithField("worker", id).Error("Unable to spawn worker")
			continue
		}

		s.Log.WithFields(logrus.Fields{
			"worker": id,
			"pid":    cmd.Process.Pid,
		}).Debug("worker started")

		children = append(children, child{id: id, cmd: cmd})
		go func(id int, cmd *exec.Cmd) {
			exits <- exit{id: id, err: cmd.Wait()}
		}(id, cmd)
	}

	if len(children) == 0 {
		return errors.NewSupervisorError(
			errors.SupervisorErrorNoChildren,
			fmt.Sprintf("none of %d workers could be started", n),
			nil,
		)
	}

	exited := 0
	select {
	case e := <-exits:
		exited = e.id
		entry := s.Log.WithField("worker", e.id)
		if e.err != nil {
			entry = entry.WithError(e.err)
		}
		entry.Warn("worker exited, stopping all workers")
	case <-ctx.Done():
		s.Log.Info("shutting down workers")
	}

	s.terminate(children, exited)
	return nil
}

// terminate sends SIGTERM to every child except the one that already
// exited. A failure is reported and the rest are still signalled.
func (s *Supervisor) terminate(children []child, exited int) {
	for _, c := range children {
		if c.id == exited {
			continue
		}
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.Log.WithError(err).WithFields(logrus.Fields{
				"worker": c.id,
				"pid":    c.cmd.Process.Pid,
			}).Warn("Unable to kill child process")
		}
	}
}
