package process

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/mobilekit/errors"
)

// Process is a long-running subprocess started with Start.
type Process struct {
	cmd         *exec.Cmd
	binary      string
	gracePeriod time.Duration
	startedAt   time.Time

	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
}

// Start launches a subprocess in its own process group and returns without
// waiting for it. The process outlives ctx; use Stop to terminate it.
func Start(ctx context.Context, cmd Command) (*Process, error) {
	if cmd.Binary == "" {
		return nil, errors.InvalidConfig("process: binary is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Process(cmd.Binary, err)
	}

	c := exec.Command(cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := c.Start(); err != nil {
		return nil, errors.Process(cmd.Binary, err)
	}

	p := &Process{
		cmd:         c,
		binary:      cmd.Binary,
		gracePeriod: cmd.gracePeriod(),
		startedAt:   time.Now(),
		done:        make(chan struct{}),
	}
	go func() {
		p.waitErr = c.Wait()
		close(p.done)
	}()
	return p, nil
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Uptime returns how long the process has been running.
func (p *Process) Uptime() time.Duration {
	return time.Since(p.startedAt)
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop sends SIGTERM to the process group and waits up to the grace period,
// then sends SIGKILL. Calling Stop more than once returns the first result.
func (p *Process) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop(ctx)
	})
	return p.stopErr
}

func (p *Process) stop(ctx context.Context) error {
	if p.Exited() {
		return nil
	}
	pgid := -p.cmd.Process.Pid
	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return errors.Process(p.binary, err)
	}

	timer := time.NewTimer(p.gracePeriod)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return errors.Process(p.binary, err)
	}
	<-p.done
	return nil
}
