// Package power implements the duty cycle boundaries of the node: deep sleep
// and restart. Both end the current process lifetime, no in-memory state
// survives them
package power

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
)

// Sleeper denotes the low-power transition at the end of a cycle
type Sleeper interface {

	// DeepSleep powers down for d, execution continues with a cold restart.
	// Cancelling the context aborts the sleep without restarting
	DeepSleep(ctx context.Context, d time.Duration) error
}

// Restarter denotes a full restart of the node
type Restarter interface {

	// Restart restarts the node immediately
	Restart() error
}

// Exec emulates deep sleep and restarts on a Linux host by re-executing the
// running binary, which discards all in-memory state
type Exec struct {
	logger monitor.Logger

	sleep func(ctx context.Context, d time.Duration) error
	exec  func(argv0 string, argv []string, envv []string) error
}

// NewExec instantiates a new Exec power controller, executing functional
// options, if any
func NewExec(options ...func(*Exec)) *Exec {
	e := &Exec{
		logger: &monitor.NullLogger{},
		sleep:  sleepContext,
		exec:   syscall.Exec,
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(e)
	}

	return e
}

// DeepSleep blocks for d and then restarts the process. It only returns on error
// or if the context is done before the sleep has ended
func (e *Exec) DeepSleep(ctx context.Context, d time.Duration) error {
	e.logger.Infof("entering deep sleep for %v", d)
	if err := e.sleep(ctx, d); err != nil {
		return fmt.Errorf("deep sleep interrupted: %w", err)
	}

	return e.Restart()
}

// Restart replaces the running process by a fresh instance of the same binary.
// It only returns on error
func (e *Exec) Restart() error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to determine executable: %w", err)
	}

	e.logger.Infof("restarting %s", self)
	if err := e.exec(self, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("failed to restart %s: %w", self, err)
	}

	return nil
}

////////////////////////////////////////////////////////////////////////////////

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
