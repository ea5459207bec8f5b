package power

import (
	"context"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
)

// WithLogger sets the logger
func WithLogger(logger monitor.Logger) func(*Exec) {
	return func(e *Exec) {
		e.logger = logger
	}
}

// WithSleepFunc overrides the function used to block during deep sleep
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) func(*Exec) {
	return func(e *Exec) {
		e.sleep = fn
	}
}

// WithExecFunc overrides the function used to replace the running process
func WithExecFunc(fn func(argv0 string, argv []string, envv []string) error) func(*Exec) {
	return func(e *Exec) {
		e.exec = fn
	}
}
