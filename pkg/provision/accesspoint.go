package provision

import (
	"context"
	"fmt"
	"os/exec"
)

// AccessPoint denotes the local wireless access point used during provisioning
type AccessPoint interface {
	Up(ctx context.Context) error
	Down() error
}

// NopAccessPoint denotes an access point managed elsewhere (or not at all)
type NopAccessPoint struct{}

// Up does nothing
func (NopAccessPoint) Up(context.Context) error { return nil }

// Down does nothing
func (NopAccessPoint) Down() error { return nil }

// CommandAccessPoint brings the access point up / down by running host commands
// (e.g. starting / stopping a hostapd unit)
type CommandAccessPoint struct {
	UpCmd   []string
	DownCmd []string
}

// Up runs the up command
func (a *CommandAccessPoint) Up(ctx context.Context) error {
	return run(ctx, a.UpCmd)
}

// Down runs the down command
func (a *CommandAccessPoint) Down() error {
	return run(context.Background(), a.DownCmd)
}

func run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return nil
	}

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v failed: %w (%s)", argv, err, out)
	}
	return nil
}
