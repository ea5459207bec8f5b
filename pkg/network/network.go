// Package network provides the connectivity collaborator of the node
package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fako1024/hivemon/pkg/monitor"
)

const (

	// DefaultConnectTimeout denotes the default overall time budget for
	// establishing connectivity
	DefaultConnectTimeout = 2 * time.Minute

	initialRetryInterval = time.Second
	maxRetryInterval     = 15 * time.Second
)

// ErrNotConnected denotes a link that is not (yet) associated
var ErrNotConnected = errors.New("link not connected")

// Link denotes a network link (e.g. a wireless station interface)
type Link interface {

	// Connect performs a single connection attempt
	Connect(ctx context.Context) error

	// Connected returns if the link is currently connected
	Connected() bool

	// SignalStrength returns the current signal strength in dBm, if available
	SignalStrength() (int, bool)
}

// Establish connects the link, retrying with exponential backoff until the
// timeout expires. Permanent errors (see backoff.Permanent) are not retried
func Establish(ctx context.Context, link Link, timeout time.Duration, logger monitor.Logger) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialRetryInterval
	b.MaxInterval = maxRetryInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := link.Connect(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Infof("connection attempt %d failed (%s), retrying in %v", attempt, err, next.Round(time.Millisecond))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect after %d attempt(s): %w", attempt, err)
	}

	if rssi, ok := link.SignalStrength(); ok {
		logger.Infof("connected after %d attempt(s), signal strength %d dBm", attempt, rssi)
	} else {
		logger.Infof("connected after %d attempt(s)", attempt)
	}

	return nil
}
