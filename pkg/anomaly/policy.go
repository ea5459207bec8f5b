package anomaly

import "github.com/fako1024/hivemon/pkg/monitor"

// CounterStore denotes a persistent counter (surviving deep sleep)
type CounterStore interface {
	Get() (int, error)
	Set(v int) error
}

// Policy denotes the confirmation policy for alerts. With ConfirmCycles <= 1 every
// cycle classified as alert notifies immediately. Otherwise ConfirmCycles
// consecutive alert cycles are required, tracked in Counter across restarts
type Policy struct {
	ConfirmCycles int
	Counter       CounterStore
}

func (p Policy) apply(c monitor.Classification, logger monitor.Logger) (streak int, notify bool) {
	if p.ConfirmCycles <= 1 || p.Counter == nil {
		if c == monitor.Alert {
			return 1, true
		}
		return 0, false
	}

	if c == monitor.Alert {
		prev, err := p.Counter.Get()
		if err != nil {
			logger.Warnf("failed to read alert streak, restarting count: %s", err)
			prev = 0
		}
		streak = prev + 1
	}

	if err := p.Counter.Set(streak); err != nil {
		logger.Warnf("failed to persist alert streak: %s", err)
	}

	return streak, streak >= p.ConfirmCycles
}
