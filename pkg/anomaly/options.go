package anomaly

import "github.com/fako1024/hivemon/pkg/monitor"

// WithPolicy sets the alert confirmation policy
func WithPolicy(p Policy) func(*Detector) {
	return func(d *Detector) {
		d.policy = p
	}
}

// WithLogger sets the logger
func WithLogger(logger monitor.Logger) func(*Detector) {
	return func(d *Detector) {
		d.logger = logger
	}
}
