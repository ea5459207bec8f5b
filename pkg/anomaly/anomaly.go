// Package anomaly classifies the mean of a series of frequency estimates
// against a frequency band
package anomaly

import (
	"errors"
	"fmt"

	"github.com/fako1024/hivemon/pkg/monitor"
)

const (

	// DefaultLow denotes the default (exclusive) lower bound of the alert band in Hz
	DefaultLow = 350.

	// DefaultHigh denotes the default (exclusive) upper bound of the alert band in Hz
	DefaultHigh = 500.
)

// ErrEmptySeries denotes an attempt to evaluate a series without any estimates
var ErrEmptySeries = errors.New("empty frequency series")

// Band denotes an open frequency interval (Low, High)
type Band struct {
	Low  float64
	High float64
}

// DefaultBand returns the default alert band
func DefaultBand() Band {
	return Band{Low: DefaultLow, High: DefaultHigh}
}

// Contains returns if f lies strictly inside the band
func (b Band) Contains(f float64) bool {
	return b.Low < f && f < b.High
}

// String returns a human-readable representation of the band
func (b Band) String() string {
	return fmt.Sprintf("(%v, %v) Hz", b.Low, b.High)
}

// Series denotes the frequency estimates collected during a single cycle
type Series []float64

// Add appends an estimate to the series
func (s *Series) Add(f float64) {
	*s = append(*s, f)
}

// Len returns the number of estimates in the series
func (s Series) Len() int {
	return len(s)
}

// Mean returns the arithmetic mean of all estimates
func (s Series) Mean() (float64, error) {
	if len(s) == 0 {
		return 0, ErrEmptySeries
	}

	var sum float64
	for _, f := range s {
		sum += f
	}
	return sum / float64(len(s)), nil
}

// Decision denotes the outcome of evaluating a series
type Decision struct {
	Mean           float64
	Classification monitor.Classification

	// Streak denotes the number of consecutive cycles (including this one)
	// classified as alert
	Streak int

	// Notify is set if an alert notification has to be sent
	Notify bool
}

// Detector evaluates frequency series against a band
type Detector struct {
	band   Band
	policy Policy
	logger monitor.Logger
}

// New instantiates a new Detector, executing functional options, if any
func New(band Band, options ...func(*Detector)) *Detector {
	d := &Detector{
		band:   band,
		logger: &monitor.NullLogger{},
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(d)
	}

	return d
}

// Band returns the band of the detector
func (d *Detector) Band() Band {
	return d.band
}

// Classify classifies a single mean frequency. It does not depend on any
// previous classification
func (d *Detector) Classify(mean float64) monitor.Classification {
	if d.band.Contains(mean) {
		return monitor.Alert
	}
	return monitor.Normal
}

// Decide evaluates the series and applies the confirmation policy
func (d *Detector) Decide(s Series) (Decision, error) {
	mean, err := s.Mean()
	if err != nil {
		return Decision{}, err
	}

	dec := Decision{
		Mean:           mean,
		Classification: d.Classify(mean),
	}
	dec.Streak, dec.Notify = d.policy.apply(dec.Classification, d.logger)

	return dec, nil
}
