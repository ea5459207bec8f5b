// Package report submits reading sets to telemetry sinks and dispatches
// anomaly notifications. Delivery is best effort: failures are logged and
// returned, but never retried
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/fako1024/hivemon/pkg/monitor"
)

// ErrStatus denotes a non-2xx response of a remote endpoint
var ErrStatus = errors.New("unexpected response status")

// Field denotes a single named value of a submission. Slot denotes the
// (1-based) position of the field in channel based sinks
type Field struct {
	Slot  int
	Name  string
	Value float64
}

// Fields denotes an ordered set of fields
type Fields []Field

// FromReadingSet maps a reading set onto its submission fields. The signal
// strength is omitted if the node was not connected
func FromReadingSet(rs monitor.ReadingSet) Fields {
	fields := Fields{
		{Slot: 1, Name: "temperature_climate", Value: rs.TemperatureClimate},
		{Slot: 2, Name: "humidity", Value: rs.Humidity},
		{Slot: 3, Name: "temperature_baro", Value: rs.TemperatureBaro},
		{Slot: 4, Name: "pressure", Value: rs.Pressure},
		{Slot: 5, Name: "mass", Value: rs.Mass},
	}
	if rs.SignalValid {
		fields = append(fields, Field{Slot: 6, Name: "signal_strength", Value: float64(rs.SignalStrength)})
	}
	return append(fields, Field{Slot: 7, Name: "frequency", Value: rs.MeanFrequency})
}

// Sink denotes a remote telemetry endpoint
type Sink interface {

	// Name returns a short identifier of the sink (for logging)
	Name() string

	// Submit transmits the fields
	Submit(ctx context.Context, fields Fields) error
}

// Reporter submits reading sets to a number of sinks
type Reporter struct {
	sinks  []Sink
	logger monitor.Logger
}

// NewReporter instantiates a new Reporter for the given sinks
func NewReporter(logger monitor.Logger, sinks ...Sink) *Reporter {
	if logger == nil {
		logger = &monitor.NullLogger{}
	}
	return &Reporter{
		sinks:  sinks,
		logger: logger,
	}
}

// Report submits the reading set to all sinks. A failing sink does not prevent
// submission to the others
func (r *Reporter) Report(ctx context.Context, rs monitor.ReadingSet) error {
	fields := FromReadingSet(rs)

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Submit(ctx, fields); err != nil {
			r.logger.Warnf("failed to submit readings to %s: %s", sink.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		r.logger.Debugf("submitted readings to %s", sink.Name())
	}

	return errors.Join(errs...)
}
