package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/spectrum"
	"github.com/fatih/stopwatch"
)

func (n *Node) measure(ctx context.Context, logger monitor.Logger, rs *monitor.ReadingSet) (anomaly.Series, StageResult) {
	n.transition(Measure)
	timer := stopwatch.Start(0)
	defer timer.Stop()

	result := func(err error) StageResult {
		return StageResult{Stage: Measure, Err: err, Duration: timer.ElapsedTime()}
	}

	var env monitor.Environment
	if n.devices.Climate != nil {
		if err := n.devices.Climate.Sense(&env); err != nil {
			return nil, result(fmt.Errorf("failed to read climate sensor: %w", err))
		}
		rs.TemperatureClimate = env.Temperature + n.climateOffset
		rs.Humidity = env.Humidity
	}
	if n.devices.Barometer != nil {
		if err := n.devices.Barometer.Sense(&env); err != nil {
			return nil, result(fmt.Errorf("failed to read barometer: %w", err))
		}
		rs.TemperatureBaro = env.Temperature
		rs.Pressure = env.Pressure
	}

	raw, err := n.devices.Mass.ReadRaw(n.massSamples)
	if err != nil {
		return nil, result(fmt.Errorf("failed to read mass sensor: %w", err))
	}
	rs.Mass = (raw - n.tare) / n.scaleFactor

	if n.link != nil {
		rs.SignalStrength, rs.SignalValid = n.link.SignalStrength()
	}

	series := make(anomaly.Series, 0, n.subCycles)
	block := n.analyzer.NewBlock()
	for i := 0; i < n.subCycles; i++ {
		elapsed, err := n.sampler.Capture(ctx, block)
		if err != nil {
			return nil, result(fmt.Errorf("failed to capture acoustic block %d: %w", i, err))
		}

		f := n.analyzer.Analyze(block)
		series.Add(f)
		logger.Debugf("acoustic block %d/%d: %.1f Hz (%.0f samples/s)", i+1, n.subCycles, f, spectrum.EffectiveRate(len(block), elapsed))

		if i < n.subCycles-1 && n.subCycleDelay > 0 {
			select {
			case <-time.After(n.subCycleDelay):
			case <-ctx.Done():
				return nil, result(ctx.Err())
			}
		}
	}

	return series, result(nil)
}

func (n *Node) decide(logger monitor.Logger, series anomaly.Series, o *Outcome) StageResult {
	n.transition(Decide)
	timer := stopwatch.Start(0)
	defer timer.Stop()

	dec, err := n.detector.Decide(series)
	if err != nil {
		return StageResult{Stage: Decide, Err: err, Duration: timer.ElapsedTime()}
	}
	o.Decision = dec
	o.Readings.MeanFrequency = dec.Mean

	logger.Infof("mean frequency %.1f Hz over %d blocks, band %s: %s", dec.Mean, series.Len(), n.detector.Band(), dec.Classification)

	return StageResult{Stage: Decide, Duration: timer.ElapsedTime()}
}

// report submits telemetry, alerts if required and journals the cycle. All steps
// are attempted regardless of the failure of any other
func (n *Node) report(ctx context.Context, logger monitor.Logger, rs monitor.ReadingSet, dec anomaly.Decision) StageResult {
	n.transition(Report)
	timer := stopwatch.Start(0)
	defer timer.Stop()

	var errs []error
	if err := n.reporter.Report(ctx, rs); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	if dec.Notify {
		if err := n.alerter.Alert(ctx); err != nil {
			errs = append(errs, fmt.Errorf("alert: %w", err))
		}
	}
	if n.collab.Journal != nil {
		if err := n.collab.Journal.Append(rs, dec); err != nil {
			logger.Warnf("failed to journal cycle: %s", err)
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}

	return StageResult{Stage: Report, Err: errors.Join(errs...), Duration: timer.ElapsedTime()}
}
