package node

import (
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/spectrum"
)

// WithLogger sets the logger
func WithLogger(logger monitor.Logger) func(*Node) {
	return func(n *Node) {
		n.logger = logger
	}
}

// WithCadence sets the deep sleep duration between two cycles
func WithCadence(d time.Duration) func(*Node) {
	return func(n *Node) {
		n.cadence = d
	}
}

// WithSubCycles sets the number of acoustic blocks analyzed per cycle and the
// delay between two of them
func WithSubCycles(k int, delay time.Duration) func(*Node) {
	return func(n *Node) {
		n.subCycles = k
		n.subCycleDelay = delay
	}
}

// WithSampleInterval overrides the pacing of acoustic sample reads (by default
// derived from the sample rate of the analyzer)
func WithSampleInterval(d time.Duration) func(*Node) {
	return func(n *Node) {
		n.sampleInterval = d
	}
}

// WithMassSamples sets the number of raw mass readings averaged per measurement
func WithMassSamples(samples int) func(*Node) {
	return func(n *Node) {
		n.massSamples = samples
	}
}

// WithScaleFactor sets the factor converting tared raw mass readings to kg
func WithScaleFactor(factor float64) func(*Node) {
	return func(n *Node) {
		n.scaleFactor = factor
	}
}

// WithClimateOffset sets the correction applied to the climate sensor temperature
func WithClimateOffset(offset float64) func(*Node) {
	return func(n *Node) {
		n.climateOffset = offset
	}
}

// WithConnectTimeout sets the time budget for establishing connectivity
func WithConnectTimeout(timeout time.Duration) func(*Node) {
	return func(n *Node) {
		n.connectTimeout = timeout
	}
}

// WithMaxCycleRuntime bounds the duration of a measurement cycle (zero disables the limit)
func WithMaxCycleRuntime(d time.Duration) func(*Node) {
	return func(n *Node) {
		n.maxCycleRuntime = d
	}
}

// WithAlertText sets the alert notification text
func WithAlertText(text string) func(*Node) {
	return func(n *Node) {
		n.alertText = text
	}
}

// WithAnalyzer sets the spectral analyzer
func WithAnalyzer(a *spectrum.Analyzer) func(*Node) {
	return func(n *Node) {
		n.analyzer = a
	}
}

// WithDetector sets the anomaly detector
func WithDetector(d *anomaly.Detector) func(*Node) {
	return func(n *Node) {
		n.detector = d
	}
}
