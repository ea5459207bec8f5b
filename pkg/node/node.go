// Package node implements the lifecycle controller of the monitoring node:
// boot, provisioning, initialization and a single measurement cycle that always
// ends in deep sleep
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/calibration"
	"github.com/fako1024/hivemon/pkg/config"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/network"
	"github.com/fako1024/hivemon/pkg/power"
	"github.com/fako1024/hivemon/pkg/report"
	"github.com/fako1024/hivemon/pkg/spectrum"
	"github.com/fako1024/hivemon/pkg/update"
	"github.com/fatih/stopwatch"
	"github.com/google/uuid"
)

// DefaultScaleFactor converts tared raw HX711 readings into kg
const DefaultScaleFactor = 27500.

const (
	defaultCadence         = 10 * time.Minute
	defaultSubCycles       = 35
	defaultSubCycleDelay   = 500 * time.Millisecond
	defaultMassSamples     = 10
	defaultClimateOffset   = -1.5
	defaultMaxCycleRuntime = 5 * time.Minute
)

// ConfigStore denotes a persistent configuration source
type ConfigStore interface {
	Load() (config.Configuration, error)
}

// Provisioner collects (and persists) a new configuration
type Provisioner interface {
	Run(ctx context.Context) (config.Configuration, error)
}

// Journal denotes a local history of cycles
type Journal interface {
	Append(rs monitor.ReadingSet, dec anomaly.Decision) error
}

// Stores denotes the persistent state of the node surviving deep sleep
type Stores struct {
	Config      ConfigStore
	Calibration calibration.Store
}

// Collaborators denotes the external collaborators of the node. Those depending
// on the configuration are provided as constructors invoked once it was loaded
type Collaborators struct {
	Provisioner Provisioner
	Updater     update.Updater
	Sleeper     power.Sleeper
	Restarter   power.Restarter
	Journal     Journal

	Link     func(cfg config.Configuration) network.Link
	Sinks    func(cfg config.Configuration) []report.Sink
	Notifier func(cfg config.Configuration) report.Notifier
}

// Node denotes the lifecycle controller
type Node struct {
	devices monitor.Devices
	stores  Stores
	collab  Collaborators

	cadence         time.Duration
	subCycles       int
	subCycleDelay   time.Duration
	sampleInterval  time.Duration
	massSamples     int
	scaleFactor     float64
	climateOffset   float64
	connectTimeout  time.Duration
	maxCycleRuntime time.Duration
	alertText       string

	analyzer *spectrum.Analyzer
	sampler  *spectrum.Sampler
	detector *anomaly.Detector

	// Established during boot, immutable afterwards
	cfg      config.Configuration
	tare     float64
	link     network.Link
	reporter *report.Reporter
	alerter  *report.Alerter

	state  State
	logger monitor.Logger
}

// New instantiates a new Node, executing functional options, if any
func New(devices monitor.Devices, stores Stores, collab Collaborators, options ...func(*Node)) (*Node, error) {
	switch {
	case devices.Mass == nil:
		return nil, errors.New("no mass sensor provided")
	case devices.Acoustic == nil:
		return nil, errors.New("no acoustic source provided")
	case stores.Config == nil || stores.Calibration == nil:
		return nil, errors.New("configuration and calibration stores are required")
	case collab.Sleeper == nil || collab.Restarter == nil:
		return nil, errors.New("sleeper and restarter are required")
	}

	n := &Node{
		devices:         devices,
		stores:          stores,
		collab:          collab,
		cadence:         defaultCadence,
		subCycles:       defaultSubCycles,
		subCycleDelay:   defaultSubCycleDelay,
		sampleInterval:  -1,
		massSamples:     defaultMassSamples,
		scaleFactor:     DefaultScaleFactor,
		climateOffset:   defaultClimateOffset,
		connectTimeout:  network.DefaultConnectTimeout,
		maxCycleRuntime: defaultMaxCycleRuntime,
		alertText:       report.DefaultAlertText,
		logger:          &monitor.NullLogger{},
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(n)
	}

	if n.analyzer == nil {
		analyzer, err := spectrum.New(spectrum.DefaultBlockSize, spectrum.DefaultSampleRate, spectrum.DefaultDivisor)
		if err != nil {
			return nil, err
		}
		n.analyzer = analyzer
	}
	n.sampler = spectrum.NewSampler(devices.Acoustic, n.analyzer.SampleRate())
	if n.sampleInterval >= 0 {
		n.sampler.Interval = n.sampleInterval
	}
	if n.detector == nil {
		n.detector = anomaly.New(anomaly.DefaultBand(), anomaly.WithLogger(n.logger))
	}
	if n.collab.Updater == nil {
		n.collab.Updater = update.Nop{}
	}
	if n.collab.Sinks == nil {
		n.collab.Sinks = defaultSinks
	}
	if n.collab.Notifier == nil {
		n.collab.Notifier = defaultNotifier
	}

	return n, nil
}

// State returns the current state of the node
func (n *Node) State() State {
	return n.state
}

// Configuration returns the configuration loaded during boot
func (n *Node) Configuration() config.Configuration {
	return n.cfg
}

// Tare returns the zero offset of the mass sensor established during boot
func (n *Node) Tare() float64 {
	return n.tare
}

// Run executes one full lifecycle of the process: boot, then either provisioning
// (ending in a restart) or a measurement cycle. In normal operation it always
// ends in deep sleep, regardless of the outcome of the cycle
func (n *Node) Run(ctx context.Context) error {
	next, err := n.Boot(ctx)
	if err != nil {
		n.logger.Errorf("boot failed: %s", err)
	}

	switch next {
	case Provisioning:
		return n.provision(ctx)
	case Boot:
		return n.restart()
	case Measure:
		outcome := n.Cycle(ctx)
		if err := outcome.Err(); err != nil {
			n.logger.Warnf("cycle completed with errors: %s", err)
		}
	}

	return n.sleep(ctx)
}

// Boot determines the operating mode and, in normal mode, initializes the node.
// It returns the state to proceed with: Provisioning, Measure, Sleep (if the node
// could not be initialized) or Boot (if a restart is required)
func (n *Node) Boot(ctx context.Context) (State, error) {
	n.transition(Boot)

	if n.devices.Trigger != nil {
		asserted, err := n.devices.Trigger.Asserted()
		if err != nil {
			n.logger.Warnf("failed to sample provisioning trigger, ignoring it: %s", err)
		}
		if asserted {
			n.logger.Info("provisioning trigger asserted")
			return Provisioning, nil
		}
	}

	cfg, err := n.stores.Config.Load()
	if err != nil {
		n.logger.Infof("no valid configuration available (%s)", err)
		return Provisioning, nil
	}
	n.bind(cfg)

	return n.initialize(ctx)
}

// Cycle runs the measurement, decision and report stages once. Failures (and
// panics) of any stage end the cycle early and are reported in the outcome
func (n *Node) Cycle(ctx context.Context) (outcome Outcome) {
	cycleID := uuid.NewString()
	logger := monitor.WithCycle(n.logger, cycleID)

	if n.reporter == nil {
		n.bind(n.cfg)
	}
	if n.maxCycleRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.maxCycleRuntime)
		defer cancel()
	}

	timer := stopwatch.Start(0)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPanic, r)
			logger.Errorf("%s: %s", n.state, err)
			outcome.Stages = append(outcome.Stages, StageResult{
				Stage:    n.state,
				Err:      err,
				Duration: timer.ElapsedTime(),
			})
		}
		timer.Stop()
		logger.Infof("cycle finished after %v", timer.ElapsedTime())
	}()

	outcome.Readings = monitor.ReadingSet{
		CycleID: cycleID,
		Time:    time.Now(),
	}

	series, res := n.measure(ctx, logger, &outcome.Readings)
	if !outcome.add(res, logger) {
		return
	}

	res = n.decide(logger, series, &outcome)
	if !outcome.add(res, logger) {
		return
	}

	outcome.add(n.report(ctx, logger, outcome.Readings, outcome.Decision), logger)

	return
}

// Recalibrate takes a fresh zero reading of the mass sensor and persists it
func (n *Node) Recalibrate() (float64, error) {
	v, err := n.zero()
	if err != nil {
		return 0, fmt.Errorf("failed to take zero reading: %w", err)
	}
	if err := n.stores.Calibration.Save(v); err != nil {
		return 0, fmt.Errorf("failed to persist tare value: %w", err)
	}
	n.tare = v

	return v, nil
}

////////////////////////////////////////////////////////////////////////////////

func (n *Node) transition(s State) {
	n.logger.Debugf("%s -> %s", n.state, s)
	n.state = s
}

func (n *Node) bind(cfg config.Configuration) {
	n.cfg = cfg
	if n.collab.Link != nil {
		n.link = n.collab.Link(cfg)
	}
	n.reporter = report.NewReporter(n.logger, n.collab.Sinks(cfg)...)
	n.alerter = report.NewAlerter(n.collab.Notifier(cfg), n.alertText, n.logger)
}

func (n *Node) initialize(ctx context.Context) (State, error) {
	n.transition(NormalInit)

	if n.link != nil {
		if err := network.Establish(ctx, n.link, n.connectTimeout, n.logger); err != nil {
			return Sleep, err
		}
	}

	replaced, err := n.collab.Updater.Check(ctx)
	if err != nil {
		n.logger.Warnf("software update check failed: %s", err)
	}
	if replaced {
		n.logger.Info("software was updated, restart required")
		return Boot, nil
	}

	if n.tare, err = calibration.LoadOrInit(n.stores.Calibration, n.zero, n.logger); err != nil {
		return Sleep, err
	}

	return Measure, nil
}

func (n *Node) zero() (float64, error) {
	return n.devices.Mass.ReadRaw(n.massSamples)
}

func (n *Node) provision(ctx context.Context) error {
	n.transition(Provisioning)

	if n.collab.Provisioner == nil {
		n.logger.Error("provisioning required, but no provisioner available")
		return n.sleep(ctx)
	}

	cfg, err := n.collab.Provisioner.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		n.logger.Errorf("provisioning failed: %s", err)
		return n.sleep(ctx)
	}
	n.logger.Infof("received configuration %s", cfg)

	return n.restart()
}

func (n *Node) restart() error {
	n.transition(Boot)
	n.logger.Info("restarting")

	return n.collab.Restarter.Restart()
}

func (n *Node) sleep(ctx context.Context) error {
	n.transition(Sleep)
	n.logger.Infof("entering deep sleep for %v", n.cadence)

	return n.collab.Sleeper.DeepSleep(ctx, n.cadence)
}

// add appends the stage result to the outcome and returns if the cycle may proceed
func (o *Outcome) add(res StageResult, logger monitor.Logger) bool {
	o.Stages = append(o.Stages, res)
	if res.Err != nil {
		logger.Warn(res)
		return false
	}
	logger.Debug(res)
	return true
}
