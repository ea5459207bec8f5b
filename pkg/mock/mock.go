// Package mock provides in-memory devices and collaborators of the node, used
// for simulation runs and tests
package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/report"
	"github.com/fatih/stopwatch"
)

// ErrInjected denotes the error returned by failing mock devices
var ErrInjected = errors.New("injected failure")

// Climate denotes a fixed-value environment sensor
type Climate struct {
	Env monitor.Environment
	Err error
}

// Sense fills the environment with the fixed values
func (c *Climate) Sense(e *monitor.Environment) error {
	if c.Err != nil {
		return c.Err
	}
	*e = c.Env
	return nil
}

// Mass denotes a fixed-value mass sensor
type Mass struct {
	Raw float64
	Err error

	mu    sync.Mutex
	reads int
}

// ReadRaw returns the fixed raw value
func (m *Mass) ReadRaw(n int) (float64, error) {
	m.mu.Lock()
	m.reads++
	m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	return m.Raw, nil
}

// Reads returns the number of read requests
func (m *Mass) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Tone denotes an acoustic source emitting a pure sine wave
type Tone struct {
	Frequency  float64
	SampleRate float64
	Amplitude  float64
	Offset     float64

	// PanicAfter causes the source to panic after the given number of samples (if non-zero)
	PanicAfter int

	mu sync.Mutex
	n  int
}

// NewTone instantiates a sine source of the given frequency and sample rate
func NewTone(frequency, sampleRate float64) *Tone {
	return &Tone{
		Frequency:  frequency,
		SampleRate: sampleRate,
		Amplitude:  1000,
		Offset:     2048,
	}
}

// ReadSample returns the next sample of the wave
func (t *Tone) ReadSample() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.PanicAfter > 0 && t.n >= t.PanicAfter {
		panic("acoustic source exhausted")
	}

	v := t.Offset + t.Amplitude*math.Sin(2*math.Pi*t.Frequency*float64(t.n)/t.SampleRate)
	t.n++
	return v, nil
}

// Samples returns the number of samples read so far
func (t *Tone) Samples() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Button denotes a trigger with a fixed state
type Button struct {
	Pressed bool
	Err     error
}

// Asserted returns the fixed state
func (b *Button) Asserted() (bool, error) {
	return b.Pressed, b.Err
}

// Link denotes a network link. It connects on the n-th attempt (or never, if
// FailConnects is negative)
type Link struct {
	FailConnects int
	RSSI         int

	mu        sync.Mutex
	attempts  int
	connected bool
}

// Connect attempts to connect the link
func (l *Link) Connect(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts++
	if l.FailConnects < 0 || l.attempts <= l.FailConnects {
		return ErrInjected
	}
	l.connected = true
	return nil
}

// Connected returns if the link is connected
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// SignalStrength returns the fixed signal strength, if connected
func (l *Link) SignalStrength() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.RSSI, l.connected
}

// Attempts returns the number of connection attempts
func (l *Link) Attempts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts
}

// Power records sleep and restart requests instead of executing them
type Power struct {
	mu       sync.Mutex
	sleeps   []time.Duration
	restarts int
	timer    *stopwatch.Stopwatch
}

// DeepSleep records the requested sleep duration
func (p *Power) DeepSleep(_ context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sleeps = append(p.sleeps, d)
	p.stopTimer()
	return nil
}

// Restart records the restart request
func (p *Power) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.restarts++
	p.stopTimer()
	return nil
}

// Sleeps returns all recorded sleep durations
func (p *Power) Sleeps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.sleeps...)
}

// Restarts returns the number of recorded restarts
func (p *Power) Restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restarts
}

// Awake returns the time elapsed between instantiation and the first sleep or
// restart request
func (p *Power) Awake() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer == nil {
		return 0
	}
	return p.timer.ElapsedTime()
}

// NewPower instantiates a new Power recorder, starting its awake timer
func NewPower() *Power {
	return &Power{
		timer: stopwatch.Start(0),
	}
}

////////////////////////////////////////////////////////////////////////////////

func (p *Power) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
	}
}

// Sink denotes a recording telemetry sink
type Sink struct {
	ID  string
	Err error

	mu          sync.Mutex
	submissions []report.Fields
}

// Name returns the identifier of the sink
func (s *Sink) Name() string {
	if s.ID == "" {
		return "mock"
	}
	return s.ID
}

// Submit records the fields
func (s *Sink) Submit(_ context.Context, fields report.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions = append(s.submissions, fields)
	return s.Err
}

// Submissions returns all recorded submissions
func (s *Sink) Submissions() []report.Fields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.Fields(nil), s.submissions...)
}

// Notifier denotes a recording alert channel
type Notifier struct {
	Err error

	mu    sync.Mutex
	texts []string
}

// Notify records the text
func (n *Notifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.texts = append(n.texts, text)
	return n.Err
}

// Texts returns all recorded notifications
func (n *Notifier) Texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

// Updater denotes a software update check with a fixed outcome
type Updater struct {
	Replaced bool
	Err      error
	checks   int
}

// Check returns the fixed outcome
func (u *Updater) Check(context.Context) (bool, error) {
	u.checks++
	return u.Replaced, u.Err
}

// Checks returns the number of update checks performed
func (u *Updater) Checks() int {
	return u.checks
}
