// Package blescale provides a mass source backed by a Felicita compatible
// bluetooth scale, for installations without a wired load cell
package blescale

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fako1024/gatt"
	"github.com/fako1024/hivemon/pkg/monitor"
)

// ScaleFactor converts readings of the scale (g) into kg
const ScaleFactor = 1000.

const (
	defaultDeviceName  = "FELICITA"
	dataService        = "ffe0"
	dataCharacteristic = "ffe1"

	packetLength   = 18
	defaultTimeout = 30 * time.Second
)

// Scale denotes a bluetooth scale delivering weight notifications
type Scale struct {
	deviceID   string
	deviceName string
	timeout    time.Duration

	connected bool
	readings  chan float64
	doneChan  chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex

	btDevice gatt.Device

	logger monitor.Logger
}

// New instantiates a new Scale, executing functional options, if any
func New(options ...func(*Scale)) (*Scale, error) {

	// Initialize a new instance of a bluetooth scale
	s := &Scale{
		deviceName: defaultDeviceName,
		timeout:    defaultTimeout,
		readings:   make(chan float64, 64),
		doneChan:   make(chan struct{}),
		logger:     &monitor.NullLogger{},
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(s)
	}

	// Initialize a new GATT device (if not provided as option)
	if s.btDevice == nil {
		btDevice, err := gatt.NewDevice(defaultBTClientOptions...)
		if err != nil {
			return nil, err
		}
		s.btDevice = btDevice
	}

	return s, s.subscribe()
}

// Connected returns if the scale is currently connected
func (s *Scale) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// ReadRaw returns the average of the next n weight notifications (in grams). The
// zero offset of the scale itself is not used, taring is up to the caller
func (s *Scale) ReadRaw(n int) (float64, error) {
	if n < 1 {
		n = 1
	}

	// Discard stale readings buffered while nobody was interested
	for len(s.readings) > 0 {
		<-s.readings
	}

	timeout := time.NewTimer(s.timeout)
	defer timeout.Stop()

	var sum float64
	for i := 0; i < n; i++ {
		select {
		case v := <-s.readings:
			sum += v
		case <-timeout.C:
			return 0, fmt.Errorf("received %d of %d weight readings within %v", i, n, s.timeout)
		case <-s.doneChan:
			return 0, fmt.Errorf("scale closed while reading")
		}
	}

	return sum / float64(n), nil
}

// Close terminates the connection to the device
func (s *Scale) Close() error {
	s.closeOnce.Do(func() {
		close(s.doneChan)
	})

	_ = s.btDevice.StopScanning()
	return s.btDevice.RemoveAllServices()
}

////////////////////////////////////////////////////////////////////////////////

func (s *Scale) subscribe() error {

	// Register handlers
	s.btDevice.Handle(
		gatt.AddPeripheralDiscovered(s.onPeriphDiscovered),
		gatt.AddPeripheralConnected(s.onPeriphConnected),
		gatt.AddPeripheralDisconnected(s.onPeriphDisconnected),
	)

	// Initialize the device
	return s.btDevice.Init(s.onStateChanged)
}

func (s *Scale) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

func (s *Scale) onStateChanged(d gatt.Device, st gatt.State) {
	switch st {
	case gatt.StatePoweredOn:
		if err := d.Scan([]gatt.UUID{}, false); err != nil {
			s.logger.Warnf("failed to enable initial scanning: %s", err)
		}
		return
	case gatt.StatePoweredOff:
		s.setConnected(false)
		return
	default:
		if err := d.StopScanning(); err != nil {
			s.logger.Warnf("failed to stop initial scanning: %s", err)
		}
	}
}

func (s *Scale) onPeriphDiscovered(p gatt.Peripheral, _ *gatt.Advertisement, _ int) {
	if !s.thisDevice(p) {
		return
	}

	s.logger.Debugf("connecting scale `%s/%s`", p.Name(), p.ID())

	// Stop scanning once we've got the peripheral we're looking for
	if err := p.Device().StopScanning(); err != nil {
		s.logger.Warnf("failed to stop scanning: %s", err)
	}
	if err := p.Device().Connect(p); err != nil {
		s.logger.Errorf("failed to connect scale `%s/%s`: %s", p.Name(), p.ID(), err)
	}
}

func (s *Scale) onPeriphConnected(p gatt.Peripheral, connErr error) {
	if !s.thisDevice(p) {
		return
	}
	if connErr != nil {
		s.logger.Warnf("failed to connect scale `%s/%s`: %s", p.Name(), p.ID(), connErr)
		return
	}

	s.setConnected(true)
	defer func() {
		_ = p.Device().CancelConnection(p)
		s.setConnected(false)
	}()

	if err := s.subscribeWeight(p); err != nil {
		s.logger.Errorf("failed to subscribe to scale `%s/%s`: %s", p.Name(), p.ID(), err)
		return
	}

	s.logger.Debugf("receiving weight from `%s/%s`", p.Name(), p.ID())
	<-s.doneChan
}

func (s *Scale) subscribeWeight(p gatt.Peripheral) error {
	if err := p.SetMTU(500); err != nil {
		return fmt.Errorf("failed to set MTU: %w", err)
	}

	services, err := p.DiscoverServices(nil)
	if err != nil {
		return fmt.Errorf("failed to discover services: %w", err)
	}
	for _, svc := range services {
		if svc.UUID().String() != dataService {
			continue
		}

		chars, err := p.DiscoverCharacteristics(nil, svc)
		if err != nil {
			return fmt.Errorf("failed to discover characteristics: %w", err)
		}
		for _, c := range chars {
			if c.UUID().String() != dataCharacteristic {
				continue
			}
			if _, err := p.DiscoverDescriptors(nil, c); err != nil {
				return fmt.Errorf("failed to discover descriptors: %w", err)
			}
			return p.SetNotifyValue(c, s.receiveData)
		}
	}

	return fmt.Errorf("weight characteristic %s/%s not found", dataService, dataCharacteristic)
}

func (s *Scale) onPeriphDisconnected(p gatt.Peripheral, _ error) {
	if !s.thisDevice(p) {
		return
	}

	s.setConnected(false)
	s.logger.Debugf("disconnected scale `%s/%s`", p.Name(), p.ID())

	select {
	case <-s.doneChan:
		return
	default:
	}

	time.Sleep(100 * time.Millisecond)
	if err := s.btDevice.Scan([]gatt.UUID{}, false); err != nil {
		s.logger.Warnf("failed to re-enable scanning after disconnect: %s", err)
	}
}

func (s *Scale) thisDevice(p gatt.Peripheral) bool {

	// Check if name and / or device ID have been overridden
	if s.deviceID != "" && strings.EqualFold(p.ID(), s.deviceID) {
		return true
	}
	return strings.EqualFold(p.Name(), s.deviceName)
}

func (s *Scale) receiveData(_ *gatt.Characteristic, req []byte, err error) {
	if err != nil {
		return
	}

	weight, ok := parseWeight(req)
	if !ok {
		return
	}

	// Never block the notification handler, drop readings nobody waits for
	select {
	case s.readings <- weight:
	default:
	}
}

////////////////////////////////////////////////////////////////////////////////

// parseWeight extracts the weight (in grams) from a notification packet
func parseWeight(req []byte) (float64, bool) {
	if len(req) != packetLength {
		return 0, false
	}

	weight, err := strconv.ParseFloat(string(req[2:9]), 64)
	if err != nil {
		return 0, false
	}

	switch unit := strings.ToLower(string(req[9:11])); {
	case strings.Contains(unit, "oz"):
		return weight / 100. * gramsPerOunce, true
	case strings.Contains(unit, "g"):
		return weight / 100., true
	}

	return 0, false
}

const gramsPerOunce = 28.349523125
