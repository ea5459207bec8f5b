package blescale

import (
	"time"

	"github.com/fako1024/gatt"
	"github.com/fako1024/hivemon/pkg/monitor"
)

// WithDeviceID sets the Bluetooth device ID
func WithDeviceID(deviceID string) func(*Scale) {
	return func(s *Scale) {
		s.deviceID = deviceID
	}
}

// WithDeviceName sets the Bluetooth device name
func WithDeviceName(deviceName string) func(*Scale) {
	return func(s *Scale) {
		s.deviceName = deviceName
	}
}

// WithDevice sets the Bluetooth device
func WithDevice(btDevice gatt.Device) func(*Scale) {
	return func(s *Scale) {
		s.btDevice = btDevice
	}
}

// WithTimeout sets the maximum time to wait for weight readings
func WithTimeout(timeout time.Duration) func(*Scale) {
	return func(s *Scale) {
		s.timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger monitor.Logger) func(*Scale) {
	return func(s *Scale) {
		s.logger = logger
	}
}
