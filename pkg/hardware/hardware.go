// Package hardware provides periph.io backed implementations of the node
// peripherals
package hardware

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Init initializes the host drivers, it must be called before accessing any pin
// or bus
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	return nil
}

// PinByName looks up a GPIO pin by name (e.g. "GPIO17")
func PinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("failed to find GPIO pin %q", name)
	}
	return p, nil
}

type inputPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

type outputPin interface {
	Out(l gpio.Level) error
}

// Button denotes an active-low push button with internal pull-up
type Button struct {
	pin inputPin
}

// NewButton instantiates a new Button on the given pin
func NewButton(pin gpio.PinIn) (*Button, error) {
	return newButton(pin)
}

func newButton(pin inputPin) (*Button, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure button pin: %w", err)
	}
	return &Button{pin: pin}, nil
}

// Asserted returns if the button is currently pressed
func (b *Button) Asserted() (bool, error) {
	return b.pin.Read() == gpio.Low, nil
}
