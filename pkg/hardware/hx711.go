package hardware

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
)

const (
	hx711Bits         = 24
	hx711GainPulses   = 1 // channel A, gain 128
	hx711ReadyTimeout = 500 * time.Millisecond
	hx711PollInterval = time.Millisecond
)

// ErrNotReady denotes a load cell amplifier that did not signal data in time
var ErrNotReady = errors.New("hx711 not ready")

// HX711 denotes an Avia HX711 load cell amplifier driven by bit-banging two GPIOs
type HX711 struct {
	clock outputPin
	data  inputPin
}

// NewHX711 instantiates a new HX711 on the given clock and data pins
func NewHX711(clock gpio.PinOut, data gpio.PinIn) (*HX711, error) {
	return newHX711(clock, data)
}

func newHX711(clock outputPin, data inputPin) (*HX711, error) {
	if err := clock.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to configure HX711 clock pin: %w", err)
	}
	if err := data.In(gpio.Float, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure HX711 data pin: %w", err)
	}
	return &HX711{clock: clock, data: data}, nil
}

// ReadRaw returns the average of n raw readings
func (h *HX711) ReadRaw(n int) (float64, error) {
	if n < 1 {
		n = 1
	}

	var sum float64
	for i := 0; i < n; i++ {
		v, err := h.read()
		if err != nil {
			return 0, err
		}
		sum += float64(v)
	}

	return sum / float64(n), nil
}

func (h *HX711) read() (int32, error) {
	deadline := time.Now().Add(hx711ReadyTimeout)
	for h.data.Read() != gpio.Low {
		if time.Now().After(deadline) {
			return 0, ErrNotReady
		}
		time.Sleep(hx711PollInterval)
	}

	var raw uint32
	for i := 0; i < hx711Bits; i++ {
		if err := h.pulse(); err != nil {
			return 0, err
		}
		raw <<= 1
		if h.data.Read() == gpio.High {
			raw |= 1
		}
	}
	for i := 0; i < hx711GainPulses; i++ {
		if err := h.pulse(); err != nil {
			return 0, err
		}
	}

	return signExtend24(raw), nil
}

func (h *HX711) pulse() error {
	if err := h.clock.Out(gpio.High); err != nil {
		return err
	}
	return h.clock.Out(gpio.Low)
}

func signExtend24(v uint32) int32 {
	return int32(v<<8) >> 8
}
