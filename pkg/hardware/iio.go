package hardware

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// IIOChannel denotes an ADC channel exposed through the Linux industrial I/O
// subsystem (e.g. /sys/bus/iio/devices/iio:device0/in_voltage0_raw)
type IIOChannel struct {
	file *os.File
	buf  []byte
}

// OpenIIOChannel opens the raw value attribute at the given path
func OpenIIOChannel(path string) (*IIOChannel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open IIO channel: %w", err)
	}
	return &IIOChannel{
		file: f,
		buf:  make([]byte, 32),
	}, nil
}

// ReadSample returns the current raw value of the channel
func (c *IIOChannel) ReadSample() (float64, error) {
	n, err := c.file.ReadAt(c.buf, 0)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read IIO channel: %w", err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(c.buf[:n])), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse IIO value: %w", err)
	}
	return v, nil
}

// Close closes the channel
func (c *IIOChannel) Close() error {
	return c.file.Close()
}
