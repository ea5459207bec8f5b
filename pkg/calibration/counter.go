package calibration

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Counter persists a single non-negative integer across power cycles
type Counter struct {
	Path string
}

// NewCounter instantiates a new Counter for the given path
func NewCounter(path string) *Counter {
	return &Counter{Path: path}
}

// Get returns the current value, a missing or corrupted file counts as zero
func (c *Counter) Get() (int, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v < 0 {
		return 0, nil
	}

	return v, nil
}

// Set persists the given value
func (c *Counter) Set(v int) error {
	return writeFileAtomic(c.Path, []byte(strconv.Itoa(v)))
}
