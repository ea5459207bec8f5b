// Package calibration persists the zero offset of the mass sensor (and other
// scalar state) across power cycles
package calibration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fako1024/hivemon/pkg/monitor"
)

// ErrNotCalibrated denotes that no (valid) calibration value is stored
var ErrNotCalibrated = errors.New("no calibration stored")

// Store denotes a persistent store for a single calibration value
type Store interface {

	// Load returns the stored value, or ErrNotCalibrated if there is none
	Load() (float64, error)

	// Save persists the given value
	Save(v float64) error
}

// FileStore stores the calibration value as text in a single file
type FileStore struct {
	Path string
}

// NewFileStore instantiates a new FileStore for the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load returns the stored value. A missing, unreadable or corrupted file is
// reported as ErrNotCalibrated
func (f *FileStore) Load() (float64, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotCalibrated, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotCalibrated, err)
	}

	return v, nil
}

// Save persists the given value
func (f *FileStore) Save(v float64) error {
	return writeFileAtomic(f.Path, []byte(strconv.FormatFloat(v, 'g', -1, 64)))
}

// LoadOrInit returns the stored value. If there is none, a fresh zero reading is
// taken and persisted immediately
func LoadOrInit(s Store, zero func() (float64, error), logger monitor.Logger) (float64, error) {
	v, err := s.Load()
	if err == nil {
		logger.Infof("using stored tare value %v", v)
		return v, nil
	}
	logger.Warnf("tare value not found or corrupted (%s), taking fresh zero reading", err)

	if v, err = zero(); err != nil {
		return 0, fmt.Errorf("failed to take zero reading: %w", err)
	}
	if err = s.Save(v); err != nil {
		return 0, fmt.Errorf("failed to persist tare value: %w", err)
	}
	logger.Infof("stored new tare value %v", v)

	return v, nil
}

////////////////////////////////////////////////////////////////////////////////

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
