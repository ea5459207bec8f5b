// Package update checks for a newer build of the node software and replaces
// the local copy if one is available
package update

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 30 * time.Second

// Updater denotes a software update check
type Updater interface {

	// Check looks for an update and installs it. It returns true if the local
	// software was replaced (and the node hence has to be restarted)
	Check(ctx context.Context) (bool, error)
}

// Nop denotes an updater that never finds an update
type Nop struct{}

// Check does nothing
func (Nop) Check(context.Context) (bool, error) {
	return false, nil
}

// HTTP compares a remote artifact with a local file and replaces the local file
// if they differ
type HTTP struct {
	URL     string
	Path    string
	Timeout time.Duration

	logger monitor.Logger
}

// NewHTTP instantiates a new HTTP updater for the given remote URL and local path
func NewHTTP(url, path string, logger monitor.Logger) *HTTP {
	if logger == nil {
		logger = &monitor.NullLogger{}
	}
	return &HTTP{
		URL:     url,
		Path:    path,
		Timeout: defaultTimeout,
		logger:  logger,
	}
}

// Check downloads the remote artifact and replaces the local file if it differs
func (h *HTTP) Check(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	code, remote, errs := fiber.Get(h.URL).Timeout(h.Timeout).Bytes()
	if len(errs) > 0 {
		return false, fmt.Errorf("failed to fetch %s: %w", h.URL, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return false, fmt.Errorf("failed to fetch %s: status %d", h.URL, code)
	}
	if len(remote) == 0 {
		return false, fmt.Errorf("refusing to install empty artifact from %s", h.URL)
	}

	local, err := os.ReadFile(h.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", h.Path, err)
	}

	remoteSum, localSum := sha256.Sum256(remote), sha256.Sum256(local)
	if bytes.Equal(remoteSum[:], localSum[:]) {
		h.logger.Debugf("%s is up to date (sha256 %x)", h.Path, localSum[:8])
		return false, nil
	}

	if err := replace(h.Path, remote); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", h.Path, err)
	}
	h.logger.Infof("updated %s (sha256 %x -> %x)", h.Path, localSum[:8], remoteSum[:8])

	return true, nil
}

func replace(path string, data []byte) error {
	mode := os.FileMode(0755)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
