// Package config handles the provisioned configuration of the node
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Persisted keys, also used as form field names during provisioning
const (
	KeySSID         = "ssid"
	KeyWiFiPassword = "wifi_password"
	KeyTelemetryKey = "thingspeak_api"
	KeyAlertKey     = "callmebot_api"
	KeyPhone        = "phone"
)

// Keys lists all persisted keys in the order they are written
var Keys = []string{KeySSID, KeyWiFiPassword, KeyTelemetryKey, KeyAlertKey, KeyPhone}

// ErrNotProvisioned denotes that no valid configuration is stored
var ErrNotProvisioned = errors.New("node is not provisioned")

// Configuration denotes the provisioned configuration of the node. It is loaded
// once at boot and never changes during the lifetime of the process
type Configuration struct {
	SSID         string
	WiFiPassword string
	TelemetryKey string
	AlertKey     string
	Phone        string
}

// FromValues builds a Configuration from a lookup function (e.g. form values).
// Missing fields are left empty, line breaks are stripped from all values
func FromValues(lookup func(key string) string) Configuration {
	return Configuration{
		SSID:         sanitize(lookup(KeySSID)),
		WiFiPassword: sanitize(lookup(KeyWiFiPassword)),
		TelemetryKey: sanitize(lookup(KeyTelemetryKey)),
		AlertKey:     sanitize(lookup(KeyAlertKey)),
		Phone:        sanitize(lookup(KeyPhone)),
	}
}

// Get returns the value for the given key
func (c Configuration) Get(key string) string {
	switch key {
	case KeySSID:
		return c.SSID
	case KeyWiFiPassword:
		return c.WiFiPassword
	case KeyTelemetryKey:
		return c.TelemetryKey
	case KeyAlertKey:
		return c.AlertKey
	case KeyPhone:
		return c.Phone
	}
	return ""
}

// Valid returns if the configuration allows normal operation
func (c Configuration) Valid() bool {
	return c.SSID != ""
}

// Lines renders the configuration in its persisted key=value layout
func (c Configuration) Lines() string {
	var sb strings.Builder
	for _, key := range Keys {
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(c.Get(key))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String returns a representation of the configuration with secrets masked
func (c Configuration) String() string {
	return fmt.Sprintf("ssid=%q wifi_password=%s thingspeak_api=%s callmebot_api=%s phone=%q",
		c.SSID, mask(c.WiFiPassword), mask(c.TelemetryKey), mask(c.AlertKey), c.Phone)
}

// Parse parses the key=value layout. Lines without a `=` and unknown keys are
// ignored, values extend from the first `=` to the end of the line
func Parse(data []byte) Configuration {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found {
			continue
		}
		values[key] = value
	}

	return FromValues(func(key string) string {
		return values[key]
	})
}

// FileStore stores the configuration in a single file
type FileStore struct {
	Path string
}

// NewFileStore instantiates a new FileStore for the given path
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the stored configuration. ErrNotProvisioned is returned if there is
// no file or if the stored configuration is not valid
func (f *FileStore) Load() (Configuration, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Configuration{}, ErrNotProvisioned
		}
		return Configuration{}, fmt.Errorf("%w: %s", ErrNotProvisioned, err)
	}

	cfg := Parse(data)
	if !cfg.Valid() {
		return cfg, fmt.Errorf("%w: no ssid configured", ErrNotProvisioned)
	}

	return cfg, nil
}

// Save persists the configuration, replacing any previous one
func (f *FileStore) Save(cfg Configuration) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(cfg.Lines()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close configuration: %w", err)
	}

	return os.Rename(tmp.Name(), f.Path)
}

////////////////////////////////////////////////////////////////////////////////

func sanitize(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

func mask(secret string) string {
	if secret == "" {
		return `""`
	}
	return "***"
}
