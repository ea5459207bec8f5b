package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	store := NewFileStore(path)

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNotProvisioned)

	cfg := Configuration{
		SSID:         "Foo",
		WiFiPassword: "Bar",
		TelemetryKey: "K1",
		AlertKey:     "K2",
		Phone:        "+420123",
	}
	require.NoError(t, store.Save(cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "ssid=Foo\nwifi_password=Bar\nthingspeak_api=K1\ncallmebot_api=K2\nphone=+420123\n", string(data))

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestParse(t *testing.T) {
	cfg := Parse([]byte("# comment\nssid=My=Net\r\nphone=+420\nunknown=x\ngarbage\n  wifi_password=pw  \n"))
	require.Equal(t, "My=Net", cfg.SSID)
	require.Equal(t, "+420", cfg.Phone)
	require.Equal(t, "pw", cfg.WiFiPassword)
	require.Empty(t, cfg.TelemetryKey)
	require.Empty(t, cfg.AlertKey)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte("phone=+420\n"), 0600))

	_, err := NewFileStore(path).Load()
	require.ErrorIs(t, err, ErrNotProvisioned)
}

func TestFromValuesSanitizes(t *testing.T) {
	values := map[string]string{
		KeySSID:  "evil\nphone=123",
		KeyPhone: "+1\r\n",
	}
	cfg := FromValues(func(key string) string { return values[key] })
	require.Equal(t, "evilphone=123", cfg.SSID)
	require.Equal(t, "+1", cfg.Phone)
	require.Empty(t, cfg.WiFiPassword)

	// The rendered layout always has one line per key
	require.Equal(t, cfg, Parse([]byte(cfg.Lines())))
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := Configuration{SSID: "Foo", WiFiPassword: "secret", AlertKey: "k"}
	s := cfg.String()
	require.NotContains(t, s, "secret")
	require.Contains(t, s, `ssid="Foo"`)
	require.Contains(t, s, `thingspeak_api=""`)
}
