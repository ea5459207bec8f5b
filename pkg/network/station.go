package network

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultSysClassNet  = "/sys/class/net"
	defaultProcWireless = "/proc/net/wireless"
)

// Station denotes a wireless station interface managed by the operating system
// (wpa_supplicant). Association itself is left to the supplicant, the station
// only provides it with the network block and observes the link state
type Station struct {
	Interface string
	SSID      string
	Password  string

	// SupplicantPath denotes an (optional) wpa_supplicant configuration file
	// the network block is written to
	SupplicantPath string

	sysClassNet  string
	procWireless string
}

// NewStation instantiates a new Station for the given interface, executing
// functional options, if any
func NewStation(iface, ssid, password string, options ...func(*Station)) *Station {
	s := &Station{
		Interface:    iface,
		SSID:         ssid,
		Password:     password,
		sysClassNet:  defaultSysClassNet,
		procWireless: defaultProcWireless,
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(s)
	}

	return s
}

// Connect ensures the supplicant knows the network and checks if the
// interface is up
func (s *Station) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.SupplicantPath != "" {
		if err := s.writeSupplicantConfig(); err != nil {
			return fmt.Errorf("failed to write supplicant configuration: %w", err)
		}
	}

	if !s.Connected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, s.Interface)
	}

	return nil
}

// Connected returns if the interface is operationally up
func (s *Station) Connected() bool {
	data, err := os.ReadFile(filepath.Join(s.sysClassNet, s.Interface, "operstate"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}

// SignalStrength returns the signal level of the interface in dBm
func (s *Station) SignalStrength() (int, bool) {
	if !s.Connected() {
		return 0, false
	}

	data, err := os.ReadFile(s.procWireless)
	if err != nil {
		return 0, false
	}

	return parseWireless(data, s.Interface)
}

////////////////////////////////////////////////////////////////////////////////

// parseWireless extracts the signal level of iface from the contents of
// /proc/net/wireless, e.g.
//
//	Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
//	 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
//	 wlan0: 0000   54.  -56.  -256        0      0      0      0      3        0
func parseWireless(data []byte, iface string) (int, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		name, rest, found := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !found || name != iface {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return 0, false
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0, false
		}
		return int(level), true
	}

	return 0, false
}

func (s *Station) writeSupplicantConfig() error {
	block := fmt.Sprintf("network={\n\tssid=%s\n\tpsk=%s\n}\n", strconv.Quote(s.SSID), strconv.Quote(s.Password))
	if s.Password == "" {
		block = fmt.Sprintf("network={\n\tssid=%s\n\tkey_mgmt=NONE\n}\n", strconv.Quote(s.SSID))
	}

	if existing, err := os.ReadFile(s.SupplicantPath); err == nil && string(existing) == block {
		return nil
	}

	return os.WriteFile(s.SupplicantPath, []byte(block), 0600)
}
