package blescale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	s, err := New()
	if err == nil {
		t.Fatalf("instantiation of scale was unexpectedly successful")
	}
	if s != nil {
		t.Fatalf("instantiation of scale unexpectedly returned non-nil instance")
	}
}

func packet(weight, unit string) []byte {
	p := make([]byte, packetLength)
	copy(p[2:9], weight)
	copy(p[9:11], unit)
	return p
}

func TestParseWeight(t *testing.T) {
	w, ok := parseWeight(packet("+001234", "g "))
	require.True(t, ok)
	require.InDelta(t, 12.34, w, 1e-9)

	w, ok = parseWeight(packet("-000050", " g"))
	require.True(t, ok)
	require.InDelta(t, -0.5, w, 1e-9)

	w, ok = parseWeight(packet("+000100", "oz"))
	require.True(t, ok)
	require.InDelta(t, gramsPerOunce, w, 1e-9)

	_, ok = parseWeight(packet("+0012x4", "g "))
	require.False(t, ok)
	_, ok = parseWeight(packet("+001234", "lb"))
	require.False(t, ok)
	_, ok = parseWeight([]byte("short"))
	require.False(t, ok)
}

func TestReadRaw(t *testing.T) {
	s := &Scale{
		timeout:  time.Second,
		readings: make(chan float64, 64),
		doneChan: make(chan struct{}),
	}

	// Stale readings are discarded
	s.receiveData(nil, packet("+099999", "g "), nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		for _, w := range []string{"+001000", "+002000", "+003000"} {
			s.receiveData(nil, packet(w, "g "), nil)
		}
	}()

	v, err := s.ReadRaw(3)
	require.NoError(t, err)
	require.InDelta(t, 20, v, 1e-9)

	s.timeout = 10 * time.Millisecond
	_, err = s.ReadRaw(1)
	require.Error(t, err)
}
