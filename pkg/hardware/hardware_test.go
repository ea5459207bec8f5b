package hardware

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/i2c/i2ctest"
	"periph.io/x/periph/conn/physic"
)

type fakeInput struct {
	pull   gpio.Pull
	levels []gpio.Level
	reads  int
}

func (f *fakeInput) In(pull gpio.Pull, _ gpio.Edge) error {
	f.pull = pull
	return nil
}

func (f *fakeInput) Read() gpio.Level {
	l := f.levels[f.reads%len(f.levels)]
	f.reads++
	return l
}

type fakeOutput struct {
	highs int
}

func (f *fakeOutput) Out(l gpio.Level) error {
	if l == gpio.High {
		f.highs++
	}
	return nil
}

func TestButton(t *testing.T) {
	pin := &fakeInput{levels: []gpio.Level{gpio.Low}}
	b, err := newButton(pin)
	require.NoError(t, err)
	require.Equal(t, gpio.PullUp, pin.pull)

	asserted, err := b.Asserted()
	require.NoError(t, err)
	require.True(t, asserted)

	pin.levels = []gpio.Level{gpio.High}
	asserted, err = b.Asserted()
	require.NoError(t, err)
	require.False(t, asserted)
}

func bits24(v uint32) []gpio.Level {
	levels := []gpio.Level{gpio.Low} // data ready
	for i := 23; i >= 0; i-- {
		levels = append(levels, gpio.Level(v&(1<<uint(i)) != 0))
	}
	return levels
}

func TestHX711(t *testing.T) {
	clock := &fakeOutput{}
	data := &fakeInput{levels: bits24(0xFFFFFE)}

	h, err := newHX711(clock, data)
	require.NoError(t, err)

	v, err := h.ReadRaw(3)
	require.NoError(t, err)
	require.Equal(t, -2., v)
	require.Equal(t, 3*(hx711Bits+hx711GainPulses), clock.highs)

	data.levels, data.reads = bits24(0x012345), 0
	v, err = h.ReadRaw(1)
	require.NoError(t, err)
	require.Equal(t, float64(0x012345), v)
}

func TestHX711NotReady(t *testing.T) {
	h, err := newHX711(&fakeOutput{}, &fakeInput{levels: []gpio.Level{gpio.High}})
	require.NoError(t, err)

	_, err = h.ReadRaw(1)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestSignExtend24(t *testing.T) {
	require.Equal(t, int32(-8388608), signExtend24(0x800000))
	require.Equal(t, int32(8388607), signExtend24(0x7FFFFF))
	require.Equal(t, int32(-1), signExtend24(0xFFFFFF))
	require.Equal(t, int32(0), signExtend24(0))
}

func TestAHT20(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAHT20Addr, W: []byte{aht20CmdStatus}, R: []byte{0x18}},
			{Addr: DefaultAHT20Addr, W: []byte{aht20CmdMeasure, 0x33, 0x00}},
			{Addr: DefaultAHT20Addr, R: []byte{0x1C, 0x80, 0x00, 0x06, 0x00, 0x00, 0x00}},
		},
	}

	a, err := NewAHT20(bus)
	require.NoError(t, err)

	var env monitor.Environment
	env.Pressure = 1000
	require.NoError(t, a.Sense(&env))
	require.InDelta(t, 25, env.Temperature, 1e-9)
	require.InDelta(t, 50, env.Humidity, 1e-9)
	require.Equal(t, 1000., env.Pressure, "unsupported quantity was modified")
	require.NoError(t, bus.Close())
}

func TestConvertAHT20(t *testing.T) {
	temp, hum := convertAHT20([]byte{0x1C, 0xFF, 0xFF, 0xF0, 0x00, 0x00})
	require.InDelta(t, 100, hum, 1e-3)
	require.InDelta(t, -50, temp, 1e-9)
}

func TestCelsius(t *testing.T) {
	require.InDelta(t, 0, celsius(physic.ZeroCelsius), 1e-9)
	require.InDelta(t, 21.5, celsius(physic.ZeroCelsius+21500*physic.MilliKelvin), 1e-9)
}

func TestIIOChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	require.NoError(t, os.WriteFile(path, []byte("2048\n"), 0644))

	c, err := OpenIIOChannel(path)
	require.NoError(t, err)
	defer c.Close()

	v, err := c.ReadSample()
	require.NoError(t, err)
	require.Equal(t, 2048., v)

	require.NoError(t, os.WriteFile(path, []byte("17\n"), 0644))
	v, err = c.ReadSample()
	require.NoError(t, err)
	require.Equal(t, 17., v)

	_, err = OpenIIOChannel(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
