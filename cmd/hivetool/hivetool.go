package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fako1024/hivemon/pkg/calibration"
	"github.com/fako1024/hivemon/pkg/config"
	"github.com/fako1024/hivemon/pkg/hardware"
	"github.com/fako1024/hivemon/pkg/journal"
	"github.com/fako1024/hivemon/pkg/mock"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/spectrum"
	"go.uber.org/zap"
)

type settings struct {
	stateDir string
	simulate bool
	debug    bool

	tare        bool
	show        bool
	freq        bool
	journalRows int
	journalPath string

	hxClockPin string
	hxDataPin  string
	acoustic   string
}

var log *zap.SugaredLogger

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {

	// Parse command line options
	var s settings

	flag.StringVar(&s.stateDir, "state", "/var/lib/hivemon", "directory holding the persistent state")
	flag.BoolVar(&s.simulate, "simulate", false, "use in-memory devices instead of hardware")
	flag.BoolVar(&s.debug, "debug", false, "enable debug logging")

	flag.BoolVar(&s.tare, "tare", false, "take a fresh zero reading of the mass sensor and store it")
	flag.BoolVar(&s.show, "show", false, "show the stored configuration and tare value")
	flag.BoolVar(&s.freq, "freq", false, "measure the dominant acoustic frequency once")
	flag.IntVar(&s.journalRows, "journal", 0, "list the last n journal entries")
	flag.StringVar(&s.journalPath, "journal-path", "/var/lib/hivemon/journal.db", "path of the sqlite journal")

	flag.StringVar(&s.hxClockPin, "hx-clock", "GPIO5", "GPIO pin of the HX711 clock line")
	flag.StringVar(&s.hxDataPin, "hx-data", "GPIO6", "GPIO pin of the HX711 data line")
	flag.StringVar(&s.acoustic, "acoustic", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw", "IIO channel of the microphone")
	flag.Parse()

	log = monitor.NewDefaultLogger(s.debug)
	defer func() {
		_ = log.Sync()
	}()

	if !s.tare && !s.show && !s.freq && s.journalRows <= 0 {
		flag.Usage()
		return errors.New("no action requested")
	}
	if !s.simulate && (s.tare || s.freq) {
		if err := hardware.Init(); err != nil {
			return err
		}
	}

	if s.tare {
		if err := tare(s); err != nil {
			return err
		}
	}
	if s.show {
		show(s)
	}
	if s.freq {
		if err := frequency(s); err != nil {
			return err
		}
	}
	if s.journalRows > 0 {
		if err := listJournal(s); err != nil {
			return err
		}
	}

	return nil
}

func tare(s settings) error {
	var mass monitor.MassSensor = &mock.Mass{Raw: 850000}
	if !s.simulate {
		clock, err := hardware.PinByName(s.hxClockPin)
		if err != nil {
			return err
		}
		data, err := hardware.PinByName(s.hxDataPin)
		if err != nil {
			return err
		}
		if mass, err = hardware.NewHX711(clock, data); err != nil {
			return err
		}
	}

	v, err := mass.ReadRaw(10)
	if err != nil {
		return fmt.Errorf("failed to take zero reading: %w", err)
	}
	if err := calibration.NewFileStore(filepath.Join(s.stateDir, "tare.txt")).Save(v); err != nil {
		return fmt.Errorf("failed to persist tare value: %w", err)
	}
	log.Infof("stored new tare value %v", v)

	return nil
}

func show(s settings) {
	cfg, err := config.NewFileStore(filepath.Join(s.stateDir, "config.txt")).Load()
	if err != nil {
		fmt.Printf("configuration: %s\n", err)
	} else {
		fmt.Printf("configuration: %s\n", cfg)
	}

	v, err := calibration.NewFileStore(filepath.Join(s.stateDir, "tare.txt")).Load()
	if err != nil {
		fmt.Printf("tare value: %s\n", err)
	} else {
		fmt.Printf("tare value: %v\n", v)
	}
}

func frequency(s settings) error {
	a, err := spectrum.New(spectrum.DefaultBlockSize, spectrum.DefaultSampleRate, spectrum.DefaultDivisor)
	if err != nil {
		return err
	}

	var src monitor.AcousticSource = mock.NewTone(812.5, spectrum.DefaultSampleRate)
	if !s.simulate {
		mic, err := hardware.OpenIIOChannel(s.acoustic)
		if err != nil {
			return err
		}
		defer mic.Close()
		src = mic
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b := a.NewBlock()
	elapsed, err := spectrum.NewSampler(src, a.SampleRate()).Capture(ctx, b)
	if err != nil {
		return err
	}
	fmt.Printf("dominant frequency: %.1f Hz (%d samples in %v, %.0f samples/s)\n",
		a.Analyze(b), len(b), elapsed, spectrum.EffectiveRate(len(b), elapsed))

	return nil
}

func listJournal(s settings) error {
	if _, err := os.Stat(s.journalPath); err != nil {
		return fmt.Errorf("journal not available: %w", err)
	}

	j, err := journal.Open(s.journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Latest(s.journalRows)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %6.1f Hz  %-6s streak=%d notified=%v  %.1f°C %.0f%% %.1fhPa %.2fkg\n",
			e.Time.Format(time.RFC3339), e.CycleID, e.MeanFrequency, e.Classification, e.Streak, e.Notified,
			e.TemperatureClimate, e.Humidity, e.Pressure, e.Mass)
	}

	return nil
}
