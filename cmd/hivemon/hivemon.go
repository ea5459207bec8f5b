package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/blescale"
	"github.com/fako1024/hivemon/pkg/calibration"
	"github.com/fako1024/hivemon/pkg/config"
	"github.com/fako1024/hivemon/pkg/hardware"
	"github.com/fako1024/hivemon/pkg/journal"
	"github.com/fako1024/hivemon/pkg/mock"
	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fako1024/hivemon/pkg/network"
	"github.com/fako1024/hivemon/pkg/node"
	"github.com/fako1024/hivemon/pkg/power"
	"github.com/fako1024/hivemon/pkg/provision"
	"github.com/fako1024/hivemon/pkg/report"
	"github.com/fako1024/hivemon/pkg/spectrum"
	"github.com/fako1024/hivemon/pkg/update"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/i2c/i2creg"
)

type settings struct {
	stateDir string
	debug    bool
	simulate bool
	simFreq  float64

	triggerPin string
	i2cBus     string
	bmpAddr    uint
	massSource string
	massFactor float64
	hxClockPin string
	hxDataPin  string
	bleName    string
	acoustic   string

	iface      string
	listen     string
	apUp       string
	apDown     string
	sinks      string
	mqttBroker string
	mqttTopic  string
	pushURL    string
	instance   string

	journal       string
	updateURL     string
	cadence       time.Duration
	confirmCycles int
}

var log *zap.SugaredLogger

func main() {
	if err := run(); err != nil {
		if log != nil {
			log.Fatal(err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {

	// Parse command line options
	var s settings

	flag.StringVar(&s.stateDir, "state", "/var/lib/hivemon", "directory holding the persistent state (configuration, tare, alert streak)")
	flag.BoolVar(&s.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&s.simulate, "simulate", false, "use in-memory devices instead of hardware")
	flag.Float64Var(&s.simFreq, "simulate-freq", 812.5, "frequency of the simulated acoustic signal (Hz)")

	flag.StringVar(&s.triggerPin, "trigger", "GPIO17", "GPIO pin of the provisioning button (active low)")
	flag.StringVar(&s.i2cBus, "i2c", "", "I2C bus of the climate sensor and barometer (empty: first available)")
	flag.UintVar(&s.bmpAddr, "bmp-addr", hardware.DefaultBMP280Addr, "I2C address of the barometer")
	flag.StringVar(&s.massSource, "mass", "hx711", "mass source (one of: hx711, ble)")
	flag.Float64Var(&s.massFactor, "scale-factor", 0, "factor converting tared mass readings into kg (0: default of the mass source)")
	flag.StringVar(&s.hxClockPin, "hx-clock", "GPIO5", "GPIO pin of the HX711 clock line")
	flag.StringVar(&s.hxDataPin, "hx-data", "GPIO6", "GPIO pin of the HX711 data line")
	flag.StringVar(&s.bleName, "ble-name", "FELICITA", "name of the bluetooth scale")
	flag.StringVar(&s.acoustic, "acoustic", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw", "IIO channel of the microphone")

	flag.StringVar(&s.iface, "iface", "wlan0", "wireless interface")
	flag.StringVar(&s.listen, "listen", provision.DefaultEndpoint, "listen address of the provisioning server")
	flag.StringVar(&s.apUp, "ap-up", "", "command bringing up the provisioning access point")
	flag.StringVar(&s.apDown, "ap-down", "", "command bringing down the provisioning access point")
	flag.StringVar(&s.sinks, "sinks", "thingspeak", "comma separated telemetry sinks (thingspeak, mqtt, pushgateway)")
	flag.StringVar(&s.mqttBroker, "mqtt-broker", "127.0.0.1:1883", "MQTT broker address")
	flag.StringVar(&s.mqttTopic, "mqtt-topic", "hivemon/readings", "MQTT topic")
	flag.StringVar(&s.pushURL, "pushgateway", "http://127.0.0.1:9091", "Prometheus pushgateway URL")
	flag.StringVar(&s.instance, "instance", "", "instance label of pushed metrics (default: hostname)")

	flag.StringVar(&s.journal, "journal", "", "path of the local sqlite journal (empty: disabled)")
	flag.StringVar(&s.updateURL, "update-url", "", "URL of the software update artifact (empty: disabled)")
	flag.DurationVar(&s.cadence, "cadence", 10*time.Minute, "deep sleep duration between cycles")
	flag.IntVar(&s.confirmCycles, "confirm", 1, "number of consecutive alert cycles required to notify")
	flag.Parse()

	log = monitor.NewDefaultLogger(s.debug)
	defer func() {
		_ = log.Sync()
	}()

	if err := os.MkdirAll(s.stateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	devices, cleanup, err := setupDevices(s)
	if err != nil {
		return err
	}
	defer cleanup()

	configs := config.NewFileStore(filepath.Join(s.stateDir, "config.txt"))
	pwr := power.NewExec(power.WithLogger(log))

	collab := node.Collaborators{
		Provisioner: provision.New(configs,
			provision.WithEndpoint(s.listen),
			provision.WithAccessPoint(accessPoint(s)),
			provision.WithLogger(log),
		),
		Updater:   update.Nop{},
		Sleeper:   pwr,
		Restarter: pwr,
		Sinks:     sinks(s),
		Link: func(cfg config.Configuration) network.Link {
			if s.simulate {
				return &mock.Link{RSSI: -60}
			}
			return network.NewStation(s.iface, cfg.SSID, cfg.WiFiPassword)
		},
	}
	if s.updateURL != "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to determine executable path: %w", err)
		}
		collab.Updater = update.NewHTTP(s.updateURL, exe, log)
	}
	if s.journal != "" {
		j, err := journal.Open(s.journal)
		if err != nil {
			log.Warnf("journal disabled: %s", err)
		} else {
			defer j.Close()
			collab.Journal = j
		}
	}

	detector := anomaly.New(anomaly.DefaultBand(),
		anomaly.WithLogger(log),
		anomaly.WithPolicy(anomaly.Policy{
			ConfirmCycles: s.confirmCycles,
			Counter:       calibration.NewCounter(filepath.Join(s.stateDir, "streak.txt")),
		}),
	)

	n, err := node.New(devices, node.Stores{
		Config:      configs,
		Calibration: calibration.NewFileStore(filepath.Join(s.stateDir, "tare.txt")),
	}, collab,
		node.WithLogger(log),
		node.WithCadence(s.cadence),
		node.WithScaleFactor(massScaleFactor(s.massSource, s.massFactor)),
		node.WithDetector(detector),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	// A signal also ends a pending deep sleep, without restarting
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("terminated by signal")
			return nil
		}
		return err
	}

	return nil
}

func setupDevices(s settings) (monitor.Devices, func(), error) {
	if s.simulate {
		return monitor.Devices{
			Climate:   &mock.Climate{Env: monitor.Environment{Temperature: 35.5, Humidity: 62}},
			Barometer: &mock.Climate{Env: monitor.Environment{Temperature: 34.1, Pressure: 1013.25}},
			Mass:      &mock.Mass{Raw: 850000},
			Acoustic:  mock.NewTone(s.simFreq, spectrum.DefaultSampleRate),
			Trigger:   &mock.Button{},
		}, func() {}, nil
	}

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warnf("failed to release device: %s", err)
			}
		}
	}
	fail := func(err error) (monitor.Devices, func(), error) {
		cleanup()
		return monitor.Devices{}, nil, err
	}

	if err := hardware.Init(); err != nil {
		return fail(err)
	}

	var devices monitor.Devices

	triggerPin, err := hardware.PinByName(s.triggerPin)
	if err != nil {
		return fail(err)
	}
	if devices.Trigger, err = hardware.NewButton(triggerPin); err != nil {
		return fail(err)
	}

	bus, err := i2creg.Open(s.i2cBus)
	if err != nil {
		return fail(fmt.Errorf("failed to open I2C bus: %w", err))
	}
	closers = append(closers, bus.Close)

	climate, err := hardware.NewAHT20(bus)
	if err != nil {
		return fail(err)
	}
	devices.Climate = climate

	barometer, err := hardware.NewBMP280(bus, uint16(s.bmpAddr))
	if err != nil {
		return fail(err)
	}
	closers = append([]func() error{barometer.Halt}, closers...)
	devices.Barometer = barometer

	switch s.massSource {
	case "hx711":
		clock, err := hardware.PinByName(s.hxClockPin)
		if err != nil {
			return fail(err)
		}
		data, err := hardware.PinByName(s.hxDataPin)
		if err != nil {
			return fail(err)
		}
		if devices.Mass, err = hardware.NewHX711(clock, data); err != nil {
			return fail(err)
		}
	case "ble":
		scale, err := blescale.New(blescale.WithDeviceName(s.bleName), blescale.WithLogger(log))
		if err != nil {
			return fail(fmt.Errorf("failed to initialize bluetooth scale: %w", err))
		}
		closers = append([]func() error{scale.Close}, closers...)
		devices.Mass = scale
	default:
		return fail(fmt.Errorf("unsupported mass source %q", s.massSource))
	}

	mic, err := hardware.OpenIIOChannel(s.acoustic)
	if err != nil {
		return fail(err)
	}
	closers = append([]func() error{mic.Close}, closers...)
	devices.Acoustic = mic

	return devices, cleanup, nil
}

// massScaleFactor returns the factor converting tared readings of the given
// mass source into kg. The HX711 delivers raw ADC counts, the bluetooth scale grams
func massScaleFactor(source string, override float64) float64 {
	if override > 0 {
		return override
	}
	if source == "ble" {
		return blescale.ScaleFactor
	}
	return node.DefaultScaleFactor
}

func accessPoint(s settings) provision.AccessPoint {
	if s.apUp == "" && s.apDown == "" {
		return provision.NopAccessPoint{}
	}
	return &provision.CommandAccessPoint{
		UpCmd:   strings.Fields(s.apUp),
		DownCmd: strings.Fields(s.apDown),
	}
}

func sinks(s settings) func(cfg config.Configuration) []report.Sink {
	return func(cfg config.Configuration) []report.Sink {
		var res []report.Sink
		for _, name := range strings.Split(s.sinks, ",") {
			switch strings.TrimSpace(name) {
			case "thingspeak":
				res = append(res, &report.ThingSpeak{
					URL:    report.DefaultThingSpeakURL,
					APIKey: cfg.TelemetryKey,
				})
			case "mqtt":
				res = append(res, &report.MQTT{
					Broker: s.mqttBroker,
					Topic:  s.mqttTopic,
				})
			case "pushgateway":
				instance := s.instance
				if instance == "" {
					instance, _ = os.Hostname()
				}
				res = append(res, &report.Pushgateway{
					URL:      s.pushURL,
					Job:      "hivemon",
					Instance: instance,
				})
			case "":
			default:
				log.Warnf("ignoring unknown sink %q", name)
			}
		}
		return res
	}
}
