package hardware

import (
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/bmxx80"
)

const (

	// DefaultBMP280Addr denotes the default I2C address of the BMP280
	DefaultBMP280Addr = 0x77

	// DefaultAHT20Addr denotes the (fixed) I2C address of the AHT20
	DefaultAHT20Addr = 0x38

	aht20CmdStatus    = 0x71
	aht20CmdInit      = 0xBE
	aht20CmdMeasure   = 0xAC
	aht20StatusBusy   = 0x80
	aht20StatusCal    = 0x08
	aht20MeasureDelay = 80 * time.Millisecond
	aht20Retries      = 5
)

// BMP280 denotes a Bosch BMP280 barometer (temperature / pressure)
type BMP280 struct {
	dev *bmxx80.Dev
}

// NewBMP280 instantiates a new BMP280 on the given bus
func NewBMP280(bus i2c.Bus, addr uint16) (*BMP280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize BMP280 at %#x: %w", addr, err)
	}
	return &BMP280{dev: dev}, nil
}

// Sense reads temperature and pressure
func (b *BMP280) Sense(e *monitor.Environment) error {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return fmt.Errorf("failed to read BMP280: %w", err)
	}

	e.Temperature = celsius(env.Temperature)
	e.Pressure = float64(env.Pressure) / float64(100*physic.Pascal)

	return nil
}

// Halt stops the sensor
func (b *BMP280) Halt() error {
	return b.dev.Halt()
}

// AHT20 denotes an Aosong AHT20 hygrometer (temperature / humidity)
type AHT20 struct {
	dev   i2c.Dev
	sleep func(time.Duration)
}

// NewAHT20 instantiates a new AHT20 on the given bus, calibrating it if required
func NewAHT20(bus i2c.Bus) (*AHT20, error) {
	a := &AHT20{
		dev:   i2c.Dev{Bus: bus, Addr: DefaultAHT20Addr},
		sleep: time.Sleep,
	}

	status := make([]byte, 1)
	if err := a.dev.Tx([]byte{aht20CmdStatus}, status); err != nil {
		return nil, fmt.Errorf("failed to read AHT20 status: %w", err)
	}
	if status[0]&aht20StatusCal == 0 {
		if err := a.dev.Tx([]byte{aht20CmdInit, 0x08, 0x00}, nil); err != nil {
			return nil, fmt.Errorf("failed to calibrate AHT20: %w", err)
		}
		a.sleep(10 * time.Millisecond)
	}

	return a, nil
}

// Sense triggers a measurement and reads temperature and humidity
func (a *AHT20) Sense(e *monitor.Environment) error {
	if err := a.dev.Tx([]byte{aht20CmdMeasure, 0x33, 0x00}, nil); err != nil {
		return fmt.Errorf("failed to trigger AHT20 measurement: %w", err)
	}

	data := make([]byte, 7)
	for i := 0; i < aht20Retries; i++ {
		a.sleep(aht20MeasureDelay)
		if err := a.dev.Tx(nil, data); err != nil {
			return fmt.Errorf("failed to read AHT20 measurement: %w", err)
		}
		if data[0]&aht20StatusBusy == 0 {
			e.Temperature, e.Humidity = convertAHT20(data)
			return nil
		}
	}

	return fmt.Errorf("AHT20 still busy after %d attempts", aht20Retries)
}

// Halt does nothing, the AHT20 sleeps between measurements by itself
func (a *AHT20) Halt() error {
	return nil
}

// convertAHT20 converts a raw measurement (status + 5 data bytes) into °C and %RH
func convertAHT20(data []byte) (temperature, humidity float64) {
	rawHum := uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
	rawTemp := uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5])

	humidity = float64(rawHum) / (1 << 20) * 100
	temperature = float64(rawTemp)/(1<<20)*200 - 50

	return
}

func celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Celsius)
}
