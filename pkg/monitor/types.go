package monitor

import "time"

// Classification denotes the outcome of an anomaly decision
type Classification int

const (

	// Normal denotes a mean frequency outside of the alert band
	Normal Classification = iota

	// Alert denotes a mean frequency strictly inside the alert band
	Alert
)

// String returns a human-readable representation of the classification
func (c Classification) String() string {
	switch c {
	case Normal:
		return "NORMAL"
	case Alert:
		return "ALERT"
	}
	return "UNKNOWN"
}

// Environment denotes a set of climate measurements. Sensors only populate
// the quantities they support and leave the others untouched
type Environment struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Pressure    float64 // hPa
}

// ReadingSet denotes the full set of measurements of a single cycle
type ReadingSet struct {
	CycleID string
	Time    time.Time

	TemperatureClimate float64
	Humidity           float64
	TemperatureBaro    float64
	Pressure           float64
	Mass               float64

	// SignalStrength is only meaningful if SignalValid is set (i.e. the node
	// was connected while taking the measurement)
	SignalStrength int
	SignalValid    bool

	MeanFrequency float64
}
