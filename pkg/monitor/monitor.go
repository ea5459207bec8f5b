// Package monitor provides the core types and device capabilities shared by
// all components of the monitoring node
package monitor

// EnvSensor denotes a climate sensor (temperature / humidity / pressure)
type EnvSensor interface {

	// Sense reads the current values into e. Quantities the sensor does not
	// support are not modified
	Sense(e *Environment) error
}

// MassSensor denotes a load cell (or any other source of mass readings)
type MassSensor interface {

	// ReadRaw returns the average of n raw (uncalibrated) readings
	ReadRaw(n int) (float64, error)
}

// AcousticSource denotes an analog channel sampling the vibration signal
type AcousticSource interface {

	// ReadSample returns a single raw reading of the channel
	ReadSample() (float64, error)
}

// Trigger denotes the physical provisioning trigger
type Trigger interface {

	// Asserted returns if the trigger is currently active
	Asserted() (bool, error)
}

// Devices denotes the set of peripherals driven by the node
type Devices struct {
	Climate   EnvSensor
	Barometer EnvSensor
	Mass      MassSensor
	Acoustic  AcousticSource
	Trigger   Trigger
}
