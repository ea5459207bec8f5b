package node

// State denotes a state of the node lifecycle
type State int

const (

	// Boot denotes the entry state after power-up or wake
	Boot State = iota

	// Provisioning denotes the configuration collection mode
	Provisioning

	// NormalInit denotes connectivity, update and calibration setup
	NormalInit

	// Measure denotes the sensor and acoustic measurement stage
	Measure

	// Decide denotes the classification stage
	Decide

	// Report denotes the telemetry / alert stage
	Report

	// Sleep denotes the low-power state ending every cycle
	Sleep
)

var stateNames = map[State]string{
	Boot:         "BOOT",
	Provisioning: "PROVISIONING",
	NormalInit:   "NORMAL_INIT",
	Measure:      "MEASURE",
	Decide:       "DECIDE",
	Report:       "REPORT",
	Sleep:        "SLEEP",
}

// String returns a human-readable representation of the state
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}
