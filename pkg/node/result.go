package node

import (
	"errors"
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/monitor"
)

// ErrPanic denotes a panic recovered during a cycle
var ErrPanic = errors.New("recovered from panic")

// StageResult denotes the result of a single cycle stage
type StageResult struct {
	Stage    State
	Err      error
	Duration time.Duration
}

// String returns a human-readable representation of the result
func (r StageResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s failed after %v: %s", r.Stage, r.Duration, r.Err)
	}
	return fmt.Sprintf("%s completed in %v", r.Stage, r.Duration)
}

// Outcome denotes the result of a measurement cycle
type Outcome struct {
	Readings monitor.ReadingSet
	Decision anomaly.Decision
	Stages   []StageResult
}

// Reported returns if the cycle reached the report stage
func (o Outcome) Reported() bool {
	for _, r := range o.Stages {
		if r.Stage == Report {
			return true
		}
	}
	return false
}

// Err returns the errors of all failed stages (if any)
func (o Outcome) Err() error {
	var errs []error
	for _, r := range o.Stages {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Stage, r.Err))
		}
	}
	return errors.Join(errs...)
}
