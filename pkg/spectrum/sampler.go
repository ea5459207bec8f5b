package spectrum

import (
	"context"
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/monitor"
	"github.com/fatih/stopwatch"
)

// Sampler fills sample blocks from an acoustic source at a fixed pace
type Sampler struct {
	Source monitor.AcousticSource

	// Interval denotes the delay between two consecutive readings. Time spent
	// reading the source is not compensated for, so the effective sampling
	// rate is always somewhat lower than 1 / Interval
	Interval time.Duration
}

// NewSampler instantiates a new Sampler pacing reads for the given sample rate
func NewSampler(src monitor.AcousticSource, sampleRate float64) *Sampler {
	return &Sampler{
		Source:   src,
		Interval: time.Duration(float64(time.Second) / sampleRate),
	}
}

// Capture fills the block with consecutive readings and returns the time it took
func (s *Sampler) Capture(ctx context.Context, b Block) (time.Duration, error) {
	timer := stopwatch.Start(0)
	defer timer.Stop()

	for i := range b {
		if err := ctx.Err(); err != nil {
			return timer.ElapsedTime(), err
		}

		v, err := s.Source.ReadSample()
		if err != nil {
			return timer.ElapsedTime(), fmt.Errorf("failed to read sample %d: %w", i, err)
		}
		b[i] = v

		if s.Interval > 0 {
			time.Sleep(s.Interval)
		}
	}

	return timer.ElapsedTime(), nil
}

// EffectiveRate returns the sampling rate actually achieved for n samples
// captured within the given duration
func EffectiveRate(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
