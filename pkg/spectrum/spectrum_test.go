package spectrum

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sine(n int, bin float64, amplitude, offset float64) Block {
	b := make(Block, n)
	for i := range b {
		b[i] = offset + amplitude*math.Sin(2*math.Pi*bin*float64(i)/float64(n))
	}
	return b
}

func referenceDFT(x []float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for j := 0; j < n; j++ {
			sum += complex(x[j], 0) * cmplx.Exp(complex(0, -2*math.Pi*float64(k*j)/float64(n)))
		}
		out[k] = sum
	}
	return out
}

func TestNewInvalidSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 6, 100, 255} {
		_, err := New(size, DefaultSampleRate, DefaultDivisor)
		require.Errorf(t, err, "size %d unexpectedly accepted", size)
	}

	_, err := New(8, 0, DefaultDivisor)
	require.Error(t, err)
	_, err = New(8, DefaultSampleRate, 0)
	require.Error(t, err)
}

func TestTransformMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, size := range []int{1, 2, 4, 8, 16, 64, 256, 1024} {
		a, err := New(size, DefaultSampleRate, DefaultDivisor)
		require.NoError(t, err)

		for round := 0; round < 5; round++ {
			b := a.NewBlock()
			for i := range b {
				b[i] = rng.Float64()*4000 - 2000
			}
			a.Analyze(b)

			centered := make([]float64, size)
			copy(centered, b)
			RemoveDC(centered)
			ref := referenceDFT(centered)

			for k := 0; k < size; k++ {
				require.InDeltaf(t, real(ref[k]), real(a.spectrum[k]), 1e-6*float64(size)*2000, "size %d, bin %d (real)", size, k)
				require.InDeltaf(t, imag(ref[k]), imag(a.spectrum[k]), 1e-6*float64(size)*2000, "size %d, bin %d (imag)", size, k)
			}

			refPeak := peakIndex(size/2, func(k int) float64 { return cmplx.Abs(ref[k]) })
			require.Equalf(t, refPeak, a.peak(), "size %d: peak bin mismatch", size)
		}
	}
}

func TestRemoveDC(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		a, err := New(DefaultBlockSize, DefaultSampleRate, DefaultDivisor)
		require.NoError(t, err)

		b := a.NewBlock()
		offset := rng.Float64() * 4095
		for i := range b {
			b[i] = offset + rng.NormFloat64()*100
		}
		orig := append(Block(nil), b...)

		a.Analyze(b)

		var sum float64
		for _, v := range a.work {
			sum += v
		}
		require.InDelta(t, 0, sum/float64(len(a.work)), 1e-9)
		require.Equal(t, orig, b, "input block was modified")
		require.InDelta(t, 0, a.Bin(0), 1e-6)
	}

	RemoveDC(nil)
}

func TestAnalyzeSine(t *testing.T) {
	a, err := New(DefaultBlockSize, DefaultSampleRate, DefaultDivisor)
	require.NoError(t, err)

	// Bin 13 at 16 kHz / 256 samples -> 812.5 Hz, divided by 2.05
	require.Equal(t, 396.3, a.Analyze(sine(DefaultBlockSize, 13, 500, 2048)))

	// Bin 12 -> 750 Hz / 2.05
	require.Equal(t, 365.9, a.Analyze(sine(DefaultBlockSize, 12, 500, 2048)))

	// A constant signal has no dominant non-DC component, bin 0 wins
	flat := a.NewBlock()
	for i := range flat {
		flat[i] = 1234
	}
	require.Equal(t, 0., a.Analyze(flat))
}

func TestAnalyzeTieBreak(t *testing.T) {
	a, err := New(DefaultBlockSize, DefaultSampleRate, 1)
	require.NoError(t, err)

	// Two components of equal amplitude: the lower bin must win
	b := a.NewBlock()
	for i := range b {
		x := 2 * math.Pi * float64(i) / float64(len(b))
		b[i] = math.Cos(20*x) + math.Cos(7*x)
	}
	require.Equal(t, 7*DefaultSampleRate/DefaultBlockSize, a.Analyze(b))
	require.InDelta(t, a.Bin(7), a.Bin(20), 1e-6)

	require.Equal(t, 1, peakIndex(4, func(k int) float64 { return []float64{0, 5, 5, 1}[k] }))
}

type rampSource struct {
	n   int
	err error
}

func (r *rampSource) ReadSample() (float64, error) {
	if r.err != nil && r.n >= 3 {
		return 0, r.err
	}
	r.n++
	return float64(r.n), nil
}

func TestSamplerCapture(t *testing.T) {
	s := NewSampler(&rampSource{}, DefaultSampleRate)
	require.Equal(t, 62500*time.Nanosecond, s.Interval)

	s.Interval = 0
	b := make(Block, 8)
	_, err := s.Capture(context.Background(), b)
	require.NoError(t, err)
	require.Equal(t, Block{1, 2, 3, 4, 5, 6, 7, 8}, b)

	errRead := errors.New("adc failure")
	s = &Sampler{Source: &rampSource{err: errRead}}
	_, err = s.Capture(context.Background(), make(Block, 8))
	require.ErrorIs(t, err, errRead)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Capture(ctx, make(Block, 8))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEffectiveRate(t *testing.T) {
	require.Equal(t, 0., EffectiveRate(256, 0))
	require.InDelta(t, 16000, EffectiveRate(256, 16*time.Millisecond), 1e-9)
}
