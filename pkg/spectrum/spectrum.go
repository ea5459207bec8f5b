// Package spectrum estimates the dominant frequency of a fixed-size block of
// real-valued samples using a radix-2 fast Fourier transform
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (

	// DefaultBlockSize denotes the default number of samples per block
	DefaultBlockSize = 256

	// DefaultSampleRate denotes the default sampling rate in Hz
	DefaultSampleRate = 16000.

	// DefaultDivisor denotes the default calibration divisor applied to the
	// peak frequency
	DefaultDivisor = 2.05

	// Magnitudes closer than this (relative) are equal. Well above the rounding
	// noise of a 256 point transform, far below any physical difference
	tieTolerance = 1e-9
)

// Block denotes a block of samples, its length must match the size of the
// Analyzer it is passed to
type Block []float64

// Analyzer denotes a spectral analyzer for blocks of a fixed size. All buffers
// are allocated once upon construction, hence an Analyzer must not be used
// concurrently
type Analyzer struct {
	size       int
	sampleRate float64
	divisor    float64

	work     []float64
	spectrum []complex128
	twiddle  []complex128
}

// New instantiates a new Analyzer for blocks of the given size (which must be
// a power of two)
func New(size int, sampleRate, divisor float64) (*Analyzer, error) {
	if size < 1 || size&(size-1) != 0 {
		return nil, fmt.Errorf("invalid block size %d, must be a power of two", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if divisor == 0 {
		return nil, fmt.Errorf("invalid calibration divisor %v", divisor)
	}

	a := &Analyzer{
		size:       size,
		sampleRate: sampleRate,
		divisor:    divisor,
		work:       make([]float64, size),
		spectrum:   make([]complex128, size),
		twiddle:    make([]complex128, size/2),
	}
	for k := range a.twiddle {
		a.twiddle[k] = cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(size)))
	}

	return a, nil
}

// Size returns the block size of the analyzer
func (a *Analyzer) Size() int {
	return a.size
}

// SampleRate returns the sampling rate the analyzer maps bins with
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// NewBlock returns an empty block matching the size of the analyzer
func (a *Analyzer) NewBlock() Block {
	return make(Block, a.size)
}

// Analyze returns the dominant frequency (in Hz, rounded to one decimal) of the
// given block. The block itself is not modified
func (a *Analyzer) Analyze(b Block) float64 {
	copy(a.work, b)
	RemoveDC(a.work)

	a.transform(0, 0, a.size, 1)

	return a.frequency(a.peak())
}

// Bin returns the magnitude of bin k of the most recent analysis
func (a *Analyzer) Bin(k int) float64 {
	return cmplx.Abs(a.spectrum[k])
}

// RemoveDC subtracts the mean of the block from all of its samples
func RemoveDC(b []float64) {
	if len(b) == 0 {
		return
	}

	var sum float64
	for _, v := range b {
		sum += v
	}
	mean := sum / float64(len(b))
	for i := range b {
		b[i] -= mean
	}
}

////////////////////////////////////////////////////////////////////////////////

// transform computes the DFT of the n work samples starting at in with the given
// stride into the spectrum buffer starting at out (decimation in time). The even
// samples are transformed into the lower half of the output range, the odd ones
// into the upper half, then both halves are combined in place
func (a *Analyzer) transform(out, in, n, stride int) {
	if n == 1 {
		a.spectrum[out] = complex(a.work[in], 0)
		return
	}

	half := n / 2
	a.transform(out, in, half, 2*stride)
	a.transform(out+half, in+stride, half, 2*stride)

	// exp(-2πi·k/n) == exp(-2πi·k·stride/N) since n·stride == N
	for k := 0; k < half; k++ {
		even := a.spectrum[out+k]
		odd := a.twiddle[k*stride] * a.spectrum[out+k+half]
		a.spectrum[out+k] = even + odd
		a.spectrum[out+k+half] = even - odd
	}
}

// peak returns the index of the bin of maximum magnitude in the lower half of the
// spectrum, the first occurrence wins in case of a tie
func (a *Analyzer) peak() int {
	return peakIndex(a.size/2, a.Bin)
}

func (a *Analyzer) frequency(bin int) float64 {
	hz := (float64(bin) * a.sampleRate / float64(a.size)) / a.divisor
	return math.Round(hz*10) / 10
}

func peakIndex(n int, magnitude func(k int) float64) int {
	best, bestMag := 0, math.Inf(-1)
	for k := 0; k < n; k++ {
		mag := magnitude(k)
		if mag > bestMag && !nearlyEqual(mag, bestMag) {
			best, bestMag = k, mag
		}
	}
	return best
}

func nearlyEqual(a, b float64) bool {
	if math.IsInf(b, 0) {
		return false
	}
	return math.Abs(a-b) <= tieTolerance*math.Max(math.Abs(a), math.Abs(b))
}
