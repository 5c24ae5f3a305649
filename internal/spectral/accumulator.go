package spectral

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Mode selects how a full accumulation window reduces to one summary row.
type Mode int

const (
	// ModeAverage reduces each bin to its mean over the window,
	// normalized to a per-millisecond-sample basis (milli-g).
	ModeAverage Mode = iota

	// ModeMax reduces each bin to its maximum over the window. The
	// rate divisor is applied once to the final maximum, not inside
	// the window scan.
	ModeMax
)

// Accumulator gathers one amplitude spectrum per axis per elapsed second
// and reduces each full window to one summary row. Windows for the three
// axes fill in lockstep and complete on the same second boundary.
//
// All storage is allocated up front from the configured sample rate and
// interval; Add copies into the preallocated window.
type Accumulator struct {
	mode        Mode
	sampleRate  int
	intervalSec int
	maxFreq     int

	windows [spatial.NumAxes][][]float64
	fill    [spatial.NumAxes]int
	summary [spatial.NumAxes][]float64
}

// NewAccumulator creates an accumulator for the given sample rate,
// averaging interval and frequency cutoff. maxFreq must not exceed the
// Nyquist bin of the configured sample rate.
func NewAccumulator(mode Mode, sampleRate, intervalSec, maxFreq int) (*Accumulator, error) {
	if sampleRate < 1 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if intervalSec < 1 {
		return nil, fmt.Errorf("averaging interval must be at least 1s, got %d", intervalSec)
	}
	bins := sampleRate/2 + 1
	if maxFreq < 0 || maxFreq+1 > bins {
		return nil, fmt.Errorf("max frequency %d out of range for sample rate %d", maxFreq, sampleRate)
	}

	acc := &Accumulator{
		mode:        mode,
		sampleRate:  sampleRate,
		intervalSec: intervalSec,
		maxFreq:     maxFreq,
	}
	for axis := range acc.windows {
		acc.windows[axis] = make([][]float64, intervalSec)
		for j := range acc.windows[axis] {
			acc.windows[axis][j] = make([]float64, bins)
		}
		acc.summary[axis] = make([]float64, maxFreq+1)
	}
	return acc, nil
}

// Add appends one spectrum to the axis's current window. The caller
// calls this at most once per axis per completed second; a full window
// must be reduced before more spectra arrive for that axis.
func (acc *Accumulator) Add(axis spatial.Axis, spectrum []float64) {
	j := acc.fill[axis]
	if j >= acc.intervalSec {
		// Caller contract violation; drop rather than corrupt the window.
		return
	}
	copy(acc.windows[axis][j], spectrum)
	acc.fill[axis] = j + 1
}

// WindowComplete reports whether all three axes have received a full
// window of spectra since the last reduction.
func (acc *Accumulator) WindowComplete() bool {
	for axis := range acc.fill {
		if acc.fill[axis] < acc.intervalSec {
			return false
		}
	}
	return true
}

// ReduceAndReset collapses the axis's window into a summary row of
// maxFreq+1 bins and clears the window. The returned slice is reused on
// the next reduction for the same axis; callers consume it before then.
func (acc *Accumulator) ReduceAndReset(axis spatial.Axis) []float64 {
	window := acc.windows[axis]
	out := acc.summary[axis]

	switch acc.mode {
	case ModeMax:
		div := float64(acc.sampleRate) / 1000.0
		for k := range out {
			v := window[0][k]
			for j := 1; j < acc.intervalSec; j++ {
				if window[j][k] > v {
					v = window[j][k]
				}
			}
			out[k] = v / div
		}
	default:
		div := float64(acc.intervalSec) * float64(acc.sampleRate) / 1000.0
		for k := range out {
			out[k] = 0
		}
		for j := 0; j < acc.intervalSec; j++ {
			floats.Add(out, window[j][:acc.maxFreq+1])
		}
		floats.Scale(1/div, out)
	}

	acc.fill[axis] = 0
	return out
}

// Interval returns the window length in seconds.
func (acc *Accumulator) Interval() int {
	return acc.intervalSec
}

// MaxFrequency returns the summary row cutoff in Hz.
func (acc *Accumulator) MaxFrequency() int {
	return acc.maxFreq
}
