package spectral

import (
	"math"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Baseline removes slow DC drift from the raw signal path with a
// per-axis exponential moving average. The decay constant is chosen so
// the average has a half-life of tau seconds at the given sample rate.
type Baseline struct {
	decay  float64
	avg    [spatial.NumAxes]float64
	primed bool
}

// NewBaseline creates a tracker with the given half-life in seconds.
func NewBaseline(tauSeconds float64, sampleRate int) *Baseline {
	return &Baseline{
		decay: math.Pow(2, -1/(tauSeconds*float64(sampleRate))),
	}
}

// Reset discards the current average. The next Update seeds it from the
// incoming sample, avoiding the ramp-up transient on a fresh output file.
func (b *Baseline) Reset() {
	b.primed = false
}

// Update advances the moving average and returns the detrended sample.
func (b *Baseline) Update(s spatial.Sample) spatial.Sample {
	if !b.primed {
		b.avg = s
		b.primed = true
	}
	var out spatial.Sample
	for i := range s {
		b.avg[i] = b.decay*b.avg[i] + (1-b.decay)*s[i]
		out[i] = s[i] - b.avg[i]
	}
	return out
}
