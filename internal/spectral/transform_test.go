package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmplitudeSpectrumZeroInput(t *testing.T) {
	const n = 1000
	analyzer := NewAnalyzer(n)

	spectrum := analyzer.AmplitudeSpectrum(make([]float64, n), nil)

	require.Len(t, spectrum, n/2+1)
	for k, v := range spectrum {
		assert.Zerof(t, v, "bin %d", k)
	}
}

func TestAmplitudeSpectrumBinCount(t *testing.T) {
	tests := []struct {
		n    int
		bins int
	}{
		{n: 2, bins: 2},
		{n: 5, bins: 3},
		{n: 7, bins: 4},
		{n: 8, bins: 5},
		{n: 1000, bins: 501},
		{n: 1001, bins: 501},
	}

	for _, tt := range tests {
		analyzer := NewAnalyzer(tt.n)
		spectrum := analyzer.AmplitudeSpectrum(make([]float64, tt.n), nil)
		assert.Lenf(t, spectrum, tt.bins, "n=%d", tt.n)
		assert.Equalf(t, tt.bins, analyzer.BinCount(), "n=%d", tt.n)
	}
}

func TestAmplitudeSpectrumPureSinusoid(t *testing.T) {
	const (
		n    = 1000
		bin  = 50
		ampl = 2.0
	)
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = ampl * math.Sin(2*math.Pi*float64(bin)*float64(i)/n)
	}

	analyzer := NewAnalyzer(n)
	spectrum := analyzer.AmplitudeSpectrum(frame, nil)

	// An integer-period sinusoid concentrates all energy in its bin;
	// the unnormalized transform reports amplitude*n/2 there.
	assert.InDelta(t, ampl*n/2, spectrum[bin], 1e-6)
	for k, v := range spectrum {
		if k == bin {
			continue
		}
		assert.Lessf(t, v, 1e-6, "leakage at bin %d", k)
	}
}

func TestAmplitudeSpectrumDCComponent(t *testing.T) {
	const n = 256
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = 1.5
	}

	spectrum := NewAnalyzer(n).AmplitudeSpectrum(frame, nil)

	assert.InDelta(t, 1.5*n, spectrum[0], 1e-6)
	for k := 1; k < len(spectrum); k++ {
		assert.Lessf(t, spectrum[k], 1e-6, "bin %d", k)
	}
}

func TestAmplitudeSpectrumSpectralLeakage(t *testing.T) {
	const n = 1000
	frame := make([]float64, n)
	// Non-integer period: energy leaks into neighbors of bin 50.
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * 50.5 * float64(i) / n)
	}

	spectrum := NewAnalyzer(n).AmplitudeSpectrum(frame, nil)

	peak := 0
	for k, v := range spectrum {
		if v > spectrum[peak] {
			peak = k
		}
	}
	assert.Contains(t, []int{50, 51}, peak)
	assert.Greater(t, spectrum[50], spectrum[40])
	assert.Greater(t, spectrum[51], spectrum[61])
}

func TestAmplitudeSpectrumReusesDst(t *testing.T) {
	const n = 64
	analyzer := NewAnalyzer(n)
	dst := make([]float64, n/2+1)

	out := analyzer.AmplitudeSpectrum(make([]float64, n), dst)

	require.Len(t, out, n/2+1)
	assert.Equal(t, &dst[0], &out[0], "expected in-place reuse of dst")
}
