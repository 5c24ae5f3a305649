package spectral

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer converts one-second sample frames into amplitude spectra.
// The FFT plan is allocated once for a fixed frame length and reused
// for every frame, so the hot path does not allocate.
//
// An Analyzer is not safe for concurrent use; the pipeline scheduler
// owns one and calls it from its consumer loop only.
type Analyzer struct {
	fft   *fourier.FFT
	coeff []complex128
}

// NewAnalyzer creates an analyzer for frames of n samples.
func NewAnalyzer(n int) *Analyzer {
	return &Analyzer{
		fft:   fourier.NewFFT(n),
		coeff: make([]complex128, n/2+1),
	}
}

// BinCount returns the number of frequency bins produced per frame,
// always n/2+1 (DC through Nyquist).
func (a *Analyzer) BinCount() int {
	return len(a.coeff)
}

// AmplitudeSpectrum computes the amplitude spectrum of frame. Bin 0 is
// the DC component, bin k the magnitude sqrt(Re²+Im²) of the k-th
// coefficient, and the last bin the Nyquist component when the frame
// length is even. Amplitudes are non-negative and unscaled; physical
// scaling happens at window reduction.
//
// The result is written into dst when it has sufficient capacity,
// otherwise a new slice is allocated.
func (a *Analyzer) AmplitudeSpectrum(frame []float64, dst []float64) []float64 {
	if len(frame) != a.fft.Len() {
		a.fft.Reset(len(frame))
		a.coeff = make([]complex128, len(frame)/2+1)
	}
	cs := a.fft.Coefficients(a.coeff, frame)
	if cap(dst) < len(cs) {
		dst = make([]float64, len(cs))
	}
	dst = dst[:len(cs)]
	for i, c := range cs {
		dst[i] = cmplx.Abs(c)
	}
	return dst
}
