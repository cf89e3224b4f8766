package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum pairs frequencies, in cycles per unit of simulated time, with
// their amplitudes. Index 0 is the mean and is always zero.
type Spectrum struct {
	Freqs []float64
	Amps  []float64
	scale float64
}

// PowerSpectrum removes the mean from data, sampled every sampleDt, and
// returns amplitudes from zero up to the Nyquist frequency.
func PowerSpectrum(data []float64, sampleDt float64) Spectrum {
	n := len(data)
	if n < 2 || !(sampleDt > 0) {
		return Spectrum{}
	}

	mean := stat.Mean(data, nil)
	seq := make([]float64, n)
	for i, v := range data {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, seq)

	s := Spectrum{
		Freqs: make([]float64, len(coeff)),
		Amps:  make([]float64, len(coeff)),
		scale: math.Max(floats.Max(data), -floats.Min(data)),
	}
	for i, c := range coeff {
		s.Freqs[i] = fft.Freq(i) / sampleDt
		s.Amps[i] = cmplx.Abs(c)
	}
	s.Amps[0] = 0
	return s
}

// Dominant returns the strongest non-zero frequency. ok is false when the
// series is flat or too short to have one.
func (s Spectrum) Dominant() (freq, amp float64, ok bool) {
	floor := 1e-9 * math.Max(s.scale, 1)
	for i := 1; i < len(s.Amps); i++ {
		if s.Amps[i] > amp && s.Amps[i] > floor {
			freq, amp, ok = s.Freqs[i], s.Amps[i], true
		}
	}
	return freq, amp, ok
}

// SettlingIndex returns the first index from which every value stays at or
// below frac of the series peak, or -1 when the tail never settles.
func SettlingIndex(data []float64, frac float64) int {
	if len(data) == 0 {
		return -1
	}
	limit := frac * floats.Max(data)
	idx := -1
	for i := len(data) - 1; i >= 0; i-- {
		if data[i] > limit {
			break
		}
		idx = i
	}
	return idx
}
