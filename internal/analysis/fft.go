package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Spectrum is a one-sided power spectral density.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum estimates the PSD of data sampled every dt seconds. The mean
// is removed and a Hann window applied; any length is accepted.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	n := len(data)
	if n < 2 || !(dt > 0) {
		return Spectrum{}
	}

	mean := floats.Sum(data) / float64(n)
	windowed := make([]float64, n)
	wsum := 0.0
	for i, v := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = (v - mean) * w
		wsum += w * w
	}

	coeffs := fft.FFTReal(windowed)
	half := n/2 + 1
	s := Spectrum{Freq: make([]float64, half), Power: make([]float64, half)}
	fs := 1 / dt
	for k := 0; k < half; k++ {
		mag := cmplx.Abs(coeffs[k])
		p := mag * mag / (fs * wsum)
		if k != 0 && !(n%2 == 0 && k == n/2) {
			p *= 2
		}
		s.Freq[k] = float64(k) * fs / float64(n)
		s.Power[k] = p
	}
	return s
}

// DominantFrequency is the frequency of the largest non-DC bin.
func (s Spectrum) DominantFrequency() float64 {
	if len(s.Power) < 2 {
		return 0
	}
	return s.Freq[1+floats.MaxIdx(s.Power[1:])]
}

// BandPower integrates the spectrum between lo and hi Hz.
func (s Spectrum) BandPower(lo, hi float64) float64 {
	if len(s.Freq) < 2 {
		return 0
	}
	df := s.Freq[1] - s.Freq[0]
	total := 0.0
	for i, f := range s.Freq {
		if f >= lo && f <= hi {
			total += s.Power[i] * df
		}
	}
	return total
}

// Transmissibility is sqrt(body band power / input band power) for each
// band edge pair in bands. Bands with no input power report 0.
func Transmissibility(body, input Spectrum, bands [][2]float64) []float64 {
	out := make([]float64, len(bands))
	for i, b := range bands {
		in := input.BandPower(b[0], b[1])
		if in <= 0 {
			continue
		}
		out[i] = math.Sqrt(body.BandPower(b[0], b[1]) / in)
	}
	return out
}
