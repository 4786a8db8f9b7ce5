package road

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"
)

const (
	isoRefFrequency = 0.1   // n0, cycle/m
	isoWaviness     = 2.0   // w
	isoMinFrequency = 0.011 // cycle/m
	isoMaxFrequency = 2.83  // cycle/m
)

// isoPSD is the ISO 8608 displacement spectral density Gd(n) in m^3.
func isoPSD(gd0, n float64) float64 {
	return gd0 * math.Pow(n/isoRefFrequency, -isoWaviness)
}

// synthesizeISO builds a band-limited random track of at least length metres
// whose one-sided PSD follows Gd(n). Each retained spectral line gets
// amplitude sqrt(2 Gd(n) dn) and a uniform random phase; the sum of
// cosines is evaluated with one inverse FFT.
func synthesizeISO(gd0, length, spacing float64, rng *rand.Rand) []float64 {
	count := int(math.Ceil(length/spacing)) + 2
	n := 1
	for n < count {
		n <<= 1
	}

	dn := 1.0 / (float64(n) * spacing)
	spectrum := make([]complex128, n)
	half := float64(n) / 2

	for k := 1; k < n/2; k++ {
		freq := float64(k) * dn
		phase := 2 * math.Pi * rng.Float64()
		if freq < isoMinFrequency || freq > isoMaxFrequency {
			continue
		}
		amp := math.Sqrt(2 * isoPSD(gd0, freq) * dn)
		c := cmplx.Rect(half*amp, phase)
		spectrum[k] = c
		spectrum[n-k] = cmplx.Conj(c)
	}

	track := fft.IFFT(spectrum)
	samples := make([]float64, count)
	for i := range samples {
		samples[i] = real(track[i])
	}

	applyEdgeTaper(samples, spacing)
	return samples
}

// applyEdgeTaper ramps both ends of the track so the wheels enter and leave
// the rough section without a step.
func applyEdgeTaper(samples []float64, spacing float64) {
	ramp := int(DefaultLeadIn / spacing)
	if ramp*2 > len(samples) {
		ramp = len(samples) / 2
	}
	for i := 0; i < ramp; i++ {
		w := taper(float64(i) / float64(ramp))
		samples[i] *= w
		samples[len(samples)-1-i] *= w
	}
}

// mixTracks returns coherence*left + sqrt(1-coherence^2)*independent, which
// keeps the PSD of the result equal to that of each input.
func mixTracks(left, independent []float64, coherence float64) []float64 {
	out := make([]float64, len(left))
	k := math.Sqrt(math.Max(0, 1-coherence*coherence))
	for i := range left {
		out[i] = coherence*left[i] + k*independent[i]
	}
	return out
}
