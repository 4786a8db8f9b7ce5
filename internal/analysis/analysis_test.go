package analysis

import (
	"math"
	"testing"
)

func sine(freq, dt float64, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestPowerSpectrum_DominantFrequency(t *testing.T) {
	dt := 0.01
	s := PowerSpectrum(sine(1.5, dt, 1000, 0.02), dt)

	if len(s.Freq) != 501 {
		t.Fatalf("expected 501 bins, got %d", len(s.Freq))
	}
	if f := s.DominantFrequency(); math.Abs(f-1.5) > 0.1 {
		t.Errorf("expected peak near 1.5 Hz, got %.3f", f)
	}
}

func TestPowerSpectrum_Parseval(t *testing.T) {
	dt := 0.001
	amp := 0.01
	data := sine(12, dt, 4000, amp)
	s := PowerSpectrum(data, dt)

	// A sine of amplitude A has variance A^2/2.
	got := s.BandPower(0, 500)
	want := amp * amp / 2
	if math.Abs(got-want)/want > 0.05 {
		t.Errorf("band power %.4g, want %.4g", got, want)
	}
}

func TestPowerSpectrum_Degenerate(t *testing.T) {
	if s := PowerSpectrum([]float64{1}, 0.01); len(s.Power) != 0 {
		t.Error("expected empty spectrum for one sample")
	}
	if s := PowerSpectrum([]float64{1, 2, 3}, 0); len(s.Power) != 0 {
		t.Error("expected empty spectrum for zero dt")
	}
	if f := (Spectrum{}).DominantFrequency(); f != 0 {
		t.Errorf("expected 0, got %v", f)
	}
}

func TestTransmissibility(t *testing.T) {
	dt := 0.005
	in := PowerSpectrum(sine(2, dt, 2000, 0.02), dt)
	body := PowerSpectrum(sine(2, dt, 2000, 0.01), dt)

	tr := Transmissibility(body, in, [][2]float64{{1, 3}, {40, 50}})
	if math.Abs(tr[0]-0.5) > 1e-6 {
		t.Errorf("expected 0.5 in the excited band, got %v", tr[0])
	}
	if tr[1] > 1 {
		t.Errorf("unexpected ratio in an empty band: %v", tr[1])
	}
}

func TestDescribe(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	values := []float64{0.1, -0.2, 0.05, 0.01, 0.0}

	r := Describe(times, values, 0.06)
	if math.Abs(r.Peak-0.2) > 1e-12 {
		t.Errorf("peak %v", r.Peak)
	}
	if r.SettlingTime != 2 {
		t.Errorf("settling time %v, want 2", r.SettlingTime)
	}
	wantRMS := math.Sqrt((0.01 + 0.04 + 0.0025 + 0.0001) / 5)
	if math.Abs(r.RMS-wantRMS) > 1e-12 {
		t.Errorf("rms %v, want %v", r.RMS, wantRMS)
	}
	if math.Abs(r.Mean-(-0.008)) > 1e-12 {
		t.Errorf("mean %v", r.Mean)
	}
}

func TestSettlingTime(t *testing.T) {
	times := []float64{0, 1, 2}
	if got := SettlingTime(times, []float64{0, 0, 0}, 0.1); got != 0 {
		t.Errorf("already settled: got %v", got)
	}
	if got := SettlingTime(times, []float64{0, 0, 1}, 0.1); !math.IsNaN(got) {
		t.Errorf("never settles: got %v", got)
	}
	if got := Describe(nil, nil, 0.1); !math.IsNaN(got.SettlingTime) {
		t.Error("empty signal should not settle")
	}
}
