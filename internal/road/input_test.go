package road

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pneustab/internal/dynamo"
)

const testWheelbase = 2.7

func primed(t *testing.T, spec Spec) *Input {
	t.Helper()
	in, err := NewInput(testWheelbase)
	if err != nil {
		t.Fatalf("new input: %v", err)
	}
	if err := in.Configure(spec); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := in.Prime(); err != nil {
		t.Fatalf("prime: %v", err)
	}
	return in
}

func TestWheelExcitation_Idempotent(t *testing.T) {
	for _, name := range ScenarioNames() {
		t.Run(name, func(t *testing.T) {
			spec, err := Scenario(name)
			if err != nil {
				t.Fatal(err)
			}
			in := primed(t, spec)
			for _, tm := range []float64{0, 0.013, 1.5, 3.77, spec.Duration * 0.9} {
				a := in.WheelExcitation(tm)
				b := in.WheelExcitation(tm)
				if a != b {
					t.Errorf("t=%.3f: excitation not idempotent: %v vs %v", tm, a, b)
				}
			}
		})
	}
}

func TestWheelExcitation_AxleDelay(t *testing.T) {
	for _, name := range []string{"sine", "highway", "washboard", "city"} {
		t.Run(name, func(t *testing.T) {
			spec, _ := Scenario(name)
			in := primed(t, spec)
			delay := testWheelbase / spec.Velocity
			if math.Abs(in.AxleDelay()-delay) > 1e-12 {
				t.Fatalf("AxleDelay() = %v, want %v", in.AxleDelay(), delay)
			}
			for tm := delay; tm < spec.Duration; tm += 0.137 {
				now := in.WheelExcitation(tm)
				earlier := in.WheelExcitation(tm - delay)
				if d := math.Abs(now[dynamo.RearLeft] - earlier[dynamo.FrontLeft]); d > 1e-9 {
					t.Fatalf("t=%.3f: rear-left %.9f != delayed front-left %.9f", tm, now[dynamo.RearLeft], earlier[dynamo.FrontLeft])
				}
				if d := math.Abs(now[dynamo.RearRight] - earlier[dynamo.FrontRight]); d > 1e-9 {
					t.Fatalf("t=%.3f: rear-right %.9f != delayed front-right %.9f", tm, now[dynamo.RearRight], earlier[dynamo.FrontRight])
				}
			}
		})
	}
}

func TestWheelExcitation_NoLateralDelayByDefault(t *testing.T) {
	in := primed(t, Spec{Kind: KindISO8608, Class: "C", Velocity: 15, Duration: 10, Seed: 9})
	for tm := 0.0; tm < 10; tm += 0.25 {
		e := in.WheelExcitation(tm)
		if e[dynamo.FrontLeft] != e[dynamo.FrontRight] || e[dynamo.RearLeft] != e[dynamo.RearRight] {
			t.Fatalf("t=%.2f: left/right differ without correlation spec: %v", tm, e)
		}
	}
}

func TestWheelExcitation_LateralDelay(t *testing.T) {
	spec := Spec{Kind: KindSine, Velocity: 5, Duration: 10, Amplitude: 0.03, Wavelength: 4,
		Correlation: &Correlation{LateralDelay: 0.4}}
	in := primed(t, spec)
	for tm := 3.0; tm < 9; tm += 0.3 {
		now := in.WheelExcitation(tm)
		earlier := in.WheelExcitation(tm - 0.4)
		if math.Abs(now[dynamo.FrontRight]-earlier[dynamo.FrontLeft]) > 1e-9 {
			t.Fatalf("t=%.2f: right side not delayed", tm)
		}
	}
}

func TestWheelExcitation_LateralDelayOnlyKeepsISOProfile(t *testing.T) {
	spec := Spec{Kind: KindISO8608, Class: "C", Velocity: 15, Duration: 10, Seed: 9,
		Correlation: &Correlation{LateralDelay: 0.1}}
	in := primed(t, spec)
	for tm := 1.0; tm < 9; tm += 0.25 {
		now := in.WheelExcitation(tm)
		earlier := in.WheelExcitation(tm - 0.1)
		if math.Abs(now[dynamo.FrontRight]-earlier[dynamo.FrontLeft]) > 1e-12 {
			t.Fatalf("t=%.2f: FR=%g, FL(t-0.1)=%g", tm, now[dynamo.FrontRight], earlier[dynamo.FrontLeft])
		}
	}
}

func TestWheelExcitation_PartialCoherenceDecorrelates(t *testing.T) {
	spec := Spec{Kind: KindISO8608, Class: "C", Velocity: 15, Duration: 10, Seed: 9,
		Correlation: &Correlation{Coherence: Coherent(0.2)}}
	in := primed(t, spec)
	differ := false
	for tm := 1.0; tm < 9; tm += 0.25 {
		e := in.WheelExcitation(tm)
		if e[dynamo.FrontLeft] != e[dynamo.FrontRight] {
			differ = true
		}
	}
	if !differ {
		t.Error("left and right tracks identical at coherence 0.2")
	}
}

func TestPrime_RejectsNonPositive(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zero velocity", Spec{Kind: KindFlat, Velocity: 0, Duration: 1}},
		{"negative velocity", Spec{Kind: KindFlat, Velocity: -3, Duration: 1}},
		{"zero duration", Spec{Kind: KindSine, Velocity: 3, Duration: 0, Amplitude: 0.01, Wavelength: 2}},
		{"negative duration", Spec{Kind: KindFlat, Velocity: 3, Duration: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, _ := NewInput(testWheelbase)
			if err := in.Configure(tt.spec); err != nil {
				t.Fatalf("configure: %v", err)
			}
			err := in.Prime()
			var cfgErr *dynamo.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if in.Primed() {
				t.Error("input reports primed after failure")
			}
		})
	}
}

func TestConfigure_RejectsUnknown(t *testing.T) {
	in, _ := NewInput(testWheelbase)
	tests := []Spec{
		{Kind: "gravel"},
		{Kind: KindISO8608, Class: "Z"},
		{Kind: KindSine},
		{Kind: KindComposite},
		{Kind: KindFlat, Correlation: &Correlation{Coherence: Coherent(2)}},
	}
	for _, spec := range tests {
		if err := in.Configure(spec); !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("Configure(%+v) = %v, want configuration error", spec, err)
		}
	}
}

func TestISOClassRoughness(t *testing.T) {
	rms := func(class string) float64 {
		in := primed(t, Spec{Kind: KindISO8608, Class: class, Velocity: 20, Duration: 30, Seed: 7})
		sum, n := 0.0, 0
		for tm := 1.0; tm < 29; tm += 0.01 {
			h := in.WheelExcitation(tm)[dynamo.FrontLeft]
			sum += h * h
			n++
		}
		return math.Sqrt(sum / float64(n))
	}

	b, d := rms("B"), rms("D")
	if b <= 0 {
		t.Fatalf("class B profile is flat")
	}
	// Each class step is 4x the PSD, so D should be about 4x the RMS of B.
	if ratio := d / b; ratio < 2.5 || ratio > 6 {
		t.Errorf("RMS ratio D/B = %.2f, want about 4", ratio)
	}
}

func TestFeatures(t *testing.T) {
	pothole := primed(t, Spec{Kind: KindPothole, Velocity: 5, Duration: 5, Position: 5, Length: 1, Height: 0.05})
	bump := primed(t, Spec{Kind: KindSpeedBump, Velocity: 5, Duration: 5, Position: 5, Length: 1, Height: 0.05})

	// The front wheel is at the middle of the feature at t = 5.5/5.
	mid := 5.5 / 5
	if h := pothole.WheelExcitation(mid)[dynamo.FrontLeft]; math.Abs(h+0.05) > 1e-9 {
		t.Errorf("pothole depth = %v, want -0.05", h)
	}
	if h := bump.WheelExcitation(mid)[dynamo.FrontLeft]; math.Abs(h-0.05) > 1e-9 {
		t.Errorf("bump height = %v, want 0.05", h)
	}
	if h := bump.WheelExcitation(0.2)[dynamo.FrontLeft]; h != 0 {
		t.Errorf("bump before position = %v, want 0", h)
	}
}

func TestWheelVelocity_Sine(t *testing.T) {
	spec := Spec{Kind: KindSine, Velocity: 10, Duration: 10, Amplitude: 0.01, Wavelength: 5}
	in := primed(t, spec)
	tm := 3.0
	omega := 2 * math.Pi * spec.Velocity / spec.Wavelength
	want := spec.Amplitude * omega * math.Cos(omega*tm)
	got := in.WheelVelocity(tm)[dynamo.FrontLeft]
	if math.Abs(got-want) > 1e-5 {
		t.Errorf("WheelVelocity = %v, want %v", got, want)
	}
}

func TestUnprimedIsFlat(t *testing.T) {
	in, _ := NewInput(testWheelbase)
	if e := in.WheelExcitation(1); e.MaxAbs() != 0 {
		t.Errorf("unprimed input returned %v", e)
	}
}

func TestScenarioUnknown(t *testing.T) {
	if _, err := Scenario("moon"); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
