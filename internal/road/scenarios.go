package road

import (
	"fmt"
	"sort"

	"github.com/san-kum/pneustab/internal/dynamo"
)

var scenarios = map[string]Spec{
	"flat": {Kind: KindFlat, Velocity: 10, Duration: 20},
	"highway": {
		Kind: KindISO8608, Class: "B", Velocity: 27.8, Duration: 30, Seed: 1,
		Correlation: &Correlation{Coherence: Coherent(0.8)},
	},
	"country": {
		Kind: KindISO8608, Class: "C", Velocity: 19.4, Duration: 30, Seed: 2,
		Correlation: &Correlation{Coherence: Coherent(0.6)},
	},
	"city": {
		Kind: KindComposite, Velocity: 11.1, Duration: 20,
		Components: []Spec{
			{Kind: KindISO8608, Class: "C", Seed: 3},
			{Kind: KindSpeedBump, Position: 60, Length: 0.9, Height: 0.07},
			{Kind: KindPothole, Position: 150, Length: 0.6, Height: 0.04},
		},
	},
	"offroad": {
		Kind: KindISO8608, Class: "E", Velocity: 8.3, Duration: 30, Seed: 4,
		Correlation: &Correlation{Coherence: Coherent(0.3)},
	},
	"sine":       {Kind: KindSine, Velocity: 10, Duration: 10, Amplitude: 0.02, Frequency: 1.5},
	"washboard":  {Kind: KindSine, Velocity: 15, Duration: 10, Amplitude: 0.008, Wavelength: 0.6},
	"pothole":    {Kind: KindPothole, Velocity: 8.3, Duration: 5, Position: 10, Length: 0.6, Height: 0.05},
	"speed_bump": {Kind: KindSpeedBump, Velocity: 5.6, Duration: 6, Position: 10, Length: 0.9, Height: 0.08},
	"twist": {
		Kind: KindSine, Velocity: 3, Duration: 15, Amplitude: 0.05, Wavelength: 8,
		Correlation: &Correlation{LateralDelay: 1.3},
	},
}

// Scenario returns a copy of the named road scenario.
func Scenario(name string) (Spec, error) {
	s, ok := scenarios[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: unknown road scenario %q", dynamo.ErrConfiguration, name)
	}
	return cloneSpec(s), nil
}

// ScenarioNames lists the built-in scenarios in lexical order.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cloneSpec(s Spec) Spec {
	if s.Correlation != nil {
		c := *s.Correlation
		if c.Coherence != nil {
			c.Coherence = Coherent(*c.Coherence)
		}
		s.Correlation = &c
	}
	if s.Components != nil {
		comps := make([]Spec, len(s.Components))
		for i, c := range s.Components {
			comps[i] = cloneSpec(c)
		}
		s.Components = comps
	}
	return s
}
