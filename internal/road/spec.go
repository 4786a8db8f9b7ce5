package road

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Kind selects the road profile source.
type Kind string

const (
	KindFlat      Kind = "flat"
	KindSine      Kind = "sine"
	KindISO8608   Kind = "iso8608"
	KindPothole   Kind = "pothole"
	KindSpeedBump Kind = "speed_bump"
	KindComposite Kind = "composite"
)

const (
	DefaultSampleSpacing = 0.05
	DefaultFeatureLength = 0.5
	DefaultLeadIn        = 2.0
)

// Correlation makes the right track differ from the left one. Without it
// both wheels of an axle see the same profile.
type Correlation struct {
	// Coherence in [0,1] mixes an independent random track into the right
	// side of an ISO 8608 profile (1 = identical, 0 = independent). Unset
	// means 1.
	Coherence *float64 `yaml:"coherence,omitempty"`
	// LateralDelay shifts the right side in time, in seconds.
	LateralDelay float64 `yaml:"lateral_delay"`
}

// Coherent returns a coherence value for a Correlation literal.
func Coherent(v float64) *float64 { return &v }

func (c *Correlation) coherence() float64 {
	if c == nil || c.Coherence == nil {
		return 1
	}
	return *c.Coherence
}

// Spec describes a road profile. Distances are along the travel direction
// measured from the front axle position at t=0.
type Spec struct {
	Kind          Kind         `yaml:"kind"`
	Velocity      float64      `yaml:"velocity"`
	Duration      float64      `yaml:"duration"`
	Amplitude     float64      `yaml:"amplitude"`
	Wavelength    float64      `yaml:"wavelength"`
	Frequency     float64      `yaml:"frequency"`
	Class         string       `yaml:"class"`
	Seed          int64        `yaml:"seed"`
	Position      float64      `yaml:"position"`
	Length        float64      `yaml:"length"`
	Height        float64      `yaml:"height"`
	SampleSpacing float64      `yaml:"sample_spacing"`
	Components    []Spec       `yaml:"components,omitempty"`
	Correlation   *Correlation `yaml:"correlation,omitempty"`
}

// Validate checks the recognized options of the spec. Velocity and duration
// positivity is enforced by Prime so a spec can be stored before the session
// parameters are final.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindFlat, "":
	case KindSine:
		if s.Wavelength <= 0 && s.Frequency <= 0 {
			return dynamo.NewConfigError("road.wavelength", s.Wavelength, "sine needs a positive wavelength or frequency")
		}
		if s.Amplitude < 0 {
			return dynamo.NewConfigError("road.amplitude", s.Amplitude, "must not be negative")
		}
	case KindISO8608:
		if _, err := classRoughness(s.Class); err != nil {
			return err
		}
		if s.SampleSpacing < 0 {
			return dynamo.NewConfigError("road.sample_spacing", s.SampleSpacing, "must not be negative")
		}
	case KindPothole, KindSpeedBump:
		if s.Length < 0 {
			return dynamo.NewConfigError("road.length", s.Length, "must not be negative")
		}
		if s.Position < 0 {
			return dynamo.NewConfigError("road.position", s.Position, "must not be negative")
		}
	case KindComposite:
		if len(s.Components) == 0 {
			return fmt.Errorf("%w: composite road needs at least one component", dynamo.ErrConfiguration)
		}
		for i, c := range s.Components {
			if c.Kind == KindComposite {
				return fmt.Errorf("%w: composite component %d may not be composite", dynamo.ErrConfiguration, i)
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("component %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown road kind %q", dynamo.ErrConfiguration, s.Kind)
	}

	if c := s.Correlation; c != nil {
		if k := c.coherence(); k < 0 || k > 1 {
			return dynamo.NewConfigError("road.correlation.coherence", k, "must be within [0,1]")
		}
		if c.LateralDelay < 0 {
			return dynamo.NewConfigError("road.correlation.lateral_delay", c.LateralDelay, "must not be negative")
		}
	}
	return nil
}

// wavelength resolves the spatial period of a sine profile.
func (s Spec) wavelength() float64 {
	if s.Wavelength > 0 {
		return s.Wavelength
	}
	return s.Velocity / s.Frequency
}

func (s Spec) spacing() float64 {
	if s.SampleSpacing > 0 {
		return s.SampleSpacing
	}
	return DefaultSampleSpacing
}

// ISO 8608 displacement PSD at n0 = 0.1 cycle/m, geometric class means.
var isoRoughness = map[string]float64{
	"A": 16e-6,
	"B": 64e-6,
	"C": 256e-6,
	"D": 1024e-6,
	"E": 4096e-6,
	"F": 16384e-6,
	"G": 65536e-6,
	"H": 262144e-6,
}

func classRoughness(class string) (float64, error) {
	g, ok := isoRoughness[strings.ToUpper(strings.TrimSpace(class))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown ISO 8608 class %q (want A..H)", dynamo.ErrConfiguration, class)
	}
	return g, nil
}

// Excitation holds the vertical road displacement (or rate) under each wheel.
type Excitation [dynamo.NumCorners]float64

func (e Excitation) At(c dynamo.Corner) float64 { return e[c] }

// MaxAbs returns the largest magnitude among the four corners.
func (e Excitation) MaxAbs() float64 {
	m := 0.0
	for _, v := range e {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
