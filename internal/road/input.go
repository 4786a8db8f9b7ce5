package road

import (
	"fmt"
	"math/rand"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// rateStep is the half-width of the central difference used for WheelVelocity.
const rateStep = 1e-4

// Input generates per-wheel vertical excitation as a function of simulation
// time. After Prime it is read-only and safe for concurrent use.
type Input struct {
	wheelbase float64

	spec       Spec
	configured bool
	primed     bool

	left, right  profile
	lateralDelay float64
}

// NewInput creates an unconfigured input for a chassis with the given
// front-to-rear axle distance.
func NewInput(wheelbase float64) (*Input, error) {
	if err := dynamo.RequirePositive("road.wheelbase", wheelbase); err != nil {
		return nil, err
	}
	return &Input{wheelbase: wheelbase}, nil
}

// Configure validates and stores a profile spec. It discards any previous
// precomputation; Prime must be called again.
func (in *Input) Configure(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	in.spec = spec
	in.configured = true
	in.primed = false
	in.left, in.right = nil, nil
	return nil
}

// Prime performs the one-time precomputation for the configured spec.
func (in *Input) Prime() error {
	if !in.configured {
		return fmt.Errorf("%w: road input primed before configure", dynamo.ErrConfiguration)
	}
	if err := dynamo.RequirePositive("road.velocity", in.spec.Velocity); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("road.duration", in.spec.Duration); err != nil {
		return err
	}

	length := in.spec.Velocity*in.spec.Duration + in.wheelbase + DefaultLeadIn
	left, right, err := buildTracks(in.spec, in.spec.Velocity, length, in.spec.Correlation)
	if err != nil {
		return err
	}

	in.left, in.right = left, right
	in.lateralDelay = 0
	if c := in.spec.Correlation; c != nil {
		in.lateralDelay = c.LateralDelay
	}
	in.primed = true
	return nil
}

func (in *Input) Spec() Spec         { return in.spec }
func (in *Input) Primed() bool       { return in.primed }
func (in *Input) Wheelbase() float64 { return in.wheelbase }

// AxleDelay is the time for a road feature to travel from the front to the
// rear axle.
func (in *Input) AxleDelay() float64 {
	if in.spec.Velocity <= 0 {
		return 0
	}
	return in.wheelbase / in.spec.Velocity
}

// WheelExcitation returns the road displacement under each wheel at time t.
// An input that has not been primed yields a flat road.
func (in *Input) WheelExcitation(t float64) Excitation {
	var e Excitation
	if !in.primed {
		return e
	}
	v := in.spec.Velocity
	front := v * t
	rear := front - in.wheelbase
	shift := v * in.lateralDelay

	e[dynamo.FrontLeft] = in.left.heightAt(front)
	e[dynamo.RearLeft] = in.left.heightAt(rear)
	e[dynamo.FrontRight] = in.right.heightAt(front - shift)
	e[dynamo.RearRight] = in.right.heightAt(rear - shift)
	return e
}

// WheelVelocity returns the vertical rate of the road under each wheel.
func (in *Input) WheelVelocity(t float64) Excitation {
	var rate Excitation
	if !in.primed {
		return rate
	}
	hi := in.WheelExcitation(t + rateStep)
	lo := in.WheelExcitation(t - rateStep)
	for i := range rate {
		rate[i] = (hi[i] - lo[i]) / (2 * rateStep)
	}
	return rate
}

func buildTracks(spec Spec, velocity, length float64, corr *Correlation) (profile, profile, error) {
	switch spec.Kind {
	case KindFlat, "":
		return flatProfile{}, flatProfile{}, nil

	case KindSine:
		s := spec
		s.Velocity = velocity
		p := sineProfile{amplitude: spec.Amplitude, wavelength: s.wavelength(), leadIn: DefaultLeadIn}
		return p, p, nil

	case KindPothole, KindSpeedBump:
		l := spec.Length
		if l == 0 {
			l = DefaultFeatureLength
		}
		h := spec.Height
		if spec.Kind == KindPothole && h > 0 {
			h = -h
		}
		if spec.Kind == KindSpeedBump && h < 0 {
			h = -h
		}
		p := featureProfile{position: spec.Position, length: l, height: h}
		return p, p, nil

	case KindISO8608:
		gd0, err := classRoughness(spec.Class)
		if err != nil {
			return nil, nil, err
		}
		spacing := spec.spacing()
		rng := rand.New(rand.NewSource(spec.Seed))
		left := synthesizeISO(gd0, length, spacing, rng)
		right := left
		if k := corr.coherence(); k < 1 {
			independent := synthesizeISO(gd0, length, spacing, rand.New(rand.NewSource(spec.Seed+1)))
			right = mixTracks(left, independent, k)
		}
		return sampledProfile{spacing: spacing, samples: left}, sampledProfile{spacing: spacing, samples: right}, nil

	case KindComposite:
		var left, right compositeProfile
		for i, c := range spec.Components {
			l, r, err := buildTracks(c, velocity, length, corr)
			if err != nil {
				return nil, nil, fmt.Errorf("component %d: %w", i, err)
			}
			left = append(left, l)
			right = append(right, r)
		}
		return left, right, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown road kind %q", dynamo.ErrConfiguration, spec.Kind)
}
