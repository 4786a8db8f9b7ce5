package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

const (
	DefaultMass         = 1500.0
	DefaultRollInertia  = 2000.0
	DefaultPitchInertia = 3000.0
	DefaultGravity      = 9.81
	DefaultAngleLimit   = 8 * math.Pi / 180
)

// BodyDim is the length of the mechanical part of the state vector.
const BodyDim = 6

// Attachment locates a lever-cylinder assembly relative to the centre of
// mass. Lateral is positive to the left, Longitudinal positive forward.
type Attachment struct {
	Lateral      float64 `yaml:"lateral" json:"lateral"`
	Longitudinal float64 `yaml:"longitudinal" json:"longitudinal"`
}

type BodyParams struct {
	Mass         float64                       `yaml:"mass"`
	RollInertia  float64                       `yaml:"roll_inertia"`
	PitchInertia float64                       `yaml:"pitch_inertia"`
	Gravity      float64                       `yaml:"gravity"`
	Attachments  [dynamo.NumCorners]Attachment `yaml:"attachments"`
}

// DefaultBodyParams is a 1.6 m track, 2.7 m wheelbase chassis with the
// centre of mass 1.2 m behind the front axle.
func DefaultBodyParams() BodyParams {
	return BodyParams{
		Mass:         DefaultMass,
		RollInertia:  DefaultRollInertia,
		PitchInertia: DefaultPitchInertia,
		Gravity:      DefaultGravity,
		Attachments: [dynamo.NumCorners]Attachment{
			dynamo.FrontLeft:  {Lateral: 0.8, Longitudinal: 1.2},
			dynamo.FrontRight: {Lateral: -0.8, Longitudinal: 1.2},
			dynamo.RearLeft:   {Lateral: 0.8, Longitudinal: -1.5},
			dynamo.RearRight:  {Lateral: -0.8, Longitudinal: -1.5},
		},
	}
}

func (b BodyParams) Validate() error {
	if err := dynamo.RequirePositive("body.mass", b.Mass); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("body.roll_inertia", b.RollInertia); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("body.pitch_inertia", b.PitchInertia); err != nil {
		return err
	}
	if b.Gravity < 0 || math.IsNaN(b.Gravity) {
		return dynamo.NewConfigError("body.gravity", b.Gravity, "must not be negative")
	}
	if b.Wheelbase() <= 0 {
		return dynamo.NewConfigError("body.attachments", b.Wheelbase(), "front attachments must lie ahead of rear attachments")
	}
	return nil
}

// Wheelbase is the mean longitudinal distance between front and rear attachments.
func (b BodyParams) Wheelbase() float64 {
	front := (b.Attachments[dynamo.FrontLeft].Longitudinal + b.Attachments[dynamo.FrontRight].Longitudinal) / 2
	rear := (b.Attachments[dynamo.RearLeft].Longitudinal + b.Attachments[dynamo.RearRight].Longitudinal) / 2
	return front - rear
}

// singular reports the first non-positive inertial parameter.
func (b BodyParams) singular() error {
	switch {
	case !(b.Mass > 0):
		return fmt.Errorf("%w: mass = %g", dynamo.ErrSingularSystem, b.Mass)
	case !(b.RollInertia > 0):
		return fmt.Errorf("%w: roll inertia = %g", dynamo.ErrSingularSystem, b.RollInertia)
	case !(b.PitchInertia > 0):
		return fmt.Errorf("%w: pitch inertia = %g", dynamo.ErrSingularSystem, b.PitchInertia)
	}
	return nil
}

// BodyState is the mechanical part of the state vector.
type BodyState struct {
	Heave     float64 `json:"heave" yaml:"heave"`
	Roll      float64 `json:"roll" yaml:"roll"`
	Pitch     float64 `json:"pitch" yaml:"pitch"`
	HeaveRate float64 `json:"heave_rate" yaml:"heave_rate"`
	RollRate  float64 `json:"roll_rate" yaml:"roll_rate"`
	PitchRate float64 `json:"pitch_rate" yaml:"pitch_rate"`
}

func BodyFromState(x dynamo.State) BodyState {
	return BodyState{
		Heave: x[0], Roll: x[1], Pitch: x[2],
		HeaveRate: x[3], RollRate: x[4], PitchRate: x[5],
	}
}

func (b BodyState) put(x dynamo.State) {
	x[0], x[1], x[2] = b.Heave, b.Roll, b.Pitch
	x[3], x[4], x[5] = b.HeaveRate, b.RollRate, b.PitchRate
}
