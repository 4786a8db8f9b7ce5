package control

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
)

// StateFeedback maps the body state linearly onto a Demand:
// demand = -K (x - target), with K a 3x6 gain over
// [heave, roll, pitch, heave rate, roll rate, pitch rate].
type StateFeedback struct {
	K      [3][physics.BodyDim]float64
	Target physics.BodyState
	Mixer  Mixer
	name   string
}

func NewStateFeedback(name string, k [3][physics.BodyDim]float64, target physics.BodyState) *StateFeedback {
	return &StateFeedback{K: k, Target: target, Mixer: DefaultMixer(), name: name}
}

// AntiRollGains act on roll angle and roll rate only.
type AntiRollGains struct {
	Angle float64 `yaml:"angle"`
	Rate  float64 `yaml:"rate"`
}

func DefaultAntiRollGains() AntiRollGains {
	return AntiRollGains{Angle: 30, Rate: 3}
}

// NewAntiRoll fills the low side and vents the high side in proportion to
// roll and roll rate.
func NewAntiRoll(g AntiRollGains) *StateFeedback {
	var k [3][physics.BodyDim]float64
	k[1][1] = g.Angle
	k[1][4] = g.Rate
	return NewStateFeedback(NameAntiRoll, k, physics.BodyState{})
}

func (s *StateFeedback) Name() string { return s.name }

func (s *StateFeedback) Demand(x dynamo.State) Demand {
	b, ok := bodyOf(x)
	if !ok {
		return Demand{}
	}
	t := s.Target
	e := [physics.BodyDim]float64{
		b.Heave - t.Heave, b.Roll - t.Roll, b.Pitch - t.Pitch,
		b.HeaveRate - t.HeaveRate, b.RollRate - t.RollRate, b.PitchRate - t.PitchRate,
	}
	var d [3]float64
	for i := range d {
		for j, v := range e {
			d[i] -= s.K[i][j] * v
		}
	}
	return Demand{Heave: d[0], Roll: d[1], Pitch: d[2]}
}

func (s *StateFeedback) Compute(x dynamo.State, t float64) dynamo.Control {
	return s.Mixer.Mix(s.Demand(x)).Control()
}

func (*StateFeedback) Reset() {}
