package control

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
)

// PID takes the derivative on the measurement, so a setpoint change does
// not kick the output.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	integral float64
	prevMeas float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

// Update returns the controller output for a measurement taken at t.
func (p *PID) Update(measured, t float64) float64 {
	err := p.Target - measured

	if p.first {
		p.prevMeas = measured
		p.prevT = t
		p.first = false
		return p.Kp * err
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := -(measured - p.prevMeas) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevMeas = measured
		p.prevT = t

		return u
	}
	return p.Kp * err
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevMeas = 0
	p.first = true
}

// LevelingGains tune the ride-height loop. Target is the heave setpoint in
// metres; the output is in valve-opening units.
type LevelingGains struct {
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
}

func DefaultLevelingGains() LevelingGains {
	return LevelingGains{Kp: 40, Ki: 5, Kd: 2}
}

// Leveling holds ride height by filling every line from the receiver when
// the body sits low and venting when it sits high.
type Leveling struct {
	PID   *PID
	Mixer Mixer
}

func NewLeveling(g LevelingGains) *Leveling {
	return &Leveling{
		PID:   NewPID(g.Kp, g.Ki, g.Kd, g.Target),
		Mixer: DefaultMixer(),
	}
}

func (*Leveling) Name() string { return NameLeveling }

func (l *Leveling) Compute(x dynamo.State, t float64) dynamo.Control {
	b, ok := bodyOf(x)
	if !ok {
		return pneumo.ValveCommand{}.Control()
	}
	u := l.PID.Update(b.Heave, t)
	return l.Mixer.Mix(Demand{Heave: u}).Control()
}

func (l *Leveling) Reset() { l.PID.Reset() }
