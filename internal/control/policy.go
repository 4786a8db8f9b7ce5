package control

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
)

// Policy chooses valve openings once per tick.
type Policy interface {
	dynamo.Controller
	Name() string
	Reset()
}

// Demand is a requested correction in generalized coordinates. Positive
// heave adds gas to every line; positive roll and pitch add gas to the
// left and front head chambers respectively.
type Demand struct {
	Heave float64
	Roll  float64
	Pitch float64
}

// Mixer allocates a Demand to the four lines. A line whose share is below
// Deadband stays closed; above it the tank valve opens for a positive share
// and the atmosphere valve for a negative one.
type Mixer struct {
	Deadband float64
	// MaxOpening caps either valve.
	MaxOpening float64
}

func DefaultMixer() Mixer {
	return Mixer{Deadband: 0.02, MaxOpening: 1}
}

func (m Mixer) Mix(d Demand) pneumo.ValveCommand {
	var cmd pneumo.ValveCommand
	for i, line := range pneumo.Topology {
		c := line.Head
		share := d.Heave + side(c.IsLeft())*d.Roll + side(c.IsFront())*d.Pitch
		if math.Abs(share) <= m.Deadband || math.IsNaN(share) {
			continue
		}
		open := math.Min(math.Abs(share)-m.Deadband, m.MaxOpening)
		if share > 0 {
			cmd[i].Tank = open
		} else {
			cmd[i].Atmosphere = open
		}
	}
	return cmd
}

func side(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

// Names of the built-in policies.
const (
	NameClosed   = "closed"
	NameManual   = "manual"
	NameLeveling = "leveling"
	NameAntiRoll = "anti_roll"
)

func bodyOf(x dynamo.State) (physics.BodyState, bool) {
	if len(x) < physics.BodyDim {
		return physics.BodyState{}, false
	}
	return physics.BodyFromState(x), true
}
