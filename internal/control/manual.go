package control

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
)

// Manual holds valve openings set by the operator until changed.
type Manual struct {
	cmd pneumo.ValveCommand
}

func NewManual() *Manual {
	return &Manual{}
}

func (*Manual) Name() string { return NameManual }

// SetValves replaces the held command. Openings are clamped to [0, 1].
func (m *Manual) SetValves(cmd pneumo.ValveCommand) {
	m.cmd = pneumo.ValvesFromControl(cmd.Control())
}

func (m *Manual) Valves() pneumo.ValveCommand { return m.cmd }

func (m *Manual) Compute(x dynamo.State, t float64) dynamo.Control {
	return m.cmd.Control()
}

// Reset closes every valve.
func (m *Manual) Reset() {
	m.cmd = pneumo.ValveCommand{}
}
