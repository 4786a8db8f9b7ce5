package sim

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/road"
)

// Diagnostics are running aggregates published with every snapshot.
type Diagnostics struct {
	Energy         physics.EnergyBreakdown `json:"energy"`
	CumulativeFlow float64                 `json:"cumulative_flow"`
	ExhaustedMass  float64                 `json:"exhausted_mass"`
	Warnings       int                     `json:"warnings"`
	LastWarning    string                  `json:"last_warning,omitempty"`
	Retries        int                     `json:"retries"`
}

// Snapshot is a self-contained copy of one committed tick. It holds no
// references into the session and may be kept or discarded freely.
type Snapshot struct {
	Time       float64                           `json:"time"`
	Step       int                               `json:"step"`
	Method     string                            `json:"method,omitempty"`
	Body       physics.BodyState                 `json:"body"`
	Pistons    [dynamo.NumCorners]float64        `json:"pistons"`
	Lines      [pneumo.NumLines]pneumo.LineState `json:"lines"`
	Receiver   pneumo.ReceiverState              `json:"receiver"`
	Valves     pneumo.ValveCommand               `json:"valves"`
	Excitation road.Excitation                   `json:"excitation"`
	Diag       Diagnostics                       `json:"diagnostics"`
}

func (s *Session) snapshotLocked() Snapshot {
	sys := s.sys
	snap := Snapshot{
		Time:    s.t,
		Step:    s.step,
		Method:  s.method,
		Body:    physics.BodyFromState(s.x),
		Pistons: sys.PistonPositions(s.x, s.t),
		Valves:  pneumo.ValvesFromControl(s.u),
		Diag: Diagnostics{
			Energy:      sys.Energies(s.x, s.t),
			Warnings:    s.warnings,
			LastWarning: s.lastWarning,
			Retries:     s.retries,
		},
	}
	if sys.Road != nil {
		snap.Excitation = sys.Road.WheelExcitation(s.t)
	}
	if net := sys.Network; net != nil {
		snap.Lines = net.Lines()
		snap.Receiver = net.Receiver()
		snap.Diag.CumulativeFlow = net.CumulativeFlow()
		snap.Diag.ExhaustedMass = net.ExhaustedMass()
	}
	return snap
}
