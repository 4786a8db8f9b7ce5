package metrics

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Energy averages the stored energy of the observed states.
type Energy struct {
	name        string
	sys         dynamo.Hamiltonian
	samples     int
	totalEnergy float64
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{
		name: "energy",
		sys:  sys,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if e.sys == nil {
		return
	}
	e.totalEnergy += e.sys.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest excursion of stored energy away from the
// first observed value, relative to that value. A zero reference falls back
// to the absolute excursion.
type EnergyDrift struct {
	sys   dynamo.Hamiltonian
	ref   float64
	worst float64
	seen  bool
}

func NewEnergyDrift(sys dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{sys: sys}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if e.sys == nil {
		return
	}
	h := e.sys.Energy(x)
	if !e.seen {
		e.ref, e.seen = h, true
		return
	}
	d := math.Abs(h - e.ref)
	if e.ref != 0 {
		d /= math.Abs(e.ref)
	}
	if d > e.worst {
		e.worst = d
	}
}

func (e *EnergyDrift) Value() float64 { return e.worst }

func (e *EnergyDrift) Reset() {
	e.ref, e.worst, e.seen = 0, 0, false
}
