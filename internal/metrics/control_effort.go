package metrics

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/pneumo"
)

// ControlEffort is the mean summed valve opening per sample.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	for _, v := range pneumo.ValvesFromControl(u) {
		c.sum += v.Atmosphere + v.Tank
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// DutyCycle is the fraction of samples with any valve open.
type DutyCycle struct {
	open    int
	samples int
}

func NewDutyCycle() *DutyCycle { return &DutyCycle{} }

func (d *DutyCycle) Name() string { return "valve_duty" }

func (d *DutyCycle) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if pneumo.ValvesFromControl(u).AnyOpen() {
		d.open++
	}
	d.samples++
}

func (d *DutyCycle) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return float64(d.open) / float64(d.samples)
}

func (d *DutyCycle) Reset() {
	d.open = 0
	d.samples = 0
}
