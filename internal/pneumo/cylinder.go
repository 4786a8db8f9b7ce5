package pneumo

import (
	"fmt"
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
)

// Cylinder is a double-acting pneumatic cylinder. Piston position x runs from
// 0 (fully retracted, smallest head chamber) to Stroke.
type Cylinder struct {
	Bore       float64 `yaml:"bore"`
	Rod        float64 `yaml:"rod"`
	Stroke     float64 `yaml:"stroke"`
	DeadVolume float64 `yaml:"dead_volume"`
}

func (c Cylinder) Validate(field string) error {
	if err := dynamo.RequirePositive(field+".bore", c.Bore); err != nil {
		return err
	}
	if err := dynamo.RequirePositive(field+".rod", c.Rod); err != nil {
		return err
	}
	if c.Rod >= c.Bore {
		return dynamo.NewConfigError(field+".rod", c.Rod, fmt.Sprintf("must be smaller than bore %g", c.Bore))
	}
	if err := dynamo.RequirePositive(field+".stroke", c.Stroke); err != nil {
		return err
	}
	return dynamo.RequirePositive(field+".dead_volume", c.DeadVolume)
}

// HeadArea is the full piston face.
func (c Cylinder) HeadArea() float64 {
	return math.Pi * c.Bore * c.Bore / 4
}

// RodArea is the annular piston face on the rod side.
func (c Cylinder) RodArea() float64 {
	return math.Pi * (c.Bore*c.Bore - c.Rod*c.Rod) / 4
}

// NeutralPosition is the piston position where head and rod chamber volumes
// are equal: A_head x = A_rod (L - x).
func (c Cylinder) NeutralPosition() float64 {
	ah, ar := c.HeadArea(), c.RodArea()
	return ar * c.Stroke / (ah + ar)
}

// Volumes returns head and rod chamber volumes with the piston held inside
// its stroke.
func (c Cylinder) Volumes(x float64) (head, rod float64) {
	x = c.clampPosition(x)
	return c.DeadVolume + c.HeadArea()*x, c.DeadVolume + c.RodArea()*(c.Stroke-x)
}

// VolumeRates returns dV/dt of head and rod chambers. At an end stop the
// chambers stop changing.
func (c Cylinder) VolumeRates(x, v float64) (head, rod float64) {
	if (x <= 0 && v < 0) || (x >= c.Stroke && v > 0) {
		return 0, 0
	}
	return c.HeadArea() * v, -c.RodArea() * v
}

// Overtravel is how far x lies outside [0, Stroke]; negative below, positive above.
func (c Cylinder) Overtravel(x float64) float64 {
	switch {
	case x < 0:
		return x
	case x > c.Stroke:
		return x - c.Stroke
	}
	return 0
}

func (c Cylinder) clampPosition(x float64) float64 {
	return math.Min(math.Max(x, 0), c.Stroke)
}
