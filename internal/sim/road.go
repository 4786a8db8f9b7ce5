package sim

import (
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/road"
)

// shiftedRoad starts a road profile at session time t0.
type shiftedRoad struct {
	in *road.Input
	t0 float64
}

func (r shiftedRoad) WheelExcitation(t float64) road.Excitation {
	return r.in.WheelExcitation(t - r.t0)
}

func (r shiftedRoad) WheelVelocity(t float64) road.Excitation {
	return r.in.WheelVelocity(t - r.t0)
}

func buildRoad(spec road.Spec, wheelbase float64) (*road.Input, error) {
	in, err := road.NewInput(wheelbase)
	if err != nil {
		return nil, err
	}
	if err := in.Configure(spec); err != nil {
		return nil, err
	}
	if err := in.Prime(); err != nil {
		return nil, err
	}
	return in, nil
}

// checkRoad applies the checks Prime would make without doing the work.
func checkRoad(spec road.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("road.velocity", spec.Velocity); err != nil {
		return err
	}
	return dynamo.RequirePositive("road.duration", spec.Duration)
}
