package sim

import (
	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/road"
)

// SetValvePolicy replaces the valve policy at the next tick boundary.
func (s *Session) SetValvePolicy(p control.Policy) error {
	if p == nil {
		return dynamo.NewConfigError("policy", 0, "must not be nil")
	}
	return s.enqueue("policy", func(s *Session) error {
		p.Reset()
		s.policy = p
		return nil
	})
}

// SetValves holds the given openings from the next tick on, switching to
// manual control if another policy is active.
func (s *Session) SetValves(cmd pneumo.ValveCommand) error {
	return s.enqueue("valves", func(s *Session) error {
		m, ok := s.policy.(*control.Manual)
		if !ok {
			m = control.NewManual()
			s.policy = m
		}
		m.SetValves(cmd)
		return nil
	})
}

// SetRoad switches to a new road profile. The profile starts at the tick
// boundary where it is applied.
func (s *Session) SetRoad(spec road.Spec) error {
	if err := checkRoad(spec); err != nil {
		return err
	}
	return s.enqueue("road", func(s *Session) error {
		in, err := buildRoad(spec, s.sys.Body.Wheelbase())
		if err != nil {
			return err
		}
		s.roadSpec = spec
		s.roadStart = s.t
		s.sys.Road = shiftedRoad{in: in, t0: s.t}
		return nil
	})
}

// SetReceiverVolume resizes a variable-volume receiver at the next tick
// boundary.
func (s *Session) SetReceiverVolume(volume float64) error {
	if err := dynamo.RequirePositive("receiver.volume", volume); err != nil {
		return err
	}
	return s.enqueue("receiver_volume", func(s *Session) error {
		if s.sys.Network == nil {
			return dynamo.NewConfigError("receiver.volume", volume, "no gas network in spring mode")
		}
		return s.sys.Network.SetReceiverVolume(s.x[physics.BodyDim:], volume)
	})
}

// SetGeometry replaces the body mass properties and attachment points. The
// road profile is rebuilt for the new wheelbase.
func (s *Session) SetGeometry(body physics.BodyParams) error {
	if err := body.Validate(); err != nil {
		return err
	}
	return s.enqueue("geometry", func(s *Session) error {
		if body.Wheelbase() != s.sys.Body.Wheelbase() {
			in, err := buildRoad(s.roadSpec, body.Wheelbase())
			if err != nil {
				return err
			}
			s.sys.Road = shiftedRoad{in: in, t0: s.roadStart}
		}
		s.sys.Body = body
		return nil
	})
}
