package metrics

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
)

// Stability is the fraction of samples with roll and pitch inside the
// threshold angle.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < physics.BodyDim {
		return
	}
	s.samples++
	b := physics.BodyFromState(x)
	if math.Abs(b.Roll) > s.threshold || math.Abs(b.Pitch) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// PeakAngle tracks the largest absolute roll or pitch seen.
type PeakAngle struct {
	peak float64
}

func NewPeakAngle() *PeakAngle { return &PeakAngle{} }

func (p *PeakAngle) Name() string { return "peak_angle" }

func (p *PeakAngle) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < physics.BodyDim {
		return
	}
	b := physics.BodyFromState(x)
	p.peak = math.Max(p.peak, math.Max(math.Abs(b.Roll), math.Abs(b.Pitch)))
}

func (p *PeakAngle) Value() float64 { return p.peak }
func (p *PeakAngle) Reset()         { p.peak = 0 }

// RMSHeave is the root mean square heave displacement, a ride comfort proxy.
type RMSHeave struct {
	sumSq   float64
	samples int
}

func NewRMSHeave() *RMSHeave { return &RMSHeave{} }

func (r *RMSHeave) Name() string { return "rms_heave" }

func (r *RMSHeave) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < physics.BodyDim {
		return
	}
	z := physics.BodyFromState(x).Heave
	r.sumSq += z * z
	r.samples++
}

func (r *RMSHeave) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.samples))
}

func (r *RMSHeave) Reset() {
	r.sumSq = 0
	r.samples = 0
}
