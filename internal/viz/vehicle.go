package viz

import (
	"math"

	"github.com/san-kum/pneustab/internal/dynamo"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/road"
)

// Motions of a few millimetres and milliradians are invisible at terminal
// resolution, so both views magnify them.
const (
	angleGain = 10.0
	heaveGain = 10.0
	viewSpan  = 2.0
	bodyLevel = 0.3
	wheelDrop = 0.6
)

// Geometry is the chassis outline drawn by the body views.
type Geometry struct {
	HalfTrack float64
	Front     float64
	Rear      float64
}

// GeometryFrom reads the outline from the corner attachments.
func GeometryFrom(b physics.BodyParams) Geometry {
	a := b.Attachments
	return Geometry{
		HalfTrack: math.Abs(a[dynamo.FrontLeft].Lateral),
		Front:     a[dynamo.FrontLeft].Longitudinal,
		Rear:      -a[dynamo.RearLeft].Longitudinal,
	}
}

// drawRear draws the body seen from behind: a beam tilted by roll over two
// wheels following the rear excitation.
func drawRear(c *Canvas, g Geometry, b physics.BodyState, ex road.Excitation) {
	c.Clear()
	v := NewViewport(c, viewSpan)
	z := bodyLevel + b.Heave*heaveGain
	drawBeam(v, g.HalfTrack, g.HalfTrack, z, b.Roll*angleGain)

	left := -wheelDrop + ex[dynamo.RearLeft]*heaveGain
	right := -wheelDrop + ex[dynamo.RearRight]*heaveGain
	drawWheel(v, -g.HalfTrack, left)
	drawWheel(v, g.HalfTrack, right)
	v.Line(-viewSpan, -wheelDrop-0.2, viewSpan, -wheelDrop-0.2)
}

// drawSide draws the body seen from the left, nose to the right.
func drawSide(c *Canvas, g Geometry, b physics.BodyState, ex road.Excitation) {
	c.Clear()
	v := NewViewport(c, viewSpan)
	z := bodyLevel + b.Heave*heaveGain
	drawBeam(v, g.Rear, g.Front, z, -b.Pitch*angleGain)

	drawWheel(v, -g.Rear, -wheelDrop+ex[dynamo.RearLeft]*heaveGain)
	drawWheel(v, g.Front, -wheelDrop+ex[dynamo.FrontLeft]*heaveGain)
	v.Line(-viewSpan, -wheelDrop-0.2, viewSpan, -wheelDrop-0.2)
}

// drawBeam draws a slab from -back to +fwd at height z, rotated by angle.
func drawBeam(v Viewport, back, fwd, z, angle float64) {
	const thickness = 0.25
	sin, cos := math.Sincos(angle)
	corner := func(x, y float64) (float64, float64) {
		return x*cos - y*sin, z + x*sin + y*cos
	}
	x0, y0 := corner(-back, 0)
	x1, y1 := corner(fwd, 0)
	x2, y2 := corner(fwd, thickness)
	x3, y3 := corner(-back, thickness)
	v.Line(x0, y0, x1, y1)
	v.Line(x1, y1, x2, y2)
	v.Line(x2, y2, x3, y3)
	v.Line(x3, y3, x0, y0)
}

func drawWheel(v Viewport, x, z float64) {
	const r = 0.2
	const segments = 12
	for i := 0; i < segments; i++ {
		a0 := 2 * math.Pi * float64(i) / segments
		a1 := 2 * math.Pi * float64(i+1) / segments
		v.Line(x+r*math.Cos(a0), z+r*math.Sin(a0), x+r*math.Cos(a1), z+r*math.Sin(a1))
	}
}
