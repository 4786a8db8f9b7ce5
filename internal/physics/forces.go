package physics

import "github.com/san-kum/pneustab/internal/dynamo"

// Generalized holds a force/torque triple on the body coordinates.
type Generalized struct {
	Heave float64
	Roll  float64
	Pitch float64
}

// ComputeCylinderForce returns the pressure force across the piston.
// Positive extends the cylinder.
func ComputeCylinderForce(pHead, pRod, areaHead, areaRod float64) float64 {
	return pHead*areaHead - pRod*areaRod
}

// ComputeSpringForce is a linear restoring force about freeLength.
func ComputeSpringForce(displacement, freeLength, stiffness float64) float64 {
	return -stiffness * (displacement - freeLength)
}

// CornerDisplacement maps body coordinates to vertical travel at an
// attachment point using first-order small-angle coupling.
func CornerDisplacement(b BodyState, a Attachment) float64 {
	return b.Heave + a.Lateral*b.Roll + a.Longitudinal*b.Pitch
}

// CornerVelocity is the time derivative of CornerDisplacement.
func CornerVelocity(b BodyState, a Attachment) float64 {
	return b.HeaveRate + a.Lateral*b.RollRate + a.Longitudinal*b.PitchRate
}

// ProjectCornerForces projects vertical corner forces onto heave, roll and
// pitch. It is the transpose of CornerDisplacement.
func ProjectCornerForces(f [dynamo.NumCorners]float64, att [dynamo.NumCorners]Attachment) Generalized {
	var g Generalized
	for i, a := range att {
		g.Heave += f[i]
		g.Roll += a.Lateral * f[i]
		g.Pitch += a.Longitudinal * f[i]
	}
	return g
}
