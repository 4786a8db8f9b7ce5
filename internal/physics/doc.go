// Package physics assembles the rigid-body equations of the stabilized
// chassis.
//
// [Stabilizer] implements [dynamo.System] over the state vector
//
//	[heave, roll, pitch, dheave, droll, dpitch] ++ gas sub-state
//
// where the gas sub-state is laid out by package pneumo. Corner travel is
// heave + lateral*roll + longitudinal*pitch; the same mapping drives the
// piston positions and, transposed, projects corner forces back onto the
// body through [ProjectCornerForces].
//
// In [ModeSpring] the gas network is omitted and the body rides on the
// auxiliary springs alone, which makes the system linear and conservative
// when damping is zero:
//
//	p := physics.DefaultParams()
//	p.Suspension.Mode = physics.ModeSpring
//	s, err := physics.NewStabilizer(p, nil)
package physics
