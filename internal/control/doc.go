// Package control provides valve policies for the pneumatic network.
//
// A policy implements [dynamo.Controller]: it reads the committed state at a
// tick boundary and returns the valve openings held constant for that tick,
// encoded as a [pneumo.ValveCommand] control vector:
//
//   - [Closed]: every valve shut (default)
//   - [Manual]: openings set from outside the loop
//   - [Leveling]: PID on heave, fills or vents all lines together
//   - [StateFeedback]: linear gains on the body state, e.g. [NewAntiRoll]
//
// # Usage
//
//	pol := control.NewLeveling(control.DefaultLevelingGains())
//	u := pol.Compute(x, t) // len(u) == pneumo.ControlDim
//
// Policies are owned by the physics driver and are not safe for concurrent use.
package control
