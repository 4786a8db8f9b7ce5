// Package dynamo provides core simulation primitives shared by the
// stabilizer engine.
//
// The package defines the fundamental interfaces and types:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: one-tick stepper reporting a [StepResult]
//   - [Controller]: valve policy producing a [Control] vector
//   - [Corner]: wheel/cylinder corner index
//
// # Errors
//
// Configuration problems surface as [*ConfigurationError]; non-physical gas
// states as [*GasStateError]; solver failures are values carried by
// [StepResult] and [*IntegrationFailure]; bound violations that keep the
// state finite are [*DivergenceWarning]. All of them support errors.Is
// against the package sentinels.
//
// # Thread Safety
//
// Nothing in this package holds shared mutable state. [State] values are
// plain slices; clone before handing them to another goroutine.
package dynamo
