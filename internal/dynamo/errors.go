package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrGasState is matched by every *GasStateError.
	ErrGasState = errors.New("dynamo: non-physical gas state")

	// ErrSingularSystem indicates a zero or negative mass/inertia or a
	// singular Newton matrix.
	ErrSingularSystem = errors.New("dynamo: singular system")

	// ErrNewtonDiverged indicates the implicit stage equations did not converge.
	ErrNewtonDiverged = errors.New("dynamo: newton iteration did not converge")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrSessionHalted indicates the physics driver stopped after an unrecoverable tick.
	ErrSessionHalted = errors.New("dynamo: session halted")

	// ErrSessionClosed is returned by lifecycle calls on a closed session.
	ErrSessionClosed = errors.New("dynamo: session closed")

	// ErrSessionRunning is returned by calls that need the driver stopped.
	ErrSessionRunning = errors.New("dynamo: session is running")

	// ErrDivergence is matched by every *DivergenceWarning.
	ErrDivergence = errors.New("dynamo: state exceeds physical bounds")
)

// ConfigurationError reports an invalid session parameter. It is raised
// before the physics loop starts and never recovered automatically.
type ConfigurationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dynamo: invalid configuration: %s = %g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigError is shorthand for building a *ConfigurationError.
func NewConfigError(field string, value float64, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// RequirePositive returns a *ConfigurationError when v is not strictly positive.
func RequirePositive(field string, v float64) error {
	if !(v > 0) {
		return NewConfigError(field, v, "must be positive")
	}
	return nil
}

// GasStateError reports a non-finite or non-physical gas volume state. It is
// fatal to the tick in which it occurs.
type GasStateError struct {
	Volume      string
	Mass        float64
	Pressure    float64
	Temperature float64
}

func (e *GasStateError) Error() string {
	return fmt.Sprintf("dynamo: non-physical gas state in %s (m=%g kg, p=%g Pa, T=%g K)",
		e.Volume, e.Mass, e.Pressure, e.Temperature)
}

func (e *GasStateError) Is(target error) bool { return target == ErrGasState }

// IntegrationFailure carries the solver context of a step that did not commit.
type IntegrationFailure struct {
	Method string
	Time   float64
	Dt     float64
	Err    error
}

func (e *IntegrationFailure) Error() string {
	return fmt.Sprintf("%s step at t=%.6f (dt=%g): %v", e.Method, e.Time, e.Dt, e.Err)
}

func (e *IntegrationFailure) Unwrap() error { return e.Err }

// DivergenceWarning reports a finite state outside configured bounds. It is
// recorded in diagnostics; the session continues.
type DivergenceWarning struct {
	Time     float64
	Quantity string
	Value    float64
	Limit    float64
}

func (e *DivergenceWarning) Error() string {
	return fmt.Sprintf("dynamo: %s = %.6g exceeds limit %.6g at t=%.4f", e.Quantity, e.Value, e.Limit, e.Time)
}

func (e *DivergenceWarning) Is(target error) bool { return target == ErrDivergence }

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
