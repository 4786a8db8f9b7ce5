package pneumo

import "github.com/san-kum/pneustab/internal/dynamo"

// ValveState holds the opening fractions of the two valves on one line.
type ValveState struct {
	Atmosphere float64 `json:"atmosphere" yaml:"atmosphere"`
	Tank       float64 `json:"tank" yaml:"tank"`
}

// ValveCommand is the valve state of all four lines for one tick.
type ValveCommand [NumLines]ValveState

// ControlDim is the length of the control vector carrying a ValveCommand:
// [atm0, tank0, atm1, tank1, ...].
const ControlDim = 2 * NumLines

// ValvesFromControl decodes a control vector; missing entries are closed.
func ValvesFromControl(u dynamo.Control) ValveCommand {
	var cmd ValveCommand
	for i := range cmd {
		if 2*i < len(u) {
			cmd[i].Atmosphere = clamp01(u[2*i])
		}
		if 2*i+1 < len(u) {
			cmd[i].Tank = clamp01(u[2*i+1])
		}
	}
	return cmd
}

// Control encodes the command as a control vector.
func (c ValveCommand) Control() dynamo.Control {
	u := make(dynamo.Control, ControlDim)
	for i, v := range c {
		u[2*i] = v.Atmosphere
		u[2*i+1] = v.Tank
	}
	return u
}

// AnyOpen reports whether at least one valve is not fully closed.
func (c ValveCommand) AnyOpen() bool {
	for _, v := range c {
		if v.Atmosphere > 0 || v.Tank > 0 {
			return true
		}
	}
	return false
}
