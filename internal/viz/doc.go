// Package viz is the terminal dashboard for a live stabilizer session.
//
// The dashboard is a variable-rate consumer: every frame it takes the
// latest snapshot, if any, and never waits on the physics driver.
//
//   - [Model]: Bubble Tea model bound to a [Session]
//   - [Canvas]: Braille pixel canvas for the rear and side body views
//   - Theme selection with 3 built-in color schemes
//
// # Key Bindings
//
//	Space - Start/pause the driver
//	R     - Reset to the initial state
//	P     - Cycle valve policy
//	1-4   - Toggle the tank valve of line A1, B1, A2, B2 (manual)
//	5-8   - Toggle the atmosphere valve of the same lines (manual)
//	+/-   - Grow or shrink the receiver (variable volume only)
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
