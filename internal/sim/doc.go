// Package sim drives the stabilizer model.
//
// [Session] is the real-time engine: a physics goroutine advances the state
// by a fixed dt as wall time passes (see [realtime.TimingAccumulator]) and
// publishes a [Snapshot] after every committed tick through a latest-only
// mailbox. Consumers poll [Session.LatestSnapshot] at their own rate and
// never block the physics loop. Setters are queued and take effect at the
// next tick boundary.
//
// [Simulator] runs the same tick contract offline, as fast as possible,
// and records the trajectory in a [dynamo.Result].
//
// A tick whose step fails is retried once as two half steps. If that also
// fails the session halts and keeps its last committed snapshot.
package sim
