// Package realtime holds the pieces that pace a fixed-step simulation
// against the wall clock.
//
//   - [TimingAccumulator] converts elapsed wall time into a number of fixed
//     steps, capped per frame so a stalled process does not spiral.
//   - [LatestOnly] is a one-slot mailbox: Put overwrites and counts drops,
//     Get never blocks.
//   - [PerformanceMetrics] records per-step wall time and reports measured
//     rate against the target.
package realtime
