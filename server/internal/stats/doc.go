// Package stats computes per-region summary statistics over a telemetry.Group:
// mean latency, linearly interpolated 95th-percentile latency, mean uptime,
// and the number of threshold breaches.
//
// Rounding is half-to-even on the exact binary value of each float (see Round).
package stats
