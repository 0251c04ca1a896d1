// Package health runs the hysteresis-based degradation loop. On a fixed
// interval it takes one sample of the host performance metric and compares
// it against two thresholds: below the degrade threshold an Enabled,
// health-reactive module is marked degraded and told so exactly once; at or
// above the recovery threshold the flag clears and the module is told it
// recovered, again exactly once. The gap between the thresholds is what
// prevents flapping around a single boundary.
//
// The on-demand snapshot query lives here too but is independent of the
// loop: a self-reporting module can always be asked how it feels, with no
// effect on lifecycle state.
package health
