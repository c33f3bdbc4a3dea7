// Package calibration defines the types shared by the calibration engine,
// the daemon, the client and the CLI:
//
//   - Mode: the dynamic-range mode a calibration targets
//   - Profile: desired register values (and profile file) for one mode
//   - Snapshot: the read-only configuration view handed to one sequence run
//   - RetryPolicy: how hard a verified write tries before giving up
//   - ReapplyReason: why a reapply was requested, for diagnostics only
//   - Result: the outcome of one run, published to event subscribers
package calibration
