// Package harness runs scenarios end to end and checks their outcome.
//
// A harness run builds the scenario's environment, drives a real engine to
// termination and records every step twice: once in memory through a
// trace.Recorder and once in a SQLite store through a store.Writer. The two
// copies must agree, which makes every harness run a store round-trip test
// as well.
//
// The result is then checked against the scenario's expect block and
// assertions:
//   - expect: final state, reason, step count, time, node count, digest
//   - trace_contains: a reaction fired at least once
//   - trace_order: reactions first fired in the given order
//   - trace_count: a reaction fired exactly N times
//   - final_state: a molecule on a node has a value at the end
//
// # Golden Traces
//
// RunWithGolden compares the canonical JSON of a run against
// testdata/golden/<name>.golden using goldie. To regenerate golden files:
//
//	go test ./internal/harness -update
package harness
