// Package store provides SQLite-backed durable storage for simulation traces.
//
// The store is an append-only log with:
//   - Runs: one row per simulation run (scenario, seed, bounds, outcome)
//   - Steps: the executed (step, time, reaction, node) records of a run
//
// # Critical Patterns
//
// Logical Ordering
//   - Runs are ordered by seq, steps by step number, NEVER by timestamps
//   - Times are stored as REAL, which round-trips float64 exactly
//
// Deterministic Query Results
//   - Every multi-row query has an ORDER BY
//   - Reading back a run yields records equal to the ones recorded live,
//     so stored digests can be recomputed and compared
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
