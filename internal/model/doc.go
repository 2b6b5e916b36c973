// Package model defines the vocabulary shared by every part of the kinetic
// simulator: simulated time, molecules, dependency keys, and the contracts
// that reactions, conditions, actions, time distributions and environments
// implement.
//
// The package is a leaf: it imports nothing from the rest of the module.
// Concrete implementations live in timedist, reaction and env. The scheduler,
// dependency graph and engine only ever talk to these interfaces.
//
// DETERMINISM:
//
// Every ordered view exposed by these contracts must be deterministic:
//   - Environment.Nodes() is ordered by NodeID
//   - Node.Reactions() is in insertion order
//   - Reaction.Inputs()/Outputs() are in declaration order
//
// Identical seed + identical model must produce an identical trace. Any map
// iteration that leaks into scheduling order breaks that contract.
package model
