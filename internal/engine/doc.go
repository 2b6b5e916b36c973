// Package engine implements the simulation controller.
//
// The controller is a state machine
//
//	uninitialized -> ready -> running <-> paused -> terminated
//
// where running and paused may also move straight to terminated. Init builds
// the scheduler and the dependency graph from the environment; Play, Pause
// and Terminate are commands that may arrive from any goroutine; Run is the
// single worker that executes steps.
//
// ARCHITECTURE:
//
// Single-Writer Step Loop:
// Exactly one reaction runs at a time, on the Run goroutine. Reactions with
// equal next times are ordered by registration, never run concurrently.
//
// Step Body:
//  1. Apply structural changes buffered since the previous step
//  2. Peek the minimum of the scheduler; Infinity means exhausted
//  3. Check the step and time bounds; a hit terminates without executing
//  4. Set the current time to the reaction's time and execute it
//  5. Apply the structural changes the reaction caused
//  6. Reschedule the reaction and every reaction its writes invalidate
//  7. Count the step and notify observers
//
// Suspension Points:
// Commands take effect between steps. Terminate additionally cancels the
// context handed to actions, so a long action can return early. An action
// that ignores its context cannot be interrupted.
//
// Error Policy:
// Any error from a reaction terminates the simulation. The error is kept in
// Status().Err, returned from Run, and Finished is still delivered. Actions
// are not rolled back and failed steps are not retried.
//
// DETERMINISM:
// Given the same model and the same seeded random source, the sequence of
// (step, time, reaction) triples is identical across runs. Nothing in the
// loop depends on wall-clock time or map iteration order.
package engine
