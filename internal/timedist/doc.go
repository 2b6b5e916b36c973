// Package timedist implements the time distributions that drive reaction
// scheduling.
//
// Exponential is the stochastic distribution of the next-reaction method
// (Gibson & Bruck): when a dependency changes without the reaction firing,
// the remaining waiting time is rescaled by the ratio of old to new
// propensity instead of being redrawn. This keeps a single random draw per
// fired slot, which is what makes traces reproducible from a seed.
//
// DiracComb and Trigger are deterministic and ignore propensity.
package timedist
