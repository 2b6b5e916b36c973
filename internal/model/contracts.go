package model

import "context"

// RandomSource is the seedable generator stochastic distributions draw from.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
}

// TimeDistribution produces the next occurrence time of a reaction.
//
// Update is called with fired=true after the reaction consumed a slot
// (whether or not its conditions held), and with fired=false when a
// dependency changed and only the propensity needs refreshing.
type TimeDistribution interface {
	NextOccurrence() Time
	Rate() float64
	Update(now Time, fired bool, propensity float64)
}

// Condition is a predicate attached to a reaction.
//
// Check returns whether the condition holds and its propensity contribution.
// Contributions from all conditions are multiplied into the reaction's
// propensity. An error means the condition could not be evaluated at all
// (missing node, missing layer) and is fatal for the run.
type Condition interface {
	Inputs(node NodeID) []Dependency
	Check(env Environment, node Node) (valid bool, contribution float64, err error)
}

// Action is an effect attached to a reaction.
//
// Outputs must cover every element the action may write. Listing too much
// only costs extra recomputation; listing too little leaves stale schedules.
type Action interface {
	Inputs(node NodeID) []Dependency
	Outputs(node NodeID) []Dependency
	Execute(ctx context.Context, env Environment, node Node) error
}

// Reaction is a timed process on a node: a time distribution coupled with
// conditions and actions.
//
// NextTime is cached; it only changes through Initialize, Update and
// Execute. Reactions must be usable as map keys (pointer receivers).
type Reaction interface {
	ID() ReactionID
	Node() NodeID
	NextTime() Time
	Inputs() []Dependency
	Outputs() []Dependency

	// Initialize computes the first next time.
	Initialize(env Environment, now Time) error

	// Update recomputes the next time after a dependency changed.
	Update(env Environment, now Time) error

	// Execute runs the reaction at now and advances its own clock.
	// fired reports whether conditions held and actions ran.
	Execute(ctx context.Context, env Environment, now Time) (fired bool, err error)
}

// Position is an optional coordinate of a node, used to sample layers.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node carries concentrations and reactions.
// Concentration writes do not notify anyone: invalidation is driven by the
// write sets of executed reactions.
type Node interface {
	ID() NodeID
	Position() Position
	Concentration(m Molecule) float64
	Contains(m Molecule) bool
	SetConcentration(m Molecule, v float64)
	RemoveConcentration(m Molecule)
	Contents() map[Molecule]float64
	Reactions() []Reaction
}

// Layer is a read-only global field sampled at a position.
type Layer interface {
	Value(p Position) float64
}

// StructureListener is notified when the reaction set changes structurally.
// The engine implements it and keeps scheduler and dependency graph in sync.
type StructureListener interface {
	ReactionAdded(r Reaction)
	ReactionRemoved(r Reaction)
	ReactionChanged(r Reaction)
}

// Environment is the world the simulation runs in.
//
// The environment is exclusively owned by one simulation. Reactions, actions
// and observers receive it per call and must not retain it.
type Environment interface {
	Nodes() []Node
	Node(id NodeID) (Node, bool)
	NodeCount() int
	Layer(m Molecule) (Layer, bool)

	// AddNode creates a node. Reactions are attached separately with
	// AddReaction so that the listener sees each one.
	AddNode(pos Position, contents map[Molecule]float64) Node
	RemoveNode(id NodeID) error
	AddReaction(node NodeID, r Reaction) error
	RemoveReaction(r Reaction) error
	// ChangeReaction reports that an attached reaction's Inputs or Outputs
	// changed, so its dependencies are indexed again.
	ChangeReaction(r Reaction) error

	SetStructureListener(l StructureListener)
}
