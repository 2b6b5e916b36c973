package model

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Molecule identifies a state slot on a node or a global layer.
// Molecules carry no semantics beyond identity.
type Molecule string

// NewMolecule returns the molecule for name.
// Names are NFC normalized so that two spellings of the same visible
// name (precomposed vs combining marks) are the same molecule.
func NewMolecule(name string) Molecule {
	return Molecule(norm.NFC.String(name))
}

// String implements fmt.Stringer.
func (m Molecule) String() string {
	return string(m)
}

// NodeID identifies a node within an environment.
// IDs are assigned in creation order and never reused.
type NodeID int64

// ReactionID names a reaction within its node. Replicas of a node and
// spawned clones share their IDs; (ReactionID, NodeID) identifies an instance.
type ReactionID string

// DependencyKind tells the dependency graph how a key matches others.
type DependencyKind uint8

const (
	// DependsOnLocal is a molecule on one specific node.
	DependsOnLocal DependencyKind = iota + 1

	// DependsOnGlobal is a molecule on any node.
	// Matches every Local key for the same molecule.
	DependsOnGlobal

	// DependsOnLayer is a global layer keyed by molecule.
	DependsOnLayer

	// DependsOnEverything is the conservative sentinel.
	// A reader of Everything is invalidated by any write; a writer of
	// Everything invalidates every reaction.
	DependsOnEverything
)

// Dependency is one element of a reaction's read or write footprint.
// It is comparable and used directly as a map key.
type Dependency struct {
	Kind     DependencyKind
	Node     NodeID
	Molecule Molecule
}

// Everything is the sentinel dependency for reactions with global side
// effects (structural mutation, unknown footprints).
var Everything = Dependency{Kind: DependsOnEverything}

// Local returns the dependency on molecule m of node n.
func Local(n NodeID, m Molecule) Dependency {
	return Dependency{Kind: DependsOnLocal, Node: n, Molecule: m}
}

// Global returns the dependency on molecule m on every node.
func Global(m Molecule) Dependency {
	return Dependency{Kind: DependsOnGlobal, Molecule: m}
}

// LayerOf returns the dependency on the global layer m.
func LayerOf(m Molecule) Dependency {
	return Dependency{Kind: DependsOnLayer, Molecule: m}
}

// String implements fmt.Stringer.
func (d Dependency) String() string {
	switch d.Kind {
	case DependsOnLocal:
		return fmt.Sprintf("local(%d,%s)", d.Node, d.Molecule)
	case DependsOnGlobal:
		return fmt.Sprintf("global(%s)", d.Molecule)
	case DependsOnLayer:
		return fmt.Sprintf("layer(%s)", d.Molecule)
	case DependsOnEverything:
		return "everything"
	default:
		return fmt.Sprintf("unknown(%d)", d.Kind)
	}
}
