package env

import (
	"maps"
	"slices"

	"github.com/roach88/kinetic/internal/model"
)

// Node is the concrete model.Node.
type Node struct {
	id        model.NodeID
	pos       model.Position
	contents  map[model.Molecule]float64
	reactions []model.Reaction
}

var _ model.Node = (*Node)(nil)

func (n *Node) ID() model.NodeID {
	return n.id
}

func (n *Node) Position() model.Position {
	return n.pos
}

// Concentration returns 0 for molecules the node does not contain.
func (n *Node) Concentration(m model.Molecule) float64 {
	return n.contents[m]
}

func (n *Node) Contains(m model.Molecule) bool {
	_, ok := n.contents[m]
	return ok
}

func (n *Node) SetConcentration(m model.Molecule, v float64) {
	n.contents[m] = v
}

func (n *Node) RemoveConcentration(m model.Molecule) {
	delete(n.contents, m)
}

// Contents returns a copy of the node's concentrations.
func (n *Node) Contents() map[model.Molecule]float64 {
	return maps.Clone(n.contents)
}

// Reactions returns a copy of the node's reactions in insertion order.
func (n *Node) Reactions() []model.Reaction {
	return slices.Clone(n.reactions)
}
