// Package env provides the in-memory environment the engine simulates:
// nodes holding concentrations and reactions, plus read-only global layers.
//
// The environment is single-writer. It is owned by one engine and touched
// only from the engine's Run goroutine (reactions, actions and observers are
// all invoked from there), so it carries no locks.
//
// Structural changes (nodes or reactions added, removed or rewired) are reported to
// the registered model.StructureListener as they happen. The engine buffers
// those notifications and applies them to the scheduler and dependency graph
// right after the executing reaction returns.
package env

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/kinetic/internal/model"
)

// Environment is the concrete model.Environment.
type Environment struct {
	nodes    map[model.NodeID]*Node
	order    []model.NodeID // ascending; IDs are assigned monotonically
	nextID   model.NodeID
	layers   map[model.Molecule]model.Layer
	listener model.StructureListener
}

var _ model.Environment = (*Environment)(nil)

// New returns an empty environment.
func New() *Environment {
	return &Environment{
		nodes:  make(map[model.NodeID]*Node),
		layers: make(map[model.Molecule]model.Layer),
	}
}

// SetStructureListener implements model.Environment.
// Passing nil detaches the current listener.
func (e *Environment) SetStructureListener(l model.StructureListener) {
	e.listener = l
}

// Nodes implements model.Environment. Nodes are returned in ID order.
func (e *Environment) Nodes() []model.Node {
	out := make([]model.Node, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.nodes[id])
	}
	return out
}

// Node implements model.Environment.
func (e *Environment) Node(id model.NodeID) (model.Node, bool) {
	n, ok := e.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// NodeCount implements model.Environment.
func (e *Environment) NodeCount() int {
	return len(e.order)
}

// ReactionCount returns the number of reactions across all nodes.
func (e *Environment) ReactionCount() int {
	total := 0
	for _, n := range e.nodes {
		total += len(n.reactions)
	}
	return total
}

// AddLayer registers a global layer. Replaces any layer with the same key.
func (e *Environment) AddLayer(m model.Molecule, l model.Layer) {
	e.layers[m] = l
}

// Layer implements model.Environment.
func (e *Environment) Layer(m model.Molecule) (model.Layer, bool) {
	l, ok := e.layers[m]
	return l, ok
}

// AddNode implements model.Environment.
func (e *Environment) AddNode(pos model.Position, contents map[model.Molecule]float64) model.Node {
	return e.addNode(pos, contents)
}

// NewNode is AddNode returning the concrete type, for builders and tests.
func (e *Environment) NewNode(pos model.Position, contents map[model.Molecule]float64) *Node {
	return e.addNode(pos, contents)
}

func (e *Environment) addNode(pos model.Position, contents map[model.Molecule]float64) *Node {
	e.nextID++
	n := &Node{
		id:       e.nextID,
		pos:      pos,
		contents: make(map[model.Molecule]float64, len(contents)),
	}
	maps.Copy(n.contents, contents)
	e.nodes[n.id] = n
	e.order = append(e.order, n.id)
	return n
}

// RemoveNode implements model.Environment.
// Every reaction of the node is reported as removed, in insertion order.
func (e *Environment) RemoveNode(id model.NodeID) error {
	n, ok := e.nodes[id]
	if !ok {
		return fmt.Errorf("remove node %d: %w", id, model.ErrNodeNotFound)
	}

	delete(e.nodes, id)
	if i, found := slices.BinarySearch(e.order, id); found {
		e.order = slices.Delete(e.order, i, i+1)
	}

	reactions := n.reactions
	n.reactions = nil
	for _, r := range reactions {
		if e.listener != nil {
			e.listener.ReactionRemoved(r)
		}
	}
	return nil
}

// AddReaction implements model.Environment.
// The reaction must already be bound to node.
func (e *Environment) AddReaction(node model.NodeID, r model.Reaction) error {
	n, ok := e.nodes[node]
	if !ok {
		return fmt.Errorf("add reaction %s: node %d: %w", r.ID(), node, model.ErrNodeNotFound)
	}
	if r.Node() != node {
		return fmt.Errorf("add reaction %s: bound to node %d, not %d", r.ID(), r.Node(), node)
	}

	n.reactions = append(n.reactions, r)
	if e.listener != nil {
		e.listener.ReactionAdded(r)
	}
	return nil
}

// RemoveReaction implements model.Environment.
func (e *Environment) RemoveReaction(r model.Reaction) error {
	n, ok := e.nodes[r.Node()]
	if !ok {
		return fmt.Errorf("remove reaction %s: node %d: %w", r.ID(), r.Node(), model.ErrNodeNotFound)
	}

	i := slices.Index(n.reactions, r)
	if i < 0 {
		return fmt.Errorf("remove reaction %s: not attached to node %d", r.ID(), r.Node())
	}
	n.reactions = slices.Delete(n.reactions, i, i+1)

	if e.listener != nil {
		e.listener.ReactionRemoved(r)
	}
	return nil
}

// ChangeReaction implements model.Environment.
func (e *Environment) ChangeReaction(r model.Reaction) error {
	n, ok := e.nodes[r.Node()]
	if !ok {
		return fmt.Errorf("change reaction %s: node %d: %w", r.ID(), r.Node(), model.ErrNodeNotFound)
	}
	if !slices.Contains(n.reactions, r) {
		return fmt.Errorf("change reaction %s: not attached to node %d", r.ID(), r.Node())
	}
	if e.listener != nil {
		e.listener.ReactionChanged(r)
	}
	return nil
}

// Snapshot copies every node's concentrations, keyed by node ID.
func (e *Environment) Snapshot() map[model.NodeID]map[model.Molecule]float64 {
	out := make(map[model.NodeID]map[model.Molecule]float64, len(e.nodes))
	for id, n := range e.nodes {
		out[id] = n.Contents()
	}
	return out
}
