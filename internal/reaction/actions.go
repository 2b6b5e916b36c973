package reaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/kinetic/internal/model"
)

// ErrNegativeConcentration is returned when an action would drive a
// concentration below zero.
var ErrNegativeConcentration = errors.New("negative concentration")

// Change adds Delta to Molecule on the reaction's node.
type Change struct {
	Molecule model.Molecule
	Delta    float64
}

func (a Change) Inputs(node model.NodeID) []model.Dependency {
	return []model.Dependency{model.Local(node, a.Molecule)}
}

func (a Change) Outputs(node model.NodeID) []model.Dependency {
	return []model.Dependency{model.Local(node, a.Molecule)}
}

func (a Change) Execute(_ context.Context, _ model.Environment, node model.Node) error {
	return change(node, a.Molecule, a.Delta)
}

// Set overwrites Molecule on the reaction's node.
type Set struct {
	Molecule model.Molecule
	Value    float64
}

func (Set) Inputs(model.NodeID) []model.Dependency { return nil }

func (a Set) Outputs(node model.NodeID) []model.Dependency {
	return []model.Dependency{model.Local(node, a.Molecule)}
}

func (a Set) Execute(_ context.Context, _ model.Environment, node model.Node) error {
	if a.Value < 0 {
		return fmt.Errorf("%w: set %s to %g", ErrNegativeConcentration, a.Molecule, a.Value)
	}
	node.SetConcentration(a.Molecule, a.Value)
	return nil
}

// ChangeGlobal adds Delta to Molecule on every node of the environment.
type ChangeGlobal struct {
	Molecule model.Molecule
	Delta    float64
}

func (a ChangeGlobal) Inputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.Global(a.Molecule)}
}

func (a ChangeGlobal) Outputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.Global(a.Molecule)}
}

func (a ChangeGlobal) Execute(_ context.Context, env model.Environment, _ model.Node) error {
	for _, n := range env.Nodes() {
		if err := change(n, a.Molecule, a.Delta); err != nil {
			return err
		}
	}
	return nil
}

// RemoveNode deletes the reaction's node, and with it every reaction the
// node carries.
type RemoveNode struct{}

func (RemoveNode) Inputs(model.NodeID) []model.Dependency { return nil }

func (RemoveNode) Outputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.Everything}
}

func (RemoveNode) Execute(_ context.Context, env model.Environment, node model.Node) error {
	return env.RemoveNode(node.ID())
}

// NodeBuilder creates new structure next to parent. It must attach
// reactions through env.AddReaction.
type NodeBuilder func(ctx context.Context, env model.Environment, parent model.Node) error

// Spawn runs Build to add a node (or several) to the environment.
type Spawn struct {
	Build NodeBuilder
}

func (Spawn) Inputs(model.NodeID) []model.Dependency { return nil }

func (Spawn) Outputs(model.NodeID) []model.Dependency {
	return []model.Dependency{model.Everything}
}

func (a Spawn) Execute(ctx context.Context, env model.Environment, node model.Node) error {
	if a.Build == nil {
		return errors.New("spawn: no builder")
	}
	return a.Build(ctx, env, node)
}

// ErrReactionNotFound is returned by Retarget when the node carries no
// reaction with the requested ID.
var ErrReactionNotFound = errors.New("reaction not found")

// Retarget replaces the conditions of reaction Reaction on the same node.
// The retargeted reaction reads from its new conditions from then on.
type Retarget struct {
	Reaction   model.ReactionID
	Conditions []model.Condition
}

func (Retarget) Inputs(model.NodeID) []model.Dependency  { return nil }
func (Retarget) Outputs(model.NodeID) []model.Dependency { return nil }

func (a Retarget) Execute(_ context.Context, env model.Environment, node model.Node) error {
	for _, r := range node.Reactions() {
		target, ok := r.(*Reaction)
		if !ok || target.ID() != a.Reaction {
			continue
		}
		target.SetConditions(a.Conditions)
		return env.ChangeReaction(target)
	}
	return fmt.Errorf("retarget %s on node %d: %w", a.Reaction, node.ID(), ErrReactionNotFound)
}

func change(node model.Node, m model.Molecule, delta float64) error {
	v := node.Concentration(m) + delta
	if v < 0 {
		return fmt.Errorf("%w: %s on node %d would become %g", ErrNegativeConcentration, m, node.ID(), v)
	}
	node.SetConcentration(m, v)
	return nil
}
