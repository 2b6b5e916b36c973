// Package reaction provides the concrete model.Reaction together with the
// built-in conditions and actions.
//
// A Reaction's propensity is the product of its conditions' contributions.
// Stochastic time distributions scale their rate by it, deterministic ones
// ignore it. Execute evaluates conditions in declaration order and, if all
// hold, applies actions in declaration order. Whether or not the actions ran,
// the time distribution is advanced as a fired slot.
package reaction

import (
	"context"
	"fmt"

	"github.com/roach88/kinetic/internal/model"
)

// Reaction couples a time distribution with conditions and actions on a node.
type Reaction struct {
	id         model.ReactionID
	node       model.NodeID
	td         model.TimeDistribution
	conditions []model.Condition
	actions    []model.Action
	inputs     []model.Dependency
	outputs    []model.Dependency
	propensity float64
}

var _ model.Reaction = (*Reaction)(nil)

// New builds a reaction bound to node. The footprint is computed here and
// again by SetConditions; conditions and actions must report a stable
// footprint in between.
func New(id model.ReactionID, node model.NodeID, td model.TimeDistribution, conditions []model.Condition, actions []model.Action) *Reaction {
	r := &Reaction{
		id:         id,
		node:       node,
		td:         td,
		conditions: append([]model.Condition(nil), conditions...),
		actions:    append([]model.Action(nil), actions...),
	}
	r.footprint()
	return r
}

// SetConditions replaces the conditions and recomputes the footprint. The
// caller reports the change through Environment.ChangeReaction so the new
// read set is indexed.
func (r *Reaction) SetConditions(conditions []model.Condition) {
	r.conditions = append([]model.Condition(nil), conditions...)
	r.footprint()
}

func (r *Reaction) footprint() {
	var in, out depSet
	for _, c := range r.conditions {
		in.add(c.Inputs(r.node)...)
	}
	for _, a := range r.actions {
		in.add(a.Inputs(r.node)...)
		out.add(a.Outputs(r.node)...)
	}
	r.inputs = in.list
	r.outputs = out.list
}

func (r *Reaction) ID() model.ReactionID {
	return r.id
}

func (r *Reaction) Node() model.NodeID {
	return r.node
}

// NextTime implements model.Reaction.
func (r *Reaction) NextTime() model.Time {
	return r.td.NextOccurrence()
}

// Inputs is the read set: condition reads plus action reads.
func (r *Reaction) Inputs() []model.Dependency {
	return r.inputs
}

// Outputs is the write set of the actions.
func (r *Reaction) Outputs() []model.Dependency {
	return r.outputs
}

// Propensity is the value computed by the last Initialize/Update/Execute.
func (r *Reaction) Propensity() float64 {
	return r.propensity
}

// TimeDistribution exposes the underlying distribution.
func (r *Reaction) TimeDistribution() model.TimeDistribution {
	return r.td
}

// Initialize implements model.Reaction.
func (r *Reaction) Initialize(env model.Environment, now model.Time) error {
	return r.Update(env, now)
}

// Update implements model.Reaction.
func (r *Reaction) Update(env model.Environment, now model.Time) error {
	node, ok := env.Node(r.node)
	if !ok {
		return &model.ConditionError{Reaction: r.id, Index: -1, Err: model.ErrNodeNotFound}
	}
	p, err := r.computePropensity(env, node)
	if err != nil {
		return err
	}
	r.propensity = p
	r.td.Update(now, false, p)
	return nil
}

// Execute implements model.Reaction.
func (r *Reaction) Execute(ctx context.Context, env model.Environment, now model.Time) (bool, error) {
	node, ok := env.Node(r.node)
	if !ok {
		return false, &model.ConditionError{Reaction: r.id, Index: -1, Err: model.ErrNodeNotFound}
	}

	fired := true
	for i, c := range r.conditions {
		valid, _, err := c.Check(env, node)
		if err != nil {
			return false, &model.ConditionError{Reaction: r.id, Index: i, Err: err}
		}
		if !valid {
			fired = false
			break
		}
	}

	if fired {
		for i, a := range r.actions {
			if err := a.Execute(ctx, env, node); err != nil {
				return false, &model.ActionError{Reaction: r.id, Index: i, Err: err}
			}
		}
	}

	// An action may have removed our own node; the reaction is then dead and
	// the engine drops it, but its clock still has to move.
	p := 0.0
	if node, ok = env.Node(r.node); ok {
		var err error
		if p, err = r.computePropensity(env, node); err != nil {
			return fired, err
		}
	}
	r.propensity = p
	r.td.Update(now, true, p)
	return fired, nil
}

func (r *Reaction) computePropensity(env model.Environment, node model.Node) (float64, error) {
	p := 1.0
	for i, c := range r.conditions {
		valid, contribution, err := c.Check(env, node)
		if err != nil {
			return 0, &model.ConditionError{Reaction: r.id, Index: i, Err: err}
		}
		if !valid {
			return 0, nil
		}
		p *= contribution
	}
	return p, nil
}

// String implements fmt.Stringer.
func (r *Reaction) String() string {
	return fmt.Sprintf("%s@%d", r.id, r.node)
}

// depSet is an insertion-ordered set of dependencies.
type depSet struct {
	seen map[model.Dependency]struct{}
	list []model.Dependency
}

func (s *depSet) add(deps ...model.Dependency) {
	if s.seen == nil {
		s.seen = make(map[model.Dependency]struct{})
	}
	for _, d := range deps {
		if _, ok := s.seen[d]; ok {
			continue
		}
		s.seen[d] = struct{}{}
		s.list = append(s.list, d)
	}
}
