package scenario

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/env"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/reaction"
	"github.com/roach88/kinetic/internal/timedist"
)

// NewRand returns the seeded generator used for a scenario run.
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s))
}

// Bounds returns the engine bounds declared by the scenario.
func (sc *Scenario) Bounds() engine.Bounds {
	return engine.Bounds{MaxSteps: sc.Terminate.Steps, EndTime: model.Time(sc.Terminate.Time)}
}

// Build creates the environment declared by sc. Every stochastic
// distribution draws from rng, so equal seeds build equal runs.
func Build(sc *Scenario, rng model.RandomSource) (*env.Environment, error) {
	world := env.New()
	b := &builder{rng: rng}

	for _, l := range sc.Layers {
		m := model.NewMolecule(l.Molecule)
		switch {
		case l.Constant != nil:
			world.AddLayer(m, env.ConstantLayer(*l.Constant))
		case l.Noise != nil:
			seed := l.Noise.Seed
			if seed == 0 {
				seed = sc.Seed
			}
			world.AddLayer(m, env.NewNoiseLayer(env.NoiseConfig{
				Seed:      seed,
				Scale:     l.Noise.Scale,
				Amplitude: l.Noise.Amplitude,
				Offset:    l.Noise.Offset,
				Octaves:   l.Noise.Octaves,
			}))
		default:
			return nil, fmt.Errorf("layer %q: no constant or noise", l.Molecule)
		}
	}

	for gi := range sc.Nodes {
		spec := &sc.Nodes[gi]
		for i := range spec.count() {
			pos := model.Position{X: spec.Position.X + float64(i)*spec.Spacing, Y: spec.Position.Y}
			if _, err := b.node(world, spec, pos); err != nil {
				return nil, fmt.Errorf("nodes[%d]: %w", gi, err)
			}
		}
	}
	return world, nil
}

type builder struct {
	rng model.RandomSource
}

// node adds one node of spec at pos with freshly built reactions.
func (b *builder) node(world model.Environment, spec *NodeSpec, pos model.Position) (model.Node, error) {
	contents := make(map[model.Molecule]float64, len(spec.Contents))
	for m, c := range spec.Contents {
		contents[model.NewMolecule(m)] = c
	}
	n := world.AddNode(pos, contents)

	for i := range spec.Reactions {
		r, err := b.reaction(spec, &spec.Reactions[i], n.ID())
		if err != nil {
			return nil, fmt.Errorf("reactions[%d]: %w", i, err)
		}
		if err := world.AddReaction(n.ID(), r); err != nil {
			return nil, fmt.Errorf("reactions[%d]: %w", i, err)
		}
	}
	return n, nil
}

func (b *builder) reaction(owner *NodeSpec, rs *ReactionSpec, node model.NodeID) (*reaction.Reaction, error) {
	td, err := b.timeDistribution(rs.Time)
	if err != nil {
		return nil, err
	}

	conds := make([]model.Condition, 0, len(rs.Conditions))
	for i, c := range rs.Conditions {
		cond, err := condition(c)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		conds = append(conds, cond)
	}

	actions := make([]model.Action, 0, len(rs.Actions))
	for i, a := range rs.Actions {
		act, err := b.action(owner, a)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		actions = append(actions, act)
	}

	return reaction.New(model.ReactionID(rs.ID), node, td, conds, actions), nil
}

func (b *builder) timeDistribution(t TimeSpec) (model.TimeDistribution, error) {
	switch t.Type {
	case TimeExponential:
		return timedist.NewExponential(t.Rate, b.rng), nil
	case TimeDirac:
		if t.Interval <= 0 {
			return nil, fmt.Errorf("dirac interval must be positive, got %g", t.Interval)
		}
		start := t.Interval
		if t.Start != nil {
			start = *t.Start
		}
		return timedist.NewDiracComb(model.Time(start), model.Time(t.Interval)), nil
	case TimeTrigger:
		return timedist.NewTrigger(model.Time(t.At)), nil
	default:
		return nil, fmt.Errorf("unknown time distribution %q", t.Type)
	}
}

func condition(c ConditionSpec) (model.Condition, error) {
	m := model.NewMolecule(c.Molecule)
	switch c.Type {
	case CondAlways:
		return reaction.Always{}, nil
	case CondAtLeast:
		return reaction.AtLeast{Molecule: m, Amount: c.Amount}, nil
	case CondMassAction:
		return reaction.MassAction{Molecule: m, Order: c.Order}, nil
	case CondTotalAtLeast:
		return reaction.TotalAtLeast{Molecule: m, Amount: c.Amount}, nil
	case CondLayerAbove:
		return reaction.LayerAbove{Layer: model.NewMolecule(c.Layer), Threshold: c.Threshold}, nil
	default:
		return nil, fmt.Errorf("unknown condition %q", c.Type)
	}
}

func (b *builder) action(owner *NodeSpec, a ActionSpec) (model.Action, error) {
	m := model.NewMolecule(a.Molecule)
	switch a.Type {
	case ActChange:
		return reaction.Change{Molecule: m, Delta: a.Delta}, nil
	case ActSet:
		return reaction.Set{Molecule: m, Value: a.Value}, nil
	case ActChangeGlobal:
		return reaction.ChangeGlobal{Molecule: m, Delta: a.Delta}, nil
	case ActRemoveNode:
		return reaction.RemoveNode{}, nil
	case ActSpawn:
		offset := a.Offset
		return reaction.Spawn{Build: func(_ context.Context, world model.Environment, parent model.Node) error {
			p := parent.Position()
			_, err := b.node(world, owner, model.Position{X: p.X + offset.X, Y: p.Y + offset.Y})
			return err
		}}, nil
	case ActRetarget:
		conds := make([]model.Condition, 0, len(a.Conditions))
		for _, cs := range a.Conditions {
			c, err := condition(cs)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return reaction.Retarget{Reaction: model.ReactionID(a.Reaction), Conditions: conds}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", a.Type)
	}
}
