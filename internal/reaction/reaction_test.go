package reaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/env"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/timedist"
)

const (
	molA = model.Molecule("A")
	molB = model.Molecule("B")
)

type failingCondition struct{}

func (failingCondition) Inputs(model.NodeID) []model.Dependency { return nil }

func (failingCondition) Check(model.Environment, model.Node) (bool, float64, error) {
	return false, 0, errors.New("boom")
}

type failingAction struct{}

func (failingAction) Inputs(model.NodeID) []model.Dependency  { return nil }
func (failingAction) Outputs(model.NodeID) []model.Dependency { return nil }

func (failingAction) Execute(context.Context, model.Environment, model.Node) error {
	return errors.New("boom")
}

func TestReaction_Footprint(t *testing.T) {
	r := New("r", 7, timedist.NewDiracComb(1, 1),
		[]model.Condition{AtLeast{Molecule: molA, Amount: 1}, LayerAbove{Layer: "L"}},
		[]model.Action{Change{Molecule: molA, Delta: -1}, Change{Molecule: molB, Delta: 1}},
	)

	assert.Equal(t, []model.Dependency{
		model.Local(7, molA),
		model.LayerOf("L"),
		model.Local(7, molB),
	}, r.Inputs())
	assert.Equal(t, []model.Dependency{
		model.Local(7, molA),
		model.Local(7, molB),
	}, r.Outputs())
}

func TestReaction_ExecuteAppliesActionsInOrder(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, map[model.Molecule]float64{molA: 2})
	r := New("r", n.ID(), timedist.NewDiracComb(1, 1),
		[]model.Condition{AtLeast{Molecule: molA, Amount: 1}},
		[]model.Action{Change{Molecule: molA, Delta: -1}, Set{Molecule: molB, Value: 5}, Change{Molecule: molB, Delta: 1}},
	)
	require.NoError(t, r.Initialize(e, 0))
	assert.Equal(t, model.Time(1), r.NextTime())

	fired, err := r.Execute(context.Background(), e, 1)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1.0, n.Concentration(molA))
	assert.Equal(t, 6.0, n.Concentration(molB))
	assert.Equal(t, model.Time(2), r.NextTime())
}

func TestReaction_UnsatisfiedIsNoOpButAdvances(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, nil)
	r := New("r", n.ID(), timedist.NewDiracComb(1, 1),
		[]model.Condition{AtLeast{Molecule: molA, Amount: 1}},
		[]model.Action{Set{Molecule: molB, Value: 1}},
	)
	require.NoError(t, r.Initialize(e, 0))

	fired, err := r.Execute(context.Background(), e, 1)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.False(t, n.Contains(molB))
	assert.Equal(t, model.Time(2), r.NextTime())
	assert.Zero(t, r.Propensity())
}

func TestReaction_ConditionError(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, nil)
	r := New("r", n.ID(), timedist.NewDiracComb(1, 1),
		[]model.Condition{Always{}, failingCondition{}}, nil)

	err := r.Initialize(e, 0)
	require.Error(t, err)
	var ce *model.ConditionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Index)
	assert.Equal(t, model.ReactionID("r"), ce.Reaction)

	_, err = r.Execute(context.Background(), e, 1)
	assert.True(t, model.IsConditionError(err))
}

func TestReaction_MissingNode(t *testing.T) {
	e := env.New()
	r := New("r", 42, timedist.NewDiracComb(1, 1), nil, nil)

	err := r.Update(e, 0)
	assert.ErrorIs(t, err, model.ErrNodeNotFound)
	assert.True(t, model.IsConditionError(err))
}

func TestReaction_ActionErrorStopsLaterActions(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, nil)
	r := New("r", n.ID(), timedist.NewDiracComb(1, 1), nil,
		[]model.Action{Set{Molecule: molA, Value: 1}, failingAction{}, Set{Molecule: molB, Value: 1}})
	require.NoError(t, r.Initialize(e, 0))

	fired, err := r.Execute(context.Background(), e, 1)
	assert.False(t, fired)
	var ae *model.ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 1, ae.Index)

	// No rollback for the first action, nothing from the third.
	assert.Equal(t, 1.0, n.Concentration(molA))
	assert.False(t, n.Contains(molB))
}

func TestReaction_PropensityDrivesExponential(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, map[model.Molecule]float64{molA: 4})
	td := timedist.NewExponential(1, constSource(0.5))
	r := New("r", n.ID(), td, []model.Condition{MassAction{Molecule: molA, Order: 2}}, nil)

	require.NoError(t, r.Initialize(e, 0))
	assert.Equal(t, 6.0, r.Propensity())
	assert.False(t, r.NextTime().IsInfinite())

	n.SetConcentration(molA, 1)
	require.NoError(t, r.Update(e, 0))
	assert.Zero(t, r.Propensity())
	assert.True(t, r.NextTime().IsInfinite())
}

func TestReaction_RemovesOwnNode(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, nil)
	r := New("r", n.ID(), timedist.NewDiracComb(1, 1), nil, []model.Action{RemoveNode{}})
	require.NoError(t, e.AddReaction(n.ID(), r))
	require.NoError(t, r.Initialize(e, 0))

	fired, err := r.Execute(context.Background(), e, 1)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 0, e.NodeCount())
	assert.Equal(t, []model.Dependency{model.Everything}, r.Outputs())
}

type changedListener struct {
	changed []model.ReactionID
}

func (*changedListener) ReactionAdded(model.Reaction)   {}
func (*changedListener) ReactionRemoved(model.Reaction) {}

func (l *changedListener) ReactionChanged(r model.Reaction) {
	l.changed = append(l.changed, r.ID())
}

func TestReaction_RetargetRewiresInputs(t *testing.T) {
	e := env.New()
	l := &changedListener{}
	e.SetStructureListener(l)
	n := e.NewNode(model.Position{}, map[model.Molecule]float64{molA: 1, molB: 1})

	reader := New("reader", n.ID(), timedist.NewDiracComb(5, 5), []model.Condition{AtLeast{Molecule: molA, Amount: 1}}, nil)
	switcher := New("switch", n.ID(), timedist.NewDiracComb(1, 1), nil,
		[]model.Action{Retarget{Reaction: "reader", Conditions: []model.Condition{AtLeast{Molecule: molB, Amount: 1}}}})
	require.NoError(t, e.AddReaction(n.ID(), reader))
	require.NoError(t, e.AddReaction(n.ID(), switcher))
	assert.Equal(t, []model.Dependency{model.Local(n.ID(), molA)}, reader.Inputs())
	assert.Empty(t, switcher.Outputs())

	require.NoError(t, switcher.Initialize(e, 0))
	fired, err := switcher.Execute(context.Background(), e, 1)
	require.NoError(t, err)
	assert.True(t, fired)

	assert.Equal(t, []model.Dependency{model.Local(n.ID(), molB)}, reader.Inputs())
	assert.Equal(t, []model.ReactionID{"reader"}, l.changed)
}

func TestReaction_RetargetUnknownReaction(t *testing.T) {
	e := env.New()
	n := e.NewNode(model.Position{}, nil)
	r := New("switch", n.ID(), timedist.NewDiracComb(1, 1), nil, []model.Action{Retarget{Reaction: "missing"}})
	require.NoError(t, e.AddReaction(n.ID(), r))
	require.NoError(t, r.Initialize(e, 0))

	_, err := r.Execute(context.Background(), e, 1)
	assert.ErrorIs(t, err, ErrReactionNotFound)
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }
