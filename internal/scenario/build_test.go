package scenario

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/engine"
	"github.com/roach88/kinetic/internal/model"
	"github.com/roach88/kinetic/internal/reaction"
)

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func mustLoad(t *testing.T, path string) *Scenario {
	t.Helper()
	sc, err := Load(path)
	require.NoError(t, err)
	return sc
}

func TestBuild_Decay(t *testing.T) {
	sc := mustLoad(t, "testdata/decay.yaml")

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)

	require.Equal(t, 1, world.NodeCount())
	n := world.Nodes()[0]
	assert.Equal(t, 20.0, n.Concentration("A"))
	require.Len(t, n.Reactions(), 1)

	r := n.Reactions()[0]
	assert.Equal(t, model.ReactionID("decay"), r.ID())
	assert.Equal(t, n.ID(), r.Node())
	both := []model.Dependency{model.Local(n.ID(), "A"), model.Local(n.ID(), "B")}
	assert.ElementsMatch(t, both, r.Inputs(), "change reads the molecule it writes")
	assert.ElementsMatch(t, both, r.Outputs())
}

func TestBuild_LayersAndPositions(t *testing.T) {
	sc := mustLoad(t, "testdata/clock.cue")

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)

	require.Equal(t, 3, world.NodeCount())
	for i, n := range world.Nodes() {
		assert.Equal(t, model.Position{X: float64(2 * i)}, n.Position())
	}

	tick := world.Nodes()[0].Reactions()[0].ID()
	for _, n := range world.Nodes()[1:] {
		assert.Equal(t, tick, n.Reactions()[0].ID(), "replicas share reaction IDs")
	}

	l, ok := world.Layer("light")
	require.True(t, ok)
	assert.Equal(t, 0.75, l.Value(model.Position{X: 100}))
}

func TestBuild_NoiseLayerDefaultsToScenarioSeed(t *testing.T) {
	mk := func(seed, noiseSeed int64) float64 {
		sc := validScenario()
		sc.Seed = seed
		sc.Layers = []LayerSpec{{Molecule: "n", Noise: &NoiseSpec{Seed: noiseSeed, Scale: 0.1}}}
		world, err := Build(sc, NewRand(sc.Seed))
		require.NoError(t, err)
		l, ok := world.Layer("n")
		require.True(t, ok)
		return l.Value(model.Position{X: 3.2, Y: 1.7})
	}

	assert.Equal(t, mk(5, 0), mk(9, 5), "zero noise seed should inherit scenario seed")
	v := mk(5, 0)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestBuild_SpawnClonesDeclaringNode(t *testing.T) {
	sc := mustLoad(t, "testdata/colony.yaml")

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)
	require.Equal(t, 3, world.NodeCount())

	mother := world.Nodes()[0]
	divide := mother.Reactions()[0]
	require.NoError(t, divide.Initialize(world, 0))

	fired, err := divide.Execute(context.Background(), world, 0)
	require.NoError(t, err)
	require.True(t, fired)

	require.Equal(t, 4, world.NodeCount())
	child := world.Nodes()[3]
	assert.Equal(t, model.Position{X: 1}, child.Position())
	assert.Equal(t, 1.0, child.Concentration("energy"))
	require.Len(t, child.Reactions(), 1)
	assert.Equal(t, model.ReactionID("divide"), child.Reactions()[0].ID())
	assert.Equal(t, child.ID(), child.Reactions()[0].Node())
	assert.NotSame(t, divide, child.Reactions()[0])
}

func TestBuild_ConditionAndActionKinds(t *testing.T) {
	sc := validScenario()
	sc.Layers = []LayerSpec{{Molecule: "L", Constant: new(float64)}}
	sc.Nodes[0].Reactions[0].Conditions = []ConditionSpec{
		{Type: CondAlways},
		{Type: CondTotalAtLeast, Molecule: "A", Amount: 1},
		{Type: CondLayerAbove, Layer: "L", Threshold: -1},
		{Type: CondMassAction, Molecule: "A", Order: 2},
	}
	sc.Nodes[0].Reactions[0].Actions = []ActionSpec{
		{Type: ActSet, Molecule: "B", Value: 3},
		{Type: ActChangeGlobal, Molecule: "C", Delta: 1},
	}

	world, err := Build(sc, NewRand(1))
	require.NoError(t, err)

	r, ok := world.Nodes()[0].Reactions()[0].(*reaction.Reaction)
	require.True(t, ok)
	require.NoError(t, r.Initialize(world, 0))
	assert.Equal(t, 0.0, r.Propensity(), "order 2 needs two molecules")

	fired, err := r.Execute(context.Background(), world, 0)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestBuild_RunsDeterministically(t *testing.T) {
	sc := mustLoad(t, "testdata/clock.cue")

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)

	e := engine.New(world, engine.WithBounds(sc.Bounds()))
	require.NoError(t, e.Init())
	require.NoError(t, e.Play())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	s := e.Status()
	assert.Equal(t, engine.ReasonTimeBound, s.Reason)
	assert.Equal(t, int64(15), s.Step)
	assert.Equal(t, model.Time(5), s.Time)
	for _, n := range world.Nodes() {
		assert.Equal(t, 5.0, n.Concentration("ticks"))
	}
}

func TestBuild_DiracStartDefaultsToInterval(t *testing.T) {
	sc, err := ParseYAML([]byte(`name: comb
terminate:
  steps: 5
nodes:
  - reactions:
      - id: tick
        time: {type: dirac, interval: 1}
`))
	require.NoError(t, err)
	require.NoError(t, Validate(sc))
	assert.Nil(t, sc.Nodes[0].Reactions[0].Time.Start)

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)

	var times []model.Time
	e := engine.New(world,
		engine.WithBounds(sc.Bounds()),
		engine.WithObservers(&engine.ObserverFuncs{
			OnStepDone: func(_ model.Environment, _ model.Reaction, t model.Time, _ int64) {
				times = append(times, t)
			},
		}))
	require.NoError(t, e.Init())
	require.NoError(t, e.Play())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Run(ctx))

	assert.Equal(t, []model.Time{1, 2, 3, 4, 5}, times)
	assert.Equal(t, engine.ReasonStepBound, e.Status().Reason)
}

func TestBuild_DiracExplicitZeroStart(t *testing.T) {
	sc := validScenario()
	zero := 0.0
	sc.Nodes[0].Reactions[0].Time = TimeSpec{Type: TimeDirac, Start: &zero, Interval: 2}

	world, err := Build(sc, NewRand(1))
	require.NoError(t, err)

	r := world.Nodes()[0].Reactions()[0]
	require.NoError(t, r.Initialize(world, 0))
	assert.Equal(t, model.Time(0), r.NextTime())
}

func TestBuild_Retarget(t *testing.T) {
	sc, err := ParseYAML([]byte(`name: switch
seed: 1
nodes:
  - contents: {A: 1, B: 1}
    reactions:
      - id: reader
        time: {type: exponential, rate: 1}
        conditions:
          - {type: mass_action, molecule: A, order: 1}
      - id: switch
        time: {type: trigger, at: 1}
        actions:
          - type: retarget
            reaction: reader
            conditions:
              - {type: mass_action, molecule: B, order: 1}
`))
	require.NoError(t, err)
	require.NoError(t, Validate(sc))

	world, err := Build(sc, NewRand(sc.Seed))
	require.NoError(t, err)
	n := world.Nodes()[0]
	reader, switcher := n.Reactions()[0], n.Reactions()[1]
	assert.Equal(t, []model.Dependency{model.Local(n.ID(), "A")}, reader.Inputs())

	require.NoError(t, switcher.Initialize(world, 0))
	_, err = switcher.Execute(context.Background(), world, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Dependency{model.Local(n.ID(), "B")}, reader.Inputs())
}
