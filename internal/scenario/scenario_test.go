package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kinetic/internal/model"
)

func TestLoad_YAML(t *testing.T) {
	sc, err := Load("testdata/decay.yaml")
	require.NoError(t, err)

	assert.Equal(t, "decay", sc.Name)
	assert.Equal(t, int64(42), sc.Seed)
	assert.Equal(t, int64(100), sc.Terminate.Steps)
	require.Len(t, sc.Nodes, 1)
	assert.Equal(t, map[string]float64{"A": 20}, sc.Nodes[0].Contents)

	r := sc.Nodes[0].Reactions[0]
	assert.Equal(t, "decay", r.ID)
	assert.Equal(t, TimeSpec{Type: TimeExponential, Rate: 0.5}, r.Time)
	assert.Equal(t, []ConditionSpec{{Type: CondMassAction, Molecule: "A"}}, r.Conditions)
	assert.Len(t, r.Actions, 2)

	require.NotNil(t, sc.Expect)
	assert.Equal(t, "exhausted", sc.Expect.Reason)
	require.NotNil(t, sc.Expect.Steps)
	assert.Equal(t, int64(20), *sc.Expect.Steps)
	assert.Nil(t, sc.Expect.Final)
}

func TestLoad_CUE(t *testing.T) {
	sc, err := Load("testdata/clock.cue")
	require.NoError(t, err)

	assert.Equal(t, "clock", sc.Name)
	assert.Equal(t, 5.0, sc.Terminate.Time)
	require.Len(t, sc.Layers, 1)
	require.NotNil(t, sc.Layers[0].Constant)
	assert.Equal(t, 0.75, *sc.Layers[0].Constant)

	require.Len(t, sc.Nodes, 1)
	n := sc.Nodes[0]
	assert.Equal(t, 3, n.Count)
	assert.Equal(t, 2.0, n.Spacing)
	one := 1.0
	assert.Equal(t, TimeSpec{Type: TimeDirac, Start: &one, Interval: 1}, n.Reactions[0].Time, "default interval from definition")

	require.NotNil(t, sc.Expect.Final)
	assert.Equal(t, 5.0, *sc.Expect.Final)
}

func TestLoad_CUEWithoutScenarioField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.cue")
	src := `name: "flat"
seed: 3
nodes: [{contents: {A: 1}}]
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	sc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flat", sc.Name)
	assert.Equal(t, int64(3), sc.Seed)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	badCUE := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(badCUE, []byte("name: {\n"), 0o644))
	incomplete := filepath.Join(dir, "incomplete.cue")
	require.NoError(t, os.WriteFile(incomplete, []byte("name: string\nnodes: []\n"), 0o644))
	txt := filepath.Join(dir, "scenario.txt")
	require.NoError(t, os.WriteFile(txt, []byte("name: x"), 0o644))

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), ErrCodeNotFound},
		{"unknown field", "testdata/typo.yaml", ErrCodeParseFailed},
		{"CUE syntax error", badCUE, ErrCodeParseFailed},
		{"non-concrete CUE", incomplete, ErrCodeBuildFailed},
		{"unsupported extension", txt, ErrCodeFormat},
		{"invalid scenario", "testdata/invalid.yaml", ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.code, ErrorCode(err), "error: %v", err)
		})
	}
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNotFound, Path: "a.yaml", Message: "scenario file not found"}
	assert.Equal(t, "a.yaml: E005: scenario file not found", err.Error())

	err = &LoadError{Code: ErrCodeGeneric, Message: "boom"}
	assert.Equal(t, "E001: boom", err.Error())
}

func TestFindFiles(t *testing.T) {
	files, err := FindFiles("testdata")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "clock.cue"),
		filepath.Join("testdata", "colony.yaml"),
		filepath.Join("testdata", "decay.yaml"),
		filepath.Join("testdata", "invalid.yaml"),
		filepath.Join("testdata", "typo.yaml"),
	}, files)

	single, err := FindFiles("testdata/decay.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/decay.yaml"}, single)

	_, err = FindFiles(t.TempDir())
	assert.Equal(t, ErrCodeNoFiles, ErrorCode(err))
}

func TestBounds(t *testing.T) {
	sc := &Scenario{Terminate: Terminate{Steps: 4, Time: 2.5}}
	b := sc.Bounds()
	assert.Equal(t, int64(4), b.MaxSteps)
	assert.Equal(t, model.Time(2.5), b.EndTime)
}
