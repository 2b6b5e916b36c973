package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTime_Order(t *testing.T) {
	assert.True(t, Time(1).Before(2))
	assert.True(t, Time(2).After(1))
	assert.Equal(t, 0, Time(3).Compare(3))
	assert.Equal(t, -1, Zero.Compare(Infinity))
	assert.Equal(t, 1, Infinity.Compare(Time(1e300)))
}

func TestTime_Infinity(t *testing.T) {
	assert.True(t, Infinity.IsInfinite())
	assert.False(t, Time(1e300).IsInfinite())
	assert.True(t, Infinity.Plus(5).IsInfinite())
}

func TestTime_StringRoundTrip(t *testing.T) {
	for _, v := range []Time{0, 1, 1.5, 0.1, 1.0 / 3.0, 12345.678, Infinity} {
		parsed, err := ParseTime(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed, "round trip %s", v)
	}
	assert.Equal(t, "1", Time(1).String())
	assert.Equal(t, "2.5", Time(2.5).String())
	assert.Equal(t, "+Inf", Infinity.String())
}

func TestNewMolecule_NFC(t *testing.T) {
	// U+00E9 vs "e" + U+0301 COMBINING ACUTE ACCENT
	precomposed := NewMolecule("caf\u00e9")
	combining := NewMolecule("cafe\u0301")
	assert.Equal(t, precomposed, combining)
}

func TestDependency_Keys(t *testing.T) {
	a := NewMolecule("A")
	assert.Equal(t, Local(1, a), Local(1, a))
	assert.NotEqual(t, Local(1, a), Local(2, a))
	assert.NotEqual(t, Local(1, a), Global(a))
	assert.Equal(t, "local(1,A)", Local(1, a).String())
	assert.Equal(t, "global(A)", Global(a).String())
	assert.Equal(t, "layer(A)", LayerOf(a).String())
	assert.Equal(t, "everything", Everything.String())

	set := map[Dependency]bool{Local(1, a): true}
	assert.True(t, set[Local(1, a)])
}

func TestErrors_Unwrap(t *testing.T) {
	base := errors.New("boom")

	var err error = &ActionError{Reaction: "r1", Index: 2, Err: base}
	wrapped := fmt.Errorf("step: %w", err)
	assert.True(t, IsActionError(wrapped))
	assert.False(t, IsConditionError(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "reaction r1: action 2: boom", err.Error())

	err = &ConditionError{Reaction: "r2", Index: 0, Err: ErrLayerNotFound}
	assert.True(t, IsConditionError(err))
	assert.ErrorIs(t, err, ErrLayerNotFound)
}
