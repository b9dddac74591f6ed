package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryDefaults_WithinBounds(t *testing.T) {
	v := FactoryDefaults()
	require.Len(t, v, len(Definitions()))
	assert.Empty(t, v.Violations())
	for _, d := range Definitions() {
		assert.Truef(t, d.Function.Valid(), "%s out of addressable range", d.Function)
	}
}

func TestFactoryDefaults_ReturnsIndependentCopies(t *testing.T) {
	a := FactoryDefaults()
	b := FactoryDefaults()
	a[MinFieldCurrent] = 1
	assert.Equal(t, 65, b[MinFieldCurrent])
}

func TestVector_ScaleRoundsToNearest(t *testing.T) {
	v := Vector{MinFieldCurrent: 65}
	v.Scale(MinFieldCurrent, 0.9)
	assert.Equal(t, 59, v[MinFieldCurrent]) // 58.5 rounds away from zero
	v.Scale(MinFieldCurrent, 1.5)
	assert.Equal(t, 89, v[MinFieldCurrent]) // 88.5
}

func TestVector_ClampReportsChangedFunctions(t *testing.T) {
	v := FactoryDefaults()
	v[MaxArmatureCurrent] = 999
	v[FieldArmatureRatio] = -4
	changed := v.Clamp()
	assert.ElementsMatch(t, []Function{MaxArmatureCurrent, FieldArmatureRatio}, changed)
	assert.Equal(t, 300, v[MaxArmatureCurrent])
	assert.Equal(t, 1, v[FieldArmatureRatio])
	assert.Empty(t, v.Violations())
}

func TestVector_ClampIgnoresUnconstrainedFunctions(t *testing.T) {
	v := Vector{Function(99): 5000}
	assert.Empty(t, v.Clamp())
	assert.Equal(t, 5000, v[Function(99)])
}

func TestVector_DiffAndEqual(t *testing.T) {
	base := FactoryDefaults()
	v := base.Clone()
	assert.True(t, v.Equal(base))
	v[TurfSpeedLimit] = 13
	assert.False(t, v.Equal(base))
	assert.Equal(t, []Change{{Function: TurfSpeedLimit, From: 12, To: 13}}, v.Diff(base))
}

func TestFunction_String(t *testing.T) {
	assert.Equal(t, "F.44", MPHScaling.String())
	assert.False(t, Function(0).Valid())
	assert.False(t, Function(129).Valid())
}

func TestLookup(t *testing.T) {
	d, ok := Lookup(BatteryVoltage)
	require.True(t, ok)
	assert.Equal(t, Bounds{Min: 48, Max: 100}, d.Bounds)
	_, ok = Lookup(Function(2))
	assert.False(t, ok)
	assert.Len(t, Constraints(), len(Definitions()))
}
