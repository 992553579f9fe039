package pressure

import (
	"testing"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testField() *Field {
	samples := map[SampleKey]float64{
		{Direction: "N", DX: 0, DZ: 0}:     -4,
		{Direction: "N", DX: 100, DZ: 0}:   0,
		{Direction: "N", DX: 0, DZ: 100}:   4,
		{Direction: "N", DX: 100, DZ: 100}: 2,
		{Direction: "S", DX: 0, DZ: 0}:     10,
		{Direction: "S", DX: 100, DZ: 0}:   20,
	}
	return NewField(samples, "N", DefaultOptions())
}

func TestRangeFollowsDirection(t *testing.T) {
	f := testField()
	lo, hi := f.Range()
	assert.Equal(t, -4.0, lo)
	assert.Equal(t, 4.0, hi)

	f.SetDirection("S")
	lo, hi = f.Range()
	assert.Equal(t, 10.0, lo)
	assert.Equal(t, 20.0, hi)

	f.SetDirection("E")
	lo, hi = f.Range()
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	assert.Equal(t, []string{"N", "S"}, f.Directions())
}

func TestInterpolateColorEndpoints(t *testing.T) {
	f := testField()
	opts := DefaultOptions()

	assert.Equal(t, opts.MaxColor, f.InterpolateColor(4))
	assert.Equal(t, opts.MaxColor, f.InterpolateColor(100))
	assert.Equal(t, opts.MinColor, f.InterpolateColor(-4))
	assert.Equal(t, opts.MinColor, f.InterpolateColor(-5))

	mid := f.InterpolateColor(0)
	assert.InDelta(t, 0.5, mid.R, 1e-12)
	assert.InDelta(t, 0.5, mid.B, 1e-12)
	assert.InDelta(t, 0, mid.G, 1e-12)
}

func TestInterpolateColorDegenerateRange(t *testing.T) {
	opts := DefaultOptions()
	f := NewField(map[SampleKey]float64{
		{Direction: "N", DX: 0, DZ: 0}:   5,
		{Direction: "N", DX: 100, DZ: 0}: 5,
	}, "N", opts)

	for _, v := range []float64{4, 5, 6} {
		assert.Equal(t, opts.MinColor, f.InterpolateColor(v), "value %g", v)
	}

	// No samples under the active direction: misses read 0 and get MinColor.
	f.SetDirection("E")
	assert.Equal(t, opts.MinColor, f.InterpolateColor(0))
}

func TestInterpolateColorCustomEndpoints(t *testing.T) {
	lo, err := colorful.Hex("#00ff00")
	require.NoError(t, err)
	hi, err := colorful.Hex("#ffffff")
	require.NoError(t, err)
	f := NewField(map[SampleKey]float64{
		{Direction: "W", DX: 0, DZ: 0}: 1,
		{Direction: "W", DX: 1, DZ: 0}: 3,
	}, "W", Options{MinColor: lo, MaxColor: hi})

	c := f.InterpolateColor(1.5)
	assert.InDelta(t, 0.25, c.R, 1e-12)
	assert.InDelta(t, 1, c.G, 1e-12)
	assert.Equal(t, "#ffffff", f.InterpolateColor(3).Hex())
	assert.Equal(t, 1, f.Key(0.01), "zero KeyScale falls back to the default")
}

func TestRebuildPerCellColors(t *testing.T) {
	x, err := grid.NewAxisFromPositions([]float64{2, 3, 4})
	require.NoError(t, err)
	z, err := grid.NewAxisFromPositions([]float64{5, 6, 7})
	require.NoError(t, err)

	f := testField()
	cg := f.RebuildPerCellColors(x, z, 2, 5)
	require.Equal(t, 2, cg.NX)
	require.Equal(t, 2, cg.NZ)
	assert.Zero(t, cg.Misses)

	v, c := cg.At(0, 0)
	assert.Equal(t, -4.0, v)
	assert.Equal(t, DefaultOptions().MinColor, c)

	v, c = cg.At(0, 1)
	assert.Equal(t, 4.0, v)
	assert.Equal(t, DefaultOptions().MaxColor, c)

	v, _ = cg.At(1, 1)
	assert.Equal(t, 2.0, v)
}

func TestRebuildPerCellColorsMissDefaultsToZero(t *testing.T) {
	x, err := grid.NewAxisFromPositions([]float64{0, 1, 2, 3})
	require.NoError(t, err)
	z, err := grid.NewAxisFromPositions([]float64{0, 1})
	require.NoError(t, err)

	f := testField()
	cg := f.RebuildPerCellColors(x, z, 0, 0)
	require.Equal(t, 3, cg.NX)
	assert.Equal(t, 1, cg.Misses, "x offset 200 has no sample")

	v, c := cg.At(2, 0)
	assert.Zero(t, v)
	assert.Equal(t, f.InterpolateColor(0), c)
}

func TestCloneIsIndependent(t *testing.T) {
	f := testField()
	c := f.Clone()
	c.SetDirection("S")
	assert.Equal(t, "N", f.Direction())
	assert.Equal(t, f.Len(), c.Len())

	s := f.Samples()
	s[SampleKey{Direction: "N", DX: 9, DZ: 9}] = 99
	_, ok := f.Lookup(9, 9)
	assert.False(t, ok)
}
