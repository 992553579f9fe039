package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSet(t *testing.T, opts Options) *AxisSet {
	t.Helper()
	base, err := NewBaseGrid(Vec3{X: 10, Y: 4, Z: 10}, Vec3{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	s, err := NewAxisSet(base, opts)
	require.NoError(t, err)
	return s
}

func noPadding() Options {
	o := DefaultOptions()
	o.PaddingAxes = nil
	return o
}

func TestNewBaseGrid(t *testing.T) {
	base, err := NewBaseGrid(Vec3{X: 10, Y: 4, Z: 6}, Vec3{X: 1, Y: 0.5, Z: 2})
	require.NoError(t, err)
	assert.Equal(t, 11, base[AxisX].Len())
	assert.Equal(t, 9, base[AxisY].Len())
	assert.Equal(t, 4, base[AxisZ].Len())

	tiny, err := NewBaseGrid(Vec3{X: 0.1, Y: 0.1, Z: 0.1}, Vec3{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, tiny[AxisX].Len())

	_, err = NewBaseGrid(Vec3{X: 10, Y: 0, Z: 10}, Vec3{X: 1, Y: 1, Z: 1})
	assert.Error(t, err)
}

func TestAddGridPadding(t *testing.T) {
	s := newTestSet(t, DefaultOptions())
	assert.Equal(t, [3]int{15, 5, 15}, s.Dims())

	x := s.Working(AxisX).Positions()
	assert.InDelta(t, 0.4, x[1], 1e-12)
	assert.InDelta(t, 0.8, x[2], 1e-12)
	assert.InDelta(t, 9.2, x[len(x)-3], 1e-12)
	assert.InDelta(t, 9.6, x[len(x)-2], 1e-12)

	// Padding never reaches the base grid.
	assert.Equal(t, 11, s.Base(AxisX).Len())
	assert.Equal(t, 5, s.Working(AxisY).Len())
	for _, a := range Axes {
		assert.NoError(t, s.Working(a).Validate(1e-9))
	}
}

func TestAddGridPaddingDescending(t *testing.T) {
	var base [3]GridAxis
	var err error
	base[AxisX], err = NewUniformAxis(5, -1)
	require.NoError(t, err)
	base[AxisY], err = NewUniformAxis(3, 1)
	require.NoError(t, err)
	base[AxisZ], err = NewUniformAxis(3, 1)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.PaddingAxes = []Axis{AxisX}
	s, err := NewAxisSet(base, opts)
	require.NoError(t, err)

	x := s.Working(AxisX).Positions()
	require.Len(t, x, 9)
	assert.InDelta(t, -0.4, x[1], 1e-12)
	assert.InDelta(t, -3.6, x[len(x)-2], 1e-12)
	assert.True(t, s.Working(AxisX).Descending())
}

func TestRebuildWorkingGridIdempotent(t *testing.T) {
	s := newTestSet(t, DefaultOptions())
	_, err := s.AddExtraPoint(AxisX, 3.5)
	require.NoError(t, err)
	_, err = s.AddExtraPoint(AxisY, 1.25)
	require.NoError(t, err)

	require.NoError(t, s.RebuildWorkingGrid())
	first := [3][]GridLine{}
	for _, a := range Axes {
		first[a] = s.Working(a).Lines()
	}
	require.NoError(t, s.RebuildWorkingGrid())
	for _, a := range Axes {
		if diff := cmp.Diff(first[a], s.Working(a).Lines()); diff != "" {
			t.Errorf("axis %s changed on second rebuild (-first +second):\n%s", a, diff)
		}
	}
	assert.True(t, s.Working(AxisX).HasPoint(3.5))
}

func TestAddExtraPoint(t *testing.T) {
	s := newTestSet(t, noPadding())

	r, err := s.AddExtraPoint(AxisX, 3.5)
	require.NoError(t, err)
	assert.Equal(t, 12, s.Dims()[AxisX])
	assert.Equal(t, 3, r.Apply(AxisX, 3))
	assert.Equal(t, 5, r.Apply(AxisX, 4))
	assert.Equal(t, 11, r.Apply(AxisX, 10))
	assert.Equal(t, 4, r.Apply(AxisZ, 4), "other axes are untouched")

	// Duplicates within tolerance are neither recorded nor inserted.
	r, err = s.AddExtraPoint(AxisX, 3.5+1e-12)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Len(t, s.Extras(), 1)
	assert.Equal(t, 12, s.Dims()[AxisX])

	// Rejected points are not recorded.
	_, err = s.AddExtraPoint(AxisX, 42)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Len(t, s.Extras(), 1)
}

func TestInsertPointTagsAxis(t *testing.T) {
	s := newTestSet(t, noPadding())
	_, err := s.InsertPoint(AxisZ, -1)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, AxisZ, ve.Axis)

	r, err := s.InsertPoint(AxisZ, 2)
	require.NoError(t, err)
	assert.Nil(t, r, "existing value is a no-op")
}

func TestRemoveWorkingPoint(t *testing.T) {
	s := newTestSet(t, DefaultOptions())
	_, err := s.AddExtraPoint(AxisX, 3.5)
	require.NoError(t, err)
	before := s.Dims()

	r, err := s.RemoveWorkingPoint(AxisX, 3.5)
	require.NoError(t, err)
	assert.Equal(t, before[AxisX]-1, s.Dims()[AxisX])
	assert.Empty(t, s.Extras())

	require.NoError(t, s.RebuildWorkingGrid())
	assert.False(t, s.Working(AxisX).HasPoint(3.5), "removed extra point must not come back")

	idx, err := s.Working(AxisX).ClosestIndex(4)
	require.NoError(t, err)
	assert.NotNil(t, r)

	// Removing a base line drops it from the base grid as well.
	_, err = s.RemoveWorkingPoint(AxisX, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Base(AxisX).Len())
	require.NoError(t, s.RebuildWorkingGrid())
	assert.False(t, s.Working(AxisX).HasPoint(4))
	assert.Greater(t, idx, 0)
}

func TestRemoveWorkingPointRejectedLeavesState(t *testing.T) {
	var base [3]GridAxis
	for _, a := range Axes {
		ax, err := NewUniformAxis(2, 1)
		require.NoError(t, err)
		base[a] = ax
	}
	s, err := NewAxisSet(base, noPadding())
	require.NoError(t, err)

	_, err = s.RemoveWorkingPoint(AxisY, 0)
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.Equal(t, [3]int{2, 2, 2}, s.Dims())
	assert.Equal(t, 2, s.Base(AxisY).Len())
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := newTestSet(t, noPadding())
	w := s.Working(AxisX)
	_, _, err := w.InsertPoint(0.5, DefaultMinSpacing)
	require.NoError(t, err)
	assert.Equal(t, 11, s.Dims()[AxisX])

	c := s.Clone()
	_, err = c.AddExtraPoint(AxisX, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 11, s.Dims()[AxisX])
	assert.Equal(t, 12, c.Dims()[AxisX])
	assert.Empty(t, s.Extras())
}

func TestSetBaseAndExtras(t *testing.T) {
	s := newTestSet(t, noPadding())
	ax, err := NewUniformAxis(3, 2)
	require.NoError(t, err)
	require.NoError(t, s.SetBase(AxisX, ax))
	assert.Equal(t, 3, s.Dims()[AxisX])

	require.NoError(t, s.SetExtras([]ExtraPoint{{Axis: AxisX, Value: 1}, {Axis: AxisZ, Value: 2.5}}))
	assert.Equal(t, 4, s.Dims()[AxisX])
	assert.Equal(t, 12, s.Dims()[AxisZ])

	assert.Error(t, s.SetBase(AxisY, GridAxis{}))
}
