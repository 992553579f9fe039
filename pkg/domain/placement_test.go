package domain

import (
	"testing"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementStateMachine(t *testing.T) {
	e := newTestEngine(t, grid.Vec3{X: 10, Y: 4, Z: 10})
	assert.Equal(t, StateIdle, e.PlacementState())
	assert.Nil(t, e.PlacementPreview())
	assert.ErrorIs(t, e.AdvancePlacement(), ErrInvalidTransition)

	require.NoError(t, e.BeginPlacement(KindSource, "probe"))
	assert.Equal(t, StatePlacementXY, e.PlacementState())
	assert.ErrorIs(t, e.BeginPlacement(KindSoil, ""), ErrInvalidTransition)
	assert.ErrorIs(t, e.ResizePlacement(1, 1), grid.ErrPrecondition)

	require.NoError(t, e.PlaceAt(8.7, 3.2))
	p := e.PlacementPreview()
	assert.Equal(t, CellIndex{X: 9, Y: 3, Z: 0}, p.Min)
	assert.Equal(t, CellIndex{X: 10, Y: 4, Z: 1}, p.Max)

	// Far outside the grid still clamps inside it.
	require.NoError(t, e.PlaceAt(20, 20))
	p = e.PlacementPreview()
	assert.Equal(t, CellIndex{X: 9, Y: 3, Z: 0}, p.Min)
	assert.Equal(t, CellIndex{X: 10, Y: 4, Z: 1}, p.Max)

	require.NoError(t, e.AdvancePlacement())
	assert.Equal(t, StateSizeXY, e.PlacementState())
	assert.ErrorIs(t, e.PlaceAt(1, 1), ErrInvalidTransition)
	_, err := e.CommitPlacement()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Shrinking past min or growing past the grid clamps.
	require.NoError(t, e.ResizePlacement(-5, 3))
	p = e.PlacementPreview()
	assert.Equal(t, 10, p.Max.X)
	assert.Equal(t, 4, p.Max.Y)

	require.NoError(t, e.AdvancePlacement())
	assert.Equal(t, StatePlacementXZ, e.PlacementState())
	require.NoError(t, e.PlaceAt(2, 3))
	require.NoError(t, e.AdvancePlacement())
	assert.Equal(t, StateSizeXZ, e.PlacementState())
	require.NoError(t, e.ResizePlacement(3, 2))
	assert.ErrorIs(t, e.AdvancePlacement(), ErrInvalidTransition)

	obj, err := e.CommitPlacement()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, e.PlacementState())
	assert.Equal(t, "probe", obj.Name)
	assert.Equal(t, KindSource, obj.Kind)
	assert.Equal(t, CellIndex{X: 2, Y: 3, Z: 3}, obj.Min)
	assert.Equal(t, CellIndex{X: 6, Y: 4, Z: 6}, obj.Max)
	assert.Equal(t, grid.Vec3{X: 2, Y: 3, Z: 3}, obj.Origin)
	assert.Equal(t, grid.Vec3{X: 4, Y: 1, Z: 3}, obj.Size)
	require.Len(t, e.Sources(), 1)
}

func TestPlacementCancelAndGeneratedName(t *testing.T) {
	e := newTestEngine(t, grid.Vec3{X: 10, Y: 4, Z: 10})
	require.NoError(t, e.BeginPlacement(KindBuilding, ""))
	e.CancelPlacement()
	assert.Equal(t, StateIdle, e.PlacementState())
	assert.Nil(t, e.Building())

	require.NoError(t, e.BeginPlacement(KindBuilding, ""))
	for range 3 {
		require.NoError(t, e.AdvancePlacement())
	}
	b, err := e.CommitPlacement()
	require.NoError(t, err)
	assert.Regexp(t, `^building-[0-9a-f]{8}$`, b.Name)
	assert.Equal(t, b, e.Building())
}

func TestPlacementFollowsGridEdits(t *testing.T) {
	e := newTestEngine(t, grid.Vec3{X: 10, Y: 4, Z: 10})
	require.NoError(t, e.BeginPlacement(KindSoil, "clay"))
	require.NoError(t, e.PlaceAt(4, 0))
	require.NoError(t, e.InsertPoint(grid.AxisX, 2.5))
	assert.Equal(t, 5, e.PlacementPreview().Min.X)

	// A rebuild abandons the edit in progress.
	require.NoError(t, e.RebuildWorkingGrid())
	assert.Equal(t, StateIdle, e.PlacementState())
}

func TestClampRange(t *testing.T) {
	tests := []struct {
		lo, hi, n      int
		wantLo, wantHi int
	}{
		{0, 1, 5, 0, 1},
		{-3, 2, 5, 0, 2},
		{4, 9, 5, 3, 4},
		{2, 2, 5, 2, 3},
		{3, 1, 5, 3, 4},
		{0, 0, 1, 0, 0},
	}
	for _, tt := range tests {
		lo, hi := clampRange(tt.lo, tt.hi, tt.n)
		assert.Equal(t, tt.wantLo, lo, "clampRange(%d, %d, %d)", tt.lo, tt.hi, tt.n)
		assert.Equal(t, tt.wantHi, hi, "clampRange(%d, %d, %d)", tt.lo, tt.hi, tt.n)
	}
}
