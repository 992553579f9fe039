package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/vapordomain/pkg/config"
	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Mesh.Cells = 24
	app, err := NewApp(cfg, nil)
	require.NoError(t, err)
	return app
}

func readExample(t *testing.T, name string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "examples", name))
	require.NoError(t, err)
	return string(src)
}

// TestE2ESiteExample exercises the full pipeline: script → engine →
// document → tessellate → meshes.
func TestE2ESiteExample(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(readExample(t, "site.vd"), true)
	require.Empty(t, result.Errors)

	snap := app.Document().Snapshot()
	b := snap.Building()
	require.NotNil(t, b)
	assert.Equal(t, grid.Vec3{X: 8, Y: 0, Z: 6}, b.Origin)
	assert.Equal(t, grid.Vec3{X: 14, Y: 3, Z: 12}, b.Size)
	assert.Len(t, snap.Cracks(), 2)
	assert.Len(t, snap.Sources(), 1)
	assert.Len(t, snap.Soils(), 1)
	assert.True(t, snap.Working(grid.AxisX).HasPoint(15.5))

	// three objects plus the pressure overlay
	require.Len(t, result.Meshes, 4)
	kinds := map[string]int{}
	for _, m := range result.Meshes {
		kinds[m.Kind]++
	}
	assert.Equal(t, map[string]int{"building": 1, "source": 1, "soil": 1, "overlay": 1}, kinds)
	for _, m := range result.Meshes {
		if m.Kind == "building" || m.Kind == "overlay" {
			assert.NotEmpty(t, m.Indices, m.Name)
			assert.Len(t, m.Normals, len(m.Vertices), m.Name)
		}
	}
	assert.Contains(t, result.Summary, `building "house"`)
	assert.Contains(t, result.Summary, `wind "N"`)
}

func TestE2EPlacementExample(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(readExample(t, "placement.vd"), false)
	require.Empty(t, result.Errors)
	assert.Empty(t, result.Meshes)

	sources := app.Document().Snapshot().Sources()
	require.Len(t, sources, 1)
	drum := sources[0]
	assert.Equal(t, "drum", drum.Name)
	assert.Equal(t, grid.Vec3{X: 4, Y: 0, Z: 5}, drum.Origin)
	assert.Equal(t, grid.Vec3{X: 3, Y: 2, Z: 1}, drum.Size)
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("", true)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Meshes)
	assert.Contains(t, result.Summary, "grid:")
}

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	before := app.Document().Snapshot().Records()

	result := app.Evaluate("(domain :length 10", true)
	require.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Meshes)
	assert.Empty(t, result.Summary)
	assert.Equal(t, before.String(), app.Document().Snapshot().Records().String())
}

func TestE2ERejectedEditRollsBack(t *testing.T) {
	app := newTestApp(t)
	require.Empty(t, app.Evaluate(readExample(t, "site.vd"), false).Errors)
	before := app.Document().Snapshot()

	// x=8 is the building's low X face
	result := app.Evaluate(`(insert-point :z 2.5) (remove-point :x 8)`, false)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "building edge")

	after := app.Document().Snapshot()
	assert.Equal(t, before.Dims(), after.Dims())
	assert.Equal(t, before.ExtraPoints(), after.ExtraPoints())
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "sites.db"), nil)
	require.NoError(t, err)
	defer st.Close()

	app := newTestApp(t)
	require.Empty(t, app.Evaluate(readExample(t, "site.vd"), false).Errors)
	_, err = app.Save(ctx, st, "site")
	require.NoError(t, err)
	want := app.Document().Snapshot()

	other := newTestApp(t)
	require.NoError(t, other.Load(ctx, st, "site"))
	got := other.Document().Snapshot()

	assert.Equal(t, want.Dims(), got.Dims())
	assert.Equal(t, want.Cracks(), got.Cracks())
	require.NotNil(t, got.Building())
	assert.Equal(t, want.Building().Min, got.Building().Min)
	assert.Equal(t, want.Building().Max, got.Building().Max)
	assert.Equal(t, domain.KindBuilding, got.Building().Kind)

	assert.ErrorIs(t, other.Load(ctx, st, "missing"), store.ErrNotFound)
}
