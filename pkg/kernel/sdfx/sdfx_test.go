package sdfx

import (
	"math"
	"testing"
)

// testCells keeps marching cubes fast in tests.
const testCells = 24

func near(t *testing.T, what string, got, want [3]float64, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s[%d] = %f, expected ~%f", what, i, got[i], want[i])
		}
	}
}

func TestNewDefaultsCells(t *testing.T) {
	if got := New(0).Cells(); got != DefaultMeshCells {
		t.Errorf("New(0).Cells() = %d, want %d", got, DefaultMeshCells)
	}
	if got := New(10).Cells(); got != 10 {
		t.Errorf("New(10).Cells() = %d, want 10", got)
	}
}

func TestBox(t *testing.T) {
	k := New(testCells)
	mesh, err := k.ToMesh(k.Box(100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestBoundingBox(t *testing.T) {
	k := New(testCells)
	min, max := k.Box(100, 50, 25).BoundingBox()

	// Boxes sit on their minimum corner.
	near(t, "min", min, [3]float64{0, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{100, 50, 25}, 0.01)
}

func TestTranslate(t *testing.T) {
	k := New(testCells)
	min, max := k.Translate(k.Box(10, 10, 10), 100, 200, 300).BoundingBox()

	near(t, "min", min, [3]float64{100, 200, 300}, 0.01)
	near(t, "max", max, [3]float64{110, 210, 310}, 0.01)
}

func TestDifference(t *testing.T) {
	k := New(testCells)

	box := k.Box(100, 20, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	slot := k.Translate(k.Box(10, 10, 60), 45, -1, 20)
	diffMesh, err := k.ToMesh(k.Difference(box, slot))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// A slotted box has more surface than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := New(testCells)
	u := k.Union(k.Box(50, 50, 50), k.Translate(k.Box(50, 50, 50), 30, 0, 0))
	min, max := u.BoundingBox()
	near(t, "min", min, [3]float64{0, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{80, 50, 50}, 0.01)

	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestIntersection(t *testing.T) {
	k := New(testCells)
	inter := k.Intersection(k.Box(100, 100, 100), k.Translate(k.Box(100, 100, 100), 50, 0, 0))
	mesh, err := k.ToMesh(inter)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}

	// The overlap spans x in [50, 100].
	min, max := mesh.Bounds()
	if math.Abs(float64(min[0])-50) > 5 || math.Abs(float64(max[0])-100) > 5 {
		t.Errorf("intersection x extent = [%f, %f], expected ~[50, 100]", min[0], max[0])
	}
}
