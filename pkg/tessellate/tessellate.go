// Package tessellate turns a domain snapshot into triangle meshes using a
// geometry kernel. One mesh is produced per object; the building's slab is
// carved with a slot per crack. The tessellator is read-only and never
// mutates the engine it is given.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/kernel"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultCrackWidth is the rendered width of a crack slot.
const DefaultCrackWidth = 0.25

// Default colors per object kind.
var kindColors = map[domain.ObjectKind]string{
	domain.KindBuilding: "#b0b0b0",
	domain.KindSource:   "#d62728",
	domain.KindSoil:     "#8c564b",
}

// Options tunes mesh generation.
type Options struct {
	CrackWidth float64
}

// DefaultOptions returns the stock options.
func DefaultOptions() Options {
	return Options{CrackWidth: DefaultCrackWidth}
}

// Tessellate produces one mesh per object in e, clipped to the extent of
// the working grid. Objects with no volume are skipped.
func Tessellate(e *domain.Engine, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if e == nil {
		return nil, nil
	}
	if opts.CrackWidth <= 0 {
		opts.CrackWidth = DefaultCrackWidth
	}

	w := e.WorkingGrid()
	var lo, hi grid.Vec3
	for _, a := range grid.Axes {
		l, h := w[a].Bounds()
		lo, hi = lo.With(a, l), hi.With(a, h)
	}
	bounds, ok := box(k, lo, hi)
	if !ok {
		return nil, fmt.Errorf("tessellate: working grid has no volume")
	}

	var meshes []*kernel.Mesh
	for _, o := range e.Objects() {
		olo, ohi := o.Extent(w)
		solid, ok := box(k, olo, ohi)
		if !ok {
			continue
		}
		if o.Kind == domain.KindBuilding {
			solid = carveCracks(k, solid, o, w, e.Cracks(), opts.CrackWidth)
		}
		solid = k.Intersection(solid, bounds)

		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s %q: %w", o.Kind, o.Name, err)
		}
		mesh.Name = o.Name
		mesh.Kind = o.Kind.String()
		mesh.Color = objectColor(o)
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// box returns an axis-aligned box between two corners in any order, or
// false when it is flat along some axis.
func box(k kernel.Kernel, a, b grid.Vec3) (kernel.Solid, bool) {
	var lo, size grid.Vec3
	for _, ax := range grid.Axes {
		l, h := math.Min(a.Get(ax), b.Get(ax)), math.Max(a.Get(ax), b.Get(ax))
		if h-l <= 0 {
			return nil, false
		}
		lo, size = lo.With(ax, l), size.With(ax, h-l)
	}
	return k.Translate(k.Box(size.X, size.Y, size.Z), lo.X, lo.Y, lo.Z), true
}

// carveCracks subtracts one slot per crack from the bottom cell layer of
// the building, which stands in for the foundation slab.
func carveCracks(k kernel.Kernel, building kernel.Solid, b *domain.SpatialObject, w [3]grid.GridAxis, cracks []domain.Crack, width float64) kernel.Solid {
	if len(cracks) == 0 {
		return building
	}
	y0 := w[grid.AxisY].Position(b.Min.Y)
	y1 := w[grid.AxisY].Position(b.Min.Y + 1)
	// Overshoot the slab faces so the slot opens cleanly.
	pad := math.Abs(y1-y0) * 0.01
	ylo, yhi := math.Min(y0, y1)-pad, math.Max(y0, y1)+pad

	for _, c := range cracks {
		var lo, hi grid.Vec3
		lo, hi = lo.With(grid.AxisY, ylo), hi.With(grid.AxisY, yhi)
		lo, hi = lo.With(c.Axis, c.Value-width/2), hi.With(c.Axis, c.Value+width/2)
		run := c.RunsAlong()
		lo, hi = lo.With(run, c.Start), hi.With(run, c.End)
		if slot, ok := box(k, lo, hi); ok {
			building = k.Difference(building, slot)
		}
	}
	return building
}

// objectColor normalizes the object's color, falling back to the kind's
// default.
func objectColor(o *domain.SpatialObject) string {
	if c, err := colorful.Hex(o.Color); err == nil {
		return c.Hex()
	}
	return kindColors[o.Kind]
}

// PressureOverlay builds a flat, per-cell colored quad mesh of the active
// pressure field at the height of the building's base.
func PressureOverlay(e *domain.Engine) (*kernel.Mesh, error) {
	cg, err := e.PressureCells()
	if err != nil {
		return nil, err
	}
	b := e.Building()
	w := e.WorkingGrid()
	y := float32(w[grid.AxisY].Position(b.Min.Y))
	x, z := w[grid.AxisX], w[grid.AxisZ]

	m := &kernel.Mesh{Name: "pressure", Kind: "overlay"}
	for i := 0; i < cg.NX; i++ {
		x0, x1 := float32(x.Position(i)), float32(x.Position(i+1))
		for j := 0; j < cg.NZ; j++ {
			z0, z1 := float32(z.Position(j)), float32(z.Position(j+1))
			_, c := cg.At(i, j)
			base := uint32(m.VertexCount())
			for _, v := range [4][2]float32{{x0, z0}, {x1, z0}, {x1, z1}, {x0, z1}} {
				m.Vertices = append(m.Vertices, v[0], y, v[1])
				m.Normals = append(m.Normals, 0, 1, 0)
				m.Colors = append(m.Colors, float32(c.R), float32(c.G), float32(c.B))
			}
			m.Indices = append(m.Indices, base, base+2, base+1, base, base+3, base+2)
		}
	}
	return m, nil
}
