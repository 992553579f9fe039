package domain

import (
	"fmt"
	"strings"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/google/uuid"
)

// ObjectKind distinguishes the solids placed in the domain.
type ObjectKind int

const (
	KindBuilding ObjectKind = iota // the single building; its slab holds the cracks
	KindSource                     // chemical source
	KindSoil                       // soil layer
)

func (k ObjectKind) String() string {
	switch k {
	case KindBuilding:
		return "building"
	case KindSource:
		return "source"
	case KindSoil:
		return "soil"
	default:
		return "unknown"
	}
}

// ParseObjectKind accepts "building", "source" and "soil".
func ParseObjectKind(s string) (ObjectKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "building":
		return KindBuilding, nil
	case "source":
		return KindSource, nil
	case "soil":
		return KindSoil, nil
	}
	return 0, fmt.Errorf("domain: invalid object kind %q, expected building, source, or soil", s)
}

// CellIndex is a triple of working-grid line indices.
type CellIndex struct {
	X, Y, Z int
}

// Get returns the index along a.
func (c CellIndex) Get(a grid.Axis) int {
	switch a {
	case grid.AxisX:
		return c.X
	case grid.AxisY:
		return c.Y
	default:
		return c.Z
	}
}

// Set replaces the index along a.
func (c *CellIndex) Set(a grid.Axis, i int) {
	switch a {
	case grid.AxisX:
		c.X = i
	case grid.AxisY:
		c.Y = i
	default:
		c.Z = i
	}
}

// SpatialObject is an axis-aligned box anchored to working-grid indices.
// Origin and Size are the world-space record written on every commit; they
// are what gets persisted and what the indices are re-derived from after a
// rebuild.
type SpatialObject struct {
	Kind       ObjectKind         `json:"kind"`
	Name       string             `json:"name"`
	Color      string             `json:"color,omitempty"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
	Min        CellIndex          `json:"min"`
	Max        CellIndex          `json:"max"`
	Origin     grid.Vec3          `json:"origin"`
	Size       grid.Vec3          `json:"size"`
}

// Clone returns a deep copy.
func (o *SpatialObject) Clone() *SpatialObject {
	c := *o
	if o.Attributes != nil {
		c.Attributes = make(map[string]float64, len(o.Attributes))
		for k, v := range o.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// Extent returns the world-space corners at the stored indices.
func (o *SpatialObject) Extent(w [3]grid.GridAxis) (lo, hi grid.Vec3) {
	for _, a := range grid.Axes {
		lo = lo.With(a, w[a].Position(o.Min.Get(a)))
		hi = hi.With(a, w[a].Position(o.Max.Get(a)))
	}
	return lo, hi
}

// Span returns the sorted world-space interval along a.
func (o *SpatialObject) Span(w [3]grid.GridAxis, a grid.Axis) (lo, hi float64) {
	lo, hi = w[a].Position(o.Min.Get(a)), w[a].Position(o.Max.Get(a))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Cells returns the number of cells spanned along each axis.
func (o *SpatialObject) Cells() CellIndex {
	return CellIndex{X: o.Max.X - o.Min.X, Y: o.Max.Y - o.Min.Y, Z: o.Max.Z - o.Min.Z}
}

// commit rewrites the world-space record from the current indices.
func (o *SpatialObject) commit(w [3]grid.GridAxis) {
	lo, hi := o.Extent(w)
	o.Origin = lo
	o.Size = grid.Vec3{X: hi.X - lo.X, Y: hi.Y - lo.Y, Z: hi.Z - lo.Z}
}

// clamp enforces 0 <= min < max <= len-1 on every axis.
func (o *SpatialObject) clamp(w [3]grid.GridAxis) {
	for _, a := range grid.Axes {
		lo, hi := clampRange(o.Min.Get(a), o.Max.Get(a), w[a].Len())
		o.Min.Set(a, lo)
		o.Max.Set(a, hi)
	}
}

// remap shifts indices after grid lines were added or removed.
func (o *SpatialObject) remap(r grid.Remap, w [3]grid.GridAxis) {
	if len(r) == 0 {
		return
	}
	for _, a := range grid.Axes {
		o.Min.Set(a, r.Apply(a, o.Min.Get(a)))
		o.Max.Set(a, r.Apply(a, o.Max.Get(a)))
	}
	o.clamp(w)
	o.commit(w)
}

// resnap re-derives the indices from the world-space record.
func (o *SpatialObject) resnap(w [3]grid.GridAxis) error {
	for _, a := range grid.Axes {
		lo, err := w[a].ClosestIndex(o.Origin.Get(a))
		if err != nil {
			return fmt.Errorf("domain: %s %q: axis %s: %w", o.Kind, o.Name, a, err)
		}
		hi, err := w[a].ClosestIndex(o.Origin.Get(a) + o.Size.Get(a))
		if err != nil {
			return fmt.Errorf("domain: %s %q: axis %s: %w", o.Kind, o.Name, a, err)
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		o.Min.Set(a, lo)
		o.Max.Set(a, hi)
	}
	o.clamp(w)
	o.commit(w)
	return nil
}

// clampRange returns lo, hi with 0 <= lo < hi <= n-1. A one-line axis
// collapses both to 0.
func clampRange(lo, hi, n int) (int, int) {
	if n < 2 {
		return 0, 0
	}
	lo = min(max(lo, 0), n-2)
	hi = min(max(hi, lo+1), n-1)
	return lo, hi
}

// generateName returns "<kind>-<8 hex characters>".
func generateName(k ObjectKind) string {
	return fmt.Sprintf("%s-%s", k, uuid.NewString()[:8])
}
