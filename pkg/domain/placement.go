package domain

import (
	"fmt"

	"github.com/chazu/vapordomain/pkg/grid"
)

// PlacementState is a step of the interactive placement sequence.
type PlacementState int

const (
	StateIdle        PlacementState = iota
	StatePlacementXY                // min corner follows the pointer in the X/Y plane
	StateSizeXY                     // max corner grows or shrinks in X/Y
	StatePlacementXZ                // min corner follows the pointer in the X/Z plane
	StateSizeXZ                     // max corner grows or shrinks in X/Z
)

func (s PlacementState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlacementXY:
		return "placement-xy"
	case StateSizeXY:
		return "size-xy"
	case StatePlacementXZ:
		return "placement-xz"
	case StateSizeXZ:
		return "size-xz"
	default:
		return fmt.Sprintf("PlacementState(%d)", int(s))
	}
}

// plane returns the two axes the state operates on.
func (s PlacementState) plane() (u, v grid.Axis) {
	if s == StatePlacementXZ || s == StateSizeXZ {
		return grid.AxisX, grid.AxisZ
	}
	return grid.AxisX, grid.AxisY
}

// Placer drives one object through
// IDLE → PLACEMENT_XY → SIZE_XY → PLACEMENT_XZ → SIZE_XZ → commit → IDLE.
// Every mutation clamps, so the box never inverts or leaves the grid.
type Placer struct {
	state PlacementState
	obj   SpatialObject
}

// State returns the current step.
func (p *Placer) State() PlacementState {
	return p.state
}

// Preview returns a copy of the object being placed, or nil when idle.
func (p *Placer) Preview() *SpatialObject {
	if p.state == StateIdle {
		return nil
	}
	return p.obj.Clone()
}

// Begin starts placing a one-cell object at the grid origin.
func (p *Placer) Begin(w [3]grid.GridAxis, kind ObjectKind, name string) error {
	if p.state != StateIdle {
		return fmt.Errorf("%w: begin while %s", ErrInvalidTransition, p.state)
	}
	p.obj = SpatialObject{
		Kind: kind,
		Name: name,
		Min:  CellIndex{},
		Max:  CellIndex{X: 1, Y: 1, Z: 1},
	}
	p.obj.clamp(w)
	p.state = StatePlacementXY
	return nil
}

// PlaceAt moves the min corner to the grid lines nearest (u, v) in the
// current plane. The object keeps its size in cells where the grid allows.
func (p *Placer) PlaceAt(w [3]grid.GridAxis, u, v float64) error {
	if p.state != StatePlacementXY && p.state != StatePlacementXZ {
		return fmt.Errorf("%w: place while %s", ErrInvalidTransition, p.state)
	}
	ua, va := p.state.plane()
	next := p.obj
	for _, c := range []struct {
		a grid.Axis
		x float64
	}{{ua, u}, {va, v}} {
		idx, err := w[c.a].ClosestIndex(c.x)
		if err != nil {
			return fmt.Errorf("domain: place: axis %s: %w", c.a, err)
		}
		cells := next.Max.Get(c.a) - next.Min.Get(c.a)
		lo, hi := clampRange(idx, idx+cells, w[c.a].Len())
		next.Min.Set(c.a, lo)
		next.Max.Set(c.a, hi)
	}
	p.obj = next
	return nil
}

// Resize moves the max corner by a signed number of cells in the current
// plane, clamped so that max > min and max <= len-1.
func (p *Placer) Resize(w [3]grid.GridAxis, du, dv int) error {
	if p.state != StateSizeXY && p.state != StateSizeXZ {
		return fmt.Errorf("%w: resize while %s", ErrInvalidTransition, p.state)
	}
	ua, va := p.state.plane()
	for _, c := range []struct {
		a grid.Axis
		d int
	}{{ua, du}, {va, dv}} {
		lo, hi := clampRange(p.obj.Min.Get(c.a), p.obj.Max.Get(c.a)+c.d, w[c.a].Len())
		p.obj.Min.Set(c.a, lo)
		p.obj.Max.Set(c.a, hi)
	}
	return nil
}

// Advance moves to the next step. The last sizing step must be committed.
func (p *Placer) Advance() error {
	switch p.state {
	case StatePlacementXY:
		p.state = StateSizeXY
	case StateSizeXY:
		p.state = StatePlacementXZ
	case StatePlacementXZ:
		p.state = StateSizeXZ
	default:
		return fmt.Errorf("%w: advance while %s", ErrInvalidTransition, p.state)
	}
	return nil
}

// Commit converts the index range into the world-space record and returns
// the finished object. The placer returns to idle.
func (p *Placer) Commit(w [3]grid.GridAxis) (*SpatialObject, error) {
	if p.state != StateSizeXZ {
		return nil, fmt.Errorf("%w: commit while %s", ErrInvalidTransition, p.state)
	}
	obj := p.obj.Clone()
	obj.clamp(w)
	obj.commit(w)
	if obj.Name == "" {
		obj.Name = generateName(obj.Kind)
	}
	p.state = StateIdle
	p.obj = SpatialObject{}
	return obj, nil
}

// Cancel abandons the object being placed.
func (p *Placer) Cancel() {
	p.state = StateIdle
	p.obj = SpatialObject{}
}

// remap keeps an in-progress object aligned after grid changes.
func (p *Placer) remap(r grid.Remap, w [3]grid.GridAxis) {
	if p.state == StateIdle || len(r) == 0 {
		return
	}
	for _, a := range grid.Axes {
		p.obj.Min.Set(a, r.Apply(a, p.obj.Min.Get(a)))
		p.obj.Max.Set(a, r.Apply(a, p.obj.Max.Get(a)))
	}
	p.obj.clamp(w)
}
