package domain

import (
	"fmt"
	"math"

	"github.com/chazu/vapordomain/pkg/grid"
	"gonum.org/v1/gonum/floats/scalar"
)

// Default crack tolerances.
const (
	DefaultCrackClearance       = 2    // cells between a crack and a building wall
	DefaultCrackDedupeTolerance = 1e-7 // same constant value means same crack
	DefaultCrackRemoveTolerance = 1e-5 // match window for RemoveCrack
)

// Crack is a linear feature in the foundation slab. Axis is the axis its
// constant coordinate lies on (X or Z); Start and End lie on the other
// horizontal axis.
type Crack struct {
	Axis  grid.Axis `json:"axis"`
	Value float64   `json:"value"`
	Start float64   `json:"start"`
	End   float64   `json:"end"`
}

// RunsAlong returns the axis the crack extends in.
func (c Crack) RunsAlong() grid.Axis {
	return c.Axis.Other()
}

// CrackOptions tunes crack validation.
type CrackOptions struct {
	Clearance       int
	DedupeTolerance float64
	RemoveTolerance float64
}

// DefaultCrackOptions returns the stock clearance and tolerances.
func DefaultCrackOptions() CrackOptions {
	return CrackOptions{
		Clearance:       DefaultCrackClearance,
		DedupeTolerance: DefaultCrackDedupeTolerance,
		RemoveTolerance: DefaultCrackRemoveTolerance,
	}
}

// CrackSystem stores cracks in two collections: constant Z (running in X)
// and constant X (running in Z). EditAxis selects which collection
// RemoveCrack works on.
type CrackSystem struct {
	constZ   []Crack
	constX   []Crack
	EditAxis grid.Axis
	opts     CrackOptions
}

// NewCrackSystem returns an empty system editing along X.
func NewCrackSystem(opts CrackOptions) *CrackSystem {
	return &CrackSystem{EditAxis: grid.AxisX, opts: opts}
}

// Clone returns a deep copy.
func (cs *CrackSystem) Clone() *CrackSystem {
	return &CrackSystem{
		constZ:   append([]Crack(nil), cs.constZ...),
		constX:   append([]Crack(nil), cs.constX...),
		EditAxis: cs.EditAxis,
		opts:     cs.opts,
	}
}

func (cs *CrackSystem) list(constant grid.Axis) *[]Crack {
	if constant == grid.AxisX {
		return &cs.constX
	}
	return &cs.constZ
}

// Len returns the total number of cracks.
func (cs *CrackSystem) Len() int {
	return len(cs.constX) + len(cs.constZ)
}

// Cracks returns every crack, constant-Z cracks first.
func (cs *CrackSystem) Cracks() []Crack {
	out := make([]Crack, 0, cs.Len())
	out = append(out, cs.constZ...)
	return append(out, cs.constX...)
}

// SetCracks replaces both collections.
func (cs *CrackSystem) SetCracks(cracks []Crack) error {
	var cx, cz []Crack
	for _, c := range cracks {
		switch c.Axis {
		case grid.AxisX:
			cx = append(cx, c)
		case grid.AxisZ:
			cz = append(cz, c)
		default:
			return fmt.Errorf("domain: crack on axis %s: cracks lie on X or Z", c.Axis)
		}
	}
	cs.constX, cs.constZ = cx, cz
	return nil
}

// HasCracksAlong reports whether any crack extends in direction a.
func (cs *CrackSystem) HasCracksAlong(a grid.Axis) bool {
	switch a {
	case grid.AxisX:
		return len(cs.constZ) > 0
	case grid.AxisZ:
		return len(cs.constX) > 0
	}
	return false
}

// HasCracksOn reports whether any crack keeps a coordinate on a, either its
// constant value or the ends of its span.
func (cs *CrackSystem) HasCracksOn(a grid.Axis) bool {
	return len(*cs.list(a)) > 0 || cs.HasCracksAlong(a)
}

// inside reports whether idx is more than clearance cells inside [w1, w2].
func (cs *CrackSystem) inside(idx, w1, w2 int) bool {
	lo, hi := min(w1, w2), max(w1, w2)
	return idx-lo > cs.opts.Clearance && hi-idx > cs.opts.Clearance
}

// AddCrack validates c against the building walls and stores it.
// parallelAxis is the axis of the crack's constant coordinate and the
// parallel walls are the building faces on that axis; the perpendicular
// walls bound Start and End. Values are snapped onto grid lines. A crack
// matching an existing one within the dedupe tolerance is not stored and
// reports false.
func (cs *CrackSystem) AddCrack(
	w [3]grid.GridAxis,
	parallelAxis, perpendicularAxis grid.Axis,
	c Crack,
	parallelWall1, parallelWall2 int,
	perpendicularWall1, perpendicularWall2 int,
) (bool, error) {
	if !parallelAxis.Horizontal() || perpendicularAxis != parallelAxis.Other() {
		return false, grid.Reject("crack", parallelAxis, c.Value,
			"crack axes must be X and Z, got %s and %s", parallelAxis, perpendicularAxis)
	}
	if c.Axis != parallelAxis {
		return false, grid.Reject("crack", parallelAxis, c.Value,
			"crack lies on %s, not %s", c.Axis, parallelAxis)
	}

	perp := w[perpendicularAxis]
	si, err := perp.ClosestIndex(c.Start)
	if err != nil {
		return false, err
	}
	ei, err := perp.ClosestIndex(c.End)
	if err != nil {
		return false, err
	}
	if !cs.inside(si, perpendicularWall1, perpendicularWall2) ||
		!cs.inside(ei, perpendicularWall1, perpendicularWall2) {
		return false, grid.Reject("crack", parallelAxis, c.Value,
			"span [%g, %g] must stay more than %d cells inside the %s walls",
			c.Start, c.End, cs.opts.Clearance, perpendicularAxis)
	}
	if si == ei {
		return false, grid.Reject("crack", parallelAxis, c.Value, "crack spans no cells")
	}

	par := w[parallelAxis]
	ci, err := par.ClosestIndex(c.Value)
	if err != nil {
		return false, err
	}
	if !cs.inside(ci, parallelWall1, parallelWall2) {
		return false, grid.Reject("crack", parallelAxis, c.Value,
			"must stay more than %d cells inside the %s walls", cs.opts.Clearance, parallelAxis)
	}

	snapped := Crack{
		Axis:  parallelAxis,
		Value: par.Position(ci),
		Start: perp.Position(si),
		End:   perp.Position(ei),
	}
	l := cs.list(parallelAxis)
	for _, existing := range *l {
		if math.Abs(existing.Value-snapped.Value) < cs.opts.DedupeTolerance {
			return false, nil
		}
	}
	*l = append(*l, snapped)
	return true, nil
}

// RemoveCrack snaps point to the nearest line on EditAxis and removes every
// crack whose constant coordinate sits on that line. It returns the number
// of cracks removed.
func (cs *CrackSystem) RemoveCrack(w [3]grid.GridAxis, point float64) (int, error) {
	if !cs.EditAxis.Horizontal() {
		return 0, fmt.Errorf("%w: crack edit axis %s", grid.ErrPrecondition, cs.EditAxis)
	}
	ax := w[cs.EditAxis]
	idx, err := ax.ClosestIndex(point)
	if err != nil {
		return 0, err
	}
	pos := ax.Position(idx)
	l := cs.list(cs.EditAxis)
	kept := (*l)[:0:0]
	for _, c := range *l {
		if !scalar.EqualWithinAbs(c.Value, pos, cs.opts.RemoveTolerance) {
			kept = append(kept, c)
		}
	}
	removed := len(*l) - len(kept)
	*l = kept
	return removed, nil
}
