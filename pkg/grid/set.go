package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Default AxisSet tuning.
const (
	DefaultMinSpacing = 1e-3
	DefaultTolerance  = 1e-9
)

// DefaultPaddingOffsets are the distances from each boundary at which the
// working grid receives extra lines.
var DefaultPaddingOffsets = []float64{0.4, 0.8}

// Options tunes an AxisSet.
type Options struct {
	PaddingOffsets []float64 // distances from each boundary, applied on PaddingAxes
	PaddingAxes    []Axis    // axes that receive boundary padding
	MinSpacing     float64   // minimum distance between a new line and its neighbours
	Tolerance      float64   // equality tolerance for extra points
}

// DefaultOptions pads X and Z at 0.4 and 0.8.
func DefaultOptions() Options {
	return Options{
		PaddingOffsets: append([]float64(nil), DefaultPaddingOffsets...),
		PaddingAxes:    []Axis{AxisX, AxisZ},
		MinSpacing:     DefaultMinSpacing,
		Tolerance:      DefaultTolerance,
	}
}

// ExtraPoint is a user-requested permanent grid line, replayed into the
// working grid on every rebuild.
type ExtraPoint struct {
	Axis  Axis    `json:"axis"`
	Value float64 `json:"value"`
}

// Remap maps old working-grid indices to new ones after a line was added
// or removed. Indices absent from the table are unchanged.
type Remap map[AxisIndex]int

// Apply returns the new index of line i on axis a.
func (r Remap) Apply(a Axis, i int) int {
	if n, ok := r[AxisIndex{Axis: a, Index: i}]; ok {
		return n
	}
	return i
}

// insertRemap shifts every index at or after k up by one.
func insertRemap(a Axis, k, oldLen int) Remap {
	r := make(Remap, oldLen-k)
	for i := k; i < oldLen; i++ {
		r[AxisIndex{Axis: a, Index: i}] = i + 1
	}
	return r
}

// removeRemap shifts every index after k down by one. The removed line
// maps to its successor, or to the new last line.
func removeRemap(a Axis, k, oldLen int) Remap {
	r := make(Remap, oldLen-k)
	newLen := oldLen - 1
	r[AxisIndex{Axis: a, Index: k}] = min(k, newLen-1)
	for i := k + 1; i < oldLen; i++ {
		r[AxisIndex{Axis: a, Index: i}] = i - 1
	}
	return r
}

// AxisSet owns the three base axes, the extra points, and the derived
// working grid. It is not safe for concurrent use.
type AxisSet struct {
	base    [3]GridAxis
	working [3]GridAxis
	extras  []ExtraPoint
	opts    Options
}

// NewBaseGrid derives a base grid from domain dimensions and per-axis
// spacing: floor(dim/spacing)+1 lines per axis, never fewer than two.
func NewBaseGrid(dims, spacing Vec3) ([3]GridAxis, error) {
	var base [3]GridAxis
	for _, a := range Axes {
		d, s := dims.Get(a), spacing.Get(a)
		if d <= 0 || s <= 0 {
			return base, fmt.Errorf("grid: axis %s: dimension %g and spacing %g must be positive", a, d, s)
		}
		n := int(math.Floor(d/s+1e-9)) + 1
		n = max(n, 2)
		ax, err := NewUniformAxis(n, s)
		if err != nil {
			return base, fmt.Errorf("grid: axis %s: %w", a, err)
		}
		base[a] = ax
	}
	return base, nil
}

// NewAxisSet copies base and derives the working grid from it.
func NewAxisSet(base [3]GridAxis, opts Options) (*AxisSet, error) {
	s := &AxisSet{opts: opts}
	for _, a := range Axes {
		if base[a].Len() == 0 {
			return nil, fmt.Errorf("grid: axis %s: %w", a, ErrEmptyAxis)
		}
		if err := base[a].Validate(1e-9 * math.Max(1, math.Abs(base[a].Last()))); err != nil {
			return nil, fmt.Errorf("grid: axis %s: %w", a, err)
		}
		s.base[a] = base[a].Clone()
	}
	if err := s.RebuildWorkingGrid(); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a deep copy of the set.
func (s *AxisSet) Clone() *AxisSet {
	c := &AxisSet{
		extras: append([]ExtraPoint(nil), s.extras...),
		opts:   s.opts,
	}
	c.opts.PaddingOffsets = append([]float64(nil), s.opts.PaddingOffsets...)
	c.opts.PaddingAxes = append([]Axis(nil), s.opts.PaddingAxes...)
	for _, a := range Axes {
		c.base[a] = s.base[a].Clone()
		c.working[a] = s.working[a].Clone()
	}
	return c
}

// Options returns the set's tuning.
func (s *AxisSet) Options() Options {
	return s.opts
}

// Working returns a copy of the working axis a.
func (s *AxisSet) Working(a Axis) GridAxis {
	return s.working[a].Clone()
}

// workingRef returns the live working axis for in-place mutation.
func (s *AxisSet) workingRef(a Axis) *GridAxis {
	return &s.working[a]
}

// Base returns a copy of the base axis a.
func (s *AxisSet) Base(a Axis) GridAxis {
	return s.base[a].Clone()
}

// SetBase replaces base axis a and rebuilds the working grid.
func (s *AxisSet) SetBase(a Axis, ax GridAxis) error {
	if ax.Len() == 0 {
		return fmt.Errorf("grid: axis %s: %w", a, ErrEmptyAxis)
	}
	prev := s.base[a]
	s.base[a] = ax.Clone()
	if err := s.RebuildWorkingGrid(); err != nil {
		s.base[a] = prev
		return err
	}
	return nil
}

// Extras returns a copy of the extra points.
func (s *AxisSet) Extras() []ExtraPoint {
	return append([]ExtraPoint(nil), s.extras...)
}

// SetExtras replaces the extra points and rebuilds the working grid.
func (s *AxisSet) SetExtras(ps []ExtraPoint) error {
	prev := s.extras
	s.extras = append([]ExtraPoint(nil), ps...)
	if err := s.RebuildWorkingGrid(); err != nil {
		s.extras = prev
		return err
	}
	return nil
}

// Dims returns the working grid's line count per axis.
func (s *AxisSet) Dims() [3]int {
	return [3]int{s.working[AxisX].Len(), s.working[AxisY].Len(), s.working[AxisZ].Len()}
}

// ---------------------------------------------------------------------------
// Working-grid mutation
// ---------------------------------------------------------------------------

// InsertPoint inserts value into working axis a. The returned Remap is nil
// when the value was already present.
func (s *AxisSet) InsertPoint(a Axis, value float64) (Remap, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: invalid axis %d", ErrPrecondition, int(a))
	}
	ax := s.workingRef(a)
	oldLen := ax.Len()
	idx, inserted, err := ax.InsertPoint(value, s.opts.MinSpacing)
	if err != nil {
		return nil, tagAxis(err, a)
	}
	if !inserted {
		return nil, nil
	}
	return insertRemap(a, idx, oldLen), nil
}

// AddExtraPoint records a permanent point and inserts it into the working
// grid. A point already recorded within tolerance is not recorded again.
func (s *AxisSet) AddExtraPoint(a Axis, value float64) (Remap, error) {
	for _, p := range s.extras {
		if p.Axis == a && scalar.EqualWithinAbs(p.Value, value, s.opts.Tolerance) {
			return nil, nil
		}
	}
	r, err := s.InsertPoint(a, value)
	if err != nil {
		return nil, err
	}
	s.extras = append(s.extras, ExtraPoint{Axis: a, Value: value})
	return r, nil
}

// RemoveWorkingPoint deletes the working line nearest to value on axis a.
// A matching extra point or base line is forgotten as well so the removal
// survives the next rebuild. Nothing changes when the removal is rejected.
func (s *AxisSet) RemoveWorkingPoint(a Axis, value float64) (Remap, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: invalid axis %d", ErrPrecondition, int(a))
	}
	ax := s.working[a].Clone()
	idx, err := ax.ClosestIndex(value)
	if err != nil {
		return nil, tagAxis(err, a)
	}
	pos := ax.Position(idx)
	oldLen := ax.Len()
	if err := ax.RemoveAt(idx); err != nil {
		return nil, tagAxis(err, a)
	}

	extras := s.extras
	base := s.base[a]
	if e := s.extraIndex(a, pos); e >= 0 {
		extras = append(append([]ExtraPoint(nil), s.extras[:e]...), s.extras[e+1:]...)
	} else if b := base.IndexOf(pos, s.opts.Tolerance); b >= 0 {
		base = base.Clone()
		if err := base.RemoveAt(b); err != nil {
			return nil, tagAxis(err, a)
		}
	}

	s.working[a] = ax
	s.extras = extras
	s.base[a] = base
	return removeRemap(a, idx, oldLen), nil
}

func (s *AxisSet) extraIndex(a Axis, value float64) int {
	for i, p := range s.extras {
		if p.Axis == a && scalar.EqualWithinAbs(p.Value, value, s.opts.Tolerance) {
			return i
		}
	}
	return -1
}

// AddGridPadding inserts lines at the padding offsets inside both
// boundaries of every padding axis. It only touches the working grid.
// Offsets that do not fit the axis are skipped.
func (s *AxisSet) AddGridPadding() error {
	for _, a := range s.opts.PaddingAxes {
		ax := s.workingRef(a)
		if ax.Len() < 2 {
			continue
		}
		first, last := ax.First(), ax.Last()
		dir := 1.0
		if first > last {
			dir = -1
		}
		for _, off := range s.opts.PaddingOffsets {
			for _, v := range []float64{first + dir*off, last - dir*off} {
				if _, _, err := ax.InsertPoint(v, s.opts.MinSpacing); err != nil &&
					!errors.Is(err, ErrValidationRejected) {
					return tagAxis(err, a)
				}
			}
		}
	}
	return nil
}

// RebuildWorkingGrid resets the working grid to a copy of the base grid,
// pads it, and replays every extra point. Calling it twice in a row yields
// identical working grids.
func (s *AxisSet) RebuildWorkingGrid() error {
	var working [3]GridAxis
	for _, a := range Axes {
		working[a] = s.base[a].Clone()
	}
	prev := s.working
	s.working = working
	if err := s.AddGridPadding(); err != nil {
		s.working = prev
		return err
	}
	for _, p := range s.extras {
		ax := s.workingRef(p.Axis)
		if ax.IndexOf(p.Value, s.opts.Tolerance) >= 0 {
			continue
		}
		if _, _, err := ax.InsertPoint(p.Value, s.opts.MinSpacing); err != nil &&
			!errors.Is(err, ErrValidationRejected) {
			s.working = prev
			return tagAxis(err, p.Axis)
		}
	}
	return nil
}

// tagAxis fills in the axis of a ValidationError raised by a GridAxis.
func tagAxis(err error, a Axis) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Axis = a
		return ve
	}
	return fmt.Errorf("grid: axis %s: %w", a, err)
}
