package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// GridLine is a single grid line on one axis. OffsetToNext is the signed
// distance to the following line; the last line of an axis carries 0.
type GridLine struct {
	Position     float64 `json:"position"`
	OffsetToNext float64 `json:"offset_to_next"`
}

// GridAxis is an ordered sequence of grid lines for one dimension.
// Positions are monotonic in index order but need not be evenly spaced and
// may run in decreasing order. A GridAxis is a value: copies made with
// Clone never share storage.
type GridAxis struct {
	lines []GridLine
}

// NewUniformAxis builds n evenly spaced lines starting at 0. A negative
// spacing produces a descending axis.
func NewUniformAxis(n int, spacing float64) (GridAxis, error) {
	if n < 1 {
		return GridAxis{}, fmt.Errorf("grid: uniform axis needs at least one line, got %d", n)
	}
	if spacing == 0 && n > 1 {
		return GridAxis{}, fmt.Errorf("grid: uniform axis spacing must be non-zero")
	}
	ps := make([]float64, n)
	for i := range ps {
		ps[i] = float64(i) * spacing
	}
	return NewAxisFromPositions(ps)
}

// NewAxisFromPositions builds an axis whose offsets are derived from the
// given positions. The positions must be monotonic.
func NewAxisFromPositions(ps []float64) (GridAxis, error) {
	if len(ps) == 0 {
		return GridAxis{}, ErrEmptyAxis
	}
	asc, desc := true, true
	for i := 1; i < len(ps); i++ {
		if ps[i] < ps[i-1] {
			asc = false
		}
		if ps[i] > ps[i-1] {
			desc = false
		}
	}
	if !asc && !desc {
		return GridAxis{}, fmt.Errorf("grid: positions are not monotonic")
	}
	lines := make([]GridLine, len(ps))
	for i, p := range ps {
		lines[i].Position = p
		if i < len(ps)-1 {
			lines[i].OffsetToNext = ps[i+1] - p
		}
	}
	return GridAxis{lines: lines}, nil
}

// NewAxisFromLines copies lines verbatim, for restoring persisted records.
// Use Validate to check the chain invariant afterwards.
func NewAxisFromLines(lines []GridLine) GridAxis {
	return GridAxis{lines: append([]GridLine(nil), lines...)}
}

// Clone returns a deep copy.
func (g GridAxis) Clone() GridAxis {
	return NewAxisFromLines(g.lines)
}

// Len returns the number of lines.
func (g GridAxis) Len() int {
	return len(g.lines)
}

// Lines returns a copy of the line records.
func (g GridAxis) Lines() []GridLine {
	return append([]GridLine(nil), g.lines...)
}

// Line returns line i.
func (g GridAxis) Line(i int) GridLine {
	return g.lines[i]
}

// Position returns the position of line i.
func (g GridAxis) Position(i int) float64 {
	return g.lines[i].Position
}

// Positions returns a fresh slice of all line positions.
func (g GridAxis) Positions() []float64 {
	ps := make([]float64, len(g.lines))
	for i, l := range g.lines {
		ps[i] = l.Position
	}
	return ps
}

// First returns the position of the first line.
func (g GridAxis) First() float64 {
	return g.lines[0].Position
}

// Last returns the position of the last line.
func (g GridAxis) Last() float64 {
	return g.lines[len(g.lines)-1].Position
}

// Descending reports whether positions decrease with index.
func (g GridAxis) Descending() bool {
	return len(g.lines) > 1 && g.First() > g.Last()
}

// Bounds returns the smallest and largest positions on the axis.
func (g GridAxis) Bounds() (lo, hi float64) {
	lo, hi = g.First(), g.Last()
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// Equal reports whether both axes hold identical line records.
func (g GridAxis) Equal(o GridAxis) bool {
	if len(g.lines) != len(o.lines) {
		return false
	}
	for i := range g.lines {
		if g.lines[i] != o.lines[i] {
			return false
		}
	}
	return true
}

// Validate checks the chain invariant position[i]+offset[i] == position[i+1]
// within tol, and that the last line carries a zero offset.
func (g GridAxis) Validate(tol float64) error {
	if len(g.lines) == 0 {
		return ErrEmptyAxis
	}
	for i := 0; i < len(g.lines)-1; i++ {
		want := g.lines[i+1].Position
		got := g.lines[i].Position + g.lines[i].OffsetToNext
		if !scalar.EqualWithinAbs(got, want, tol) {
			return fmt.Errorf("grid: line %d: position %g + offset %g = %g, next line at %g",
				i, g.lines[i].Position, g.lines[i].OffsetToNext, got, want)
		}
	}
	if last := g.lines[len(g.lines)-1]; last.OffsetToNext != 0 {
		return fmt.Errorf("grid: last line carries offset %g, want 0", last.OffsetToNext)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Snapping
// ---------------------------------------------------------------------------

// ClosestIndex returns the index whose position minimizes |position-value|.
// Ties resolve to the lowest index.
func (g GridAxis) ClosestIndex(value float64) (int, error) {
	if len(g.lines) == 0 {
		return 0, ErrEmptyAxis
	}
	dist := make([]float64, len(g.lines))
	for i, l := range g.lines {
		dist[i] = math.Abs(l.Position - value)
	}
	return floats.MinIdx(dist), nil
}

// BracketIndices returns the pair of adjacent indices enclosing value, with
// lo <= hi. A value outside the axis returns the two boundary indices, and a
// value nearest the last line pairs it with its predecessor. A single-line
// axis returns (0, 0).
func (g GridAxis) BracketIndices(value float64) (lo, hi int, err error) {
	c, err := g.ClosestIndex(value)
	if err != nil {
		return 0, 0, err
	}
	n := len(g.lines)
	if n == 1 {
		return 0, 0, nil
	}
	if min, max := g.Bounds(); value < min || value > max {
		return 0, n - 1, nil
	}
	if c == n-1 {
		return n - 2, n - 1, nil
	}
	// Same sign as the step towards c+1 means value lies on that side.
	step := g.lines[c+1].Position - g.lines[c].Position
	if (value-g.lines[c].Position)*step >= 0 || c == 0 {
		return c, c + 1, nil
	}
	return c - 1, c, nil
}

// HasPoint reports whether some line sits exactly at value.
func (g GridAxis) HasPoint(value float64) bool {
	for _, l := range g.lines {
		if l.Position == value {
			return true
		}
	}
	return false
}

// IndexOf returns the index of the line within tol of value, or -1.
func (g GridAxis) IndexOf(value, tol float64) int {
	for i, l := range g.lines {
		if scalar.EqualWithinAbs(l.Position, value, tol) {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// InsertPoint splits the bracketing interval at value. It returns the index
// of the new line and whether anything was inserted; a value already on the
// axis is a no-op. Values outside the axis or closer than minSpacing to a
// neighbour are rejected and the axis is left untouched.
func (g *GridAxis) InsertPoint(value, minSpacing float64) (int, bool, error) {
	if len(g.lines) == 0 {
		return 0, false, ErrEmptyAxis
	}
	if g.HasPoint(value) {
		return g.IndexOf(value, 0), false, nil
	}
	if len(g.lines) < 2 {
		return 0, false, fmt.Errorf("%w: insert needs an axis with at least two lines", ErrPrecondition)
	}
	if min, max := g.Bounds(); value < min || value > max {
		return 0, false, Reject("insert", 0, value, "outside the domain [%g, %g]", min, max)
	}
	lo, hi, err := g.BracketIndices(value)
	if err != nil {
		return 0, false, err
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	low, high := g.lines[lo].Position, g.lines[hi].Position
	if math.Abs(value-low) < minSpacing || math.Abs(high-value) < minSpacing {
		return 0, false, Reject("insert", 0, value,
			"closer than minimum spacing %g to neighbouring lines %g and %g", minSpacing, low, high)
	}

	// Offsets are signed, so a descending axis keeps its direction.
	lines := make([]GridLine, 0, len(g.lines)+1)
	lines = append(lines, g.lines[:lo]...)
	lines = append(lines,
		GridLine{Position: low, OffsetToNext: value - low},
		GridLine{Position: value, OffsetToNext: high - value},
	)
	lines = append(lines, g.lines[hi:]...)
	g.lines = lines
	return lo + 1, true, nil
}

// RemoveAt deletes line i and re-joins its neighbours. An axis is never
// reduced below two lines.
func (g *GridAxis) RemoveAt(i int) error {
	if len(g.lines) == 0 {
		return ErrEmptyAxis
	}
	if i < 0 || i >= len(g.lines) {
		return fmt.Errorf("%w: line index %d outside [0, %d)", ErrPrecondition, i, len(g.lines))
	}
	if len(g.lines) <= 2 {
		return Reject("remove", 0, g.lines[i].Position, "an axis needs at least two lines")
	}
	lines := make([]GridLine, 0, len(g.lines)-1)
	lines = append(lines, g.lines[:i]...)
	lines = append(lines, g.lines[i+1:]...)
	if i > 0 {
		if i < len(lines) {
			lines[i-1].OffsetToNext = lines[i].Position - lines[i-1].Position
		} else {
			lines[i-1].OffsetToNext = 0
		}
	}
	g.lines = lines
	return nil
}
