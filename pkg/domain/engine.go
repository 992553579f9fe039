package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/pressure"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultEdgeEpsilon is the match window for building faces.
const DefaultEdgeEpsilon = 1e-6

// Options tunes an Engine.
type Options struct {
	Grid        grid.Options
	Crack       CrackOptions
	Pressure    pressure.Options
	EdgeEpsilon float64
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Grid:        grid.DefaultOptions(),
		Crack:       DefaultCrackOptions(),
		Pressure:    pressure.DefaultOptions(),
		EdgeEpsilon: DefaultEdgeEpsilon,
	}
}

// Engine is the unlocked document state. Use a Document to share it.
type Engine struct {
	grid     *grid.AxisSet
	building *SpatialObject
	sources  []*SpatialObject
	soils    []*SpatialObject
	cracks   *CrackSystem
	field    *pressure.Field
	placer   Placer
	opts     Options
	logger   *slog.Logger
}

// NewEngine builds an engine over the given base grid. A nil logger
// discards output.
func NewEngine(base [3]grid.GridAxis, opts Options, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	set, err := grid.NewAxisSet(base, opts.Grid)
	if err != nil {
		return nil, err
	}
	return &Engine{
		grid:   set,
		cracks: NewCrackSystem(opts.Crack),
		opts:   opts,
		logger: logger,
	}, nil
}

// NewEngineFromDimensions derives the base grid from domain dimensions and
// per-axis spacing.
func NewEngineFromDimensions(dims, spacing grid.Vec3, opts Options, logger *slog.Logger) (*Engine, error) {
	base, err := grid.NewBaseGrid(dims, spacing)
	if err != nil {
		return nil, err
	}
	return NewEngine(base, opts, logger)
}

// Reset discards all state and starts over on a fresh base grid.
func (e *Engine) Reset(dims, spacing grid.Vec3) error {
	fresh, err := NewEngineFromDimensions(dims, spacing, e.opts, e.logger)
	if err != nil {
		return err
	}
	*e = *fresh
	return nil
}

// Clone returns a deep copy sharing only the logger.
func (e *Engine) Clone() *Engine {
	c := &Engine{
		grid:   e.grid.Clone(),
		cracks: e.cracks.Clone(),
		placer: Placer{state: e.placer.state, obj: *e.placer.obj.Clone()},
		opts:   e.opts,
		logger: e.logger,
	}
	if e.building != nil {
		c.building = e.building.Clone()
	}
	for _, o := range e.sources {
		c.sources = append(c.sources, o.Clone())
	}
	for _, o := range e.soils {
		c.soils = append(c.soils, o.Clone())
	}
	if e.field != nil {
		c.field = e.field.Clone()
	}
	return c
}

// Options returns the engine's tuning.
func (e *Engine) Options() Options {
	return e.opts
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// ---------------------------------------------------------------------------
// Grid
// ---------------------------------------------------------------------------

// Working returns a copy of working axis a.
func (e *Engine) Working(a grid.Axis) grid.GridAxis {
	return e.grid.Working(a)
}

// WorkingGrid returns copies of all three working axes.
func (e *Engine) WorkingGrid() [3]grid.GridAxis {
	return [3]grid.GridAxis{e.grid.Working(grid.AxisX), e.grid.Working(grid.AxisY), e.grid.Working(grid.AxisZ)}
}

// BaseGrid returns copies of all three base axes.
func (e *Engine) BaseGrid() [3]grid.GridAxis {
	return [3]grid.GridAxis{e.grid.Base(grid.AxisX), e.grid.Base(grid.AxisY), e.grid.Base(grid.AxisZ)}
}

// ExtraPoints returns the recorded extra points.
func (e *Engine) ExtraPoints() []grid.ExtraPoint {
	return e.grid.Extras()
}

// Dims returns the working grid's line count per axis.
func (e *Engine) Dims() [3]int {
	return e.grid.Dims()
}

// InsertPoint inserts a working-grid line that lasts until the next rebuild.
func (e *Engine) InsertPoint(a grid.Axis, value float64) error {
	r, err := e.grid.InsertPoint(a, value)
	if err != nil {
		e.logRejection("insert", a, value, err)
		return err
	}
	e.applyRemap(r)
	return nil
}

// AddExtraPoint records a permanent grid line and inserts it.
func (e *Engine) AddExtraPoint(a grid.Axis, value float64) error {
	r, err := e.grid.AddExtraPoint(a, value)
	if err != nil {
		e.logRejection("extra point", a, value, err)
		return err
	}
	e.applyRemap(r)
	return nil
}

// RemoveGridPoint deletes the working line nearest to value unless it lies
// on a building face or, while cracks exist, inside the building.
func (e *Engine) RemoveGridPoint(a grid.Axis, value float64) error {
	ax := e.grid.Working(a)
	idx, err := ax.ClosestIndex(value)
	if err != nil {
		return err
	}
	pos := ax.Position(idx)
	if e.PointOnBuildingEdge(a, pos) {
		err := grid.Reject("remove", a, pos, "grid line lies on a building edge")
		e.logRejection("remove", a, value, err)
		return err
	}
	if e.PointInBuildingInterior(a, pos) {
		err := grid.Reject("remove", a, pos, "grid line lies inside the building while cracks exist")
		e.logRejection("remove", a, value, err)
		return err
	}
	r, err := e.grid.RemoveWorkingPoint(a, pos)
	if err != nil {
		e.logRejection("remove", a, value, err)
		return err
	}
	e.applyRemap(r)
	return nil
}

// RebuildWorkingGrid re-derives the working grid from the base grid,
// padding and extra points, then re-snaps every object from its
// world-space record.
func (e *Engine) RebuildWorkingGrid() error {
	if err := e.grid.RebuildWorkingGrid(); err != nil {
		return err
	}
	e.logger.Debug("working grid rebuilt", "dims", e.grid.Dims())
	return e.resnapObjects()
}

// SetBaseGrid replaces the base grid and rebuilds.
func (e *Engine) SetBaseGrid(base [3]grid.GridAxis) error {
	set, err := grid.NewAxisSet(base, e.opts.Grid)
	if err != nil {
		return err
	}
	if err := set.SetExtras(e.grid.Extras()); err != nil {
		return err
	}
	e.grid = set
	return e.resnapObjects()
}

func (e *Engine) applyRemap(r grid.Remap) {
	if len(r) == 0 {
		return
	}
	w := e.WorkingGrid()
	for _, o := range e.objects() {
		o.remap(r, w)
	}
	e.placer.remap(r, w)
}

func (e *Engine) resnapObjects() error {
	w := e.WorkingGrid()
	for _, o := range e.objects() {
		if err := o.resnap(w); err != nil {
			return err
		}
	}
	e.placer.Cancel()
	return nil
}

func (e *Engine) logRejection(op string, a grid.Axis, value float64, err error) {
	if errors.Is(err, ErrValidationRejected) {
		e.logger.Debug("operation rejected", "op", op, "axis", a.String(), "value", value, "reason", err.Error())
	}
}

// ---------------------------------------------------------------------------
// Occupancy guards
// ---------------------------------------------------------------------------

// PointOnBuildingEdge reports whether value coincides with a building face
// along a.
func (e *Engine) PointOnBuildingEdge(a grid.Axis, value float64) bool {
	if e.building == nil {
		return false
	}
	lo, hi := e.building.Span(e.WorkingGrid(), a)
	return scalar.EqualWithinAbs(value, lo, e.opts.EdgeEpsilon) ||
		scalar.EqualWithinAbs(value, hi, e.opts.EdgeEpsilon)
}

// PointInBuildingInterior reports whether value lies strictly inside the
// building span along a horizontal axis while any crack has a coordinate on
// that axis. Cracks are keyed by grid-line value, so such lines must stay.
func (e *Engine) PointInBuildingInterior(a grid.Axis, value float64) bool {
	if e.building == nil || !a.Horizontal() {
		return false
	}
	lo, hi := e.building.Span(e.WorkingGrid(), a)
	return value > lo && value < hi && e.cracks.HasCracksOn(a)
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

func (e *Engine) objects() []*SpatialObject {
	var all []*SpatialObject
	if e.building != nil {
		all = append(all, e.building)
	}
	all = append(all, e.sources...)
	return append(all, e.soils...)
}

// Objects returns copies of every object, building first.
func (e *Engine) Objects() []*SpatialObject {
	var out []*SpatialObject
	for _, o := range e.objects() {
		out = append(out, o.Clone())
	}
	return out
}

// Building returns a copy of the building, or nil.
func (e *Engine) Building() *SpatialObject {
	if e.building == nil {
		return nil
	}
	return e.building.Clone()
}

// Sources returns copies of the chemical sources.
func (e *Engine) Sources() []*SpatialObject {
	return cloneAll(e.sources)
}

// Soils returns copies of the soil layers.
func (e *Engine) Soils() []*SpatialObject {
	return cloneAll(e.soils)
}

func cloneAll(objs []*SpatialObject) []*SpatialObject {
	out := make([]*SpatialObject, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Clone())
	}
	return out
}

// PlaceObject snaps a world-space box onto the working grid and adds it.
// A building replaces the existing one. An empty name is generated.
func (e *Engine) PlaceObject(kind ObjectKind, name string, origin, size grid.Vec3) (*SpatialObject, error) {
	return e.PlaceSpatialObject(&SpatialObject{Kind: kind, Name: name, Origin: origin, Size: size})
}

// PlaceSpatialObject is PlaceObject for a fully described object. Only the
// world-space record of o is used for placement; its indices are ignored.
func (e *Engine) PlaceSpatialObject(o *SpatialObject) (*SpatialObject, error) {
	obj := o.Clone()
	if obj.Color != "" {
		if _, err := colorful.Hex(obj.Color); err != nil {
			return nil, fmt.Errorf("%w: %s %q: bad color %q", ErrValidationRejected, obj.Kind, obj.Name, obj.Color)
		}
	}
	if obj.Name == "" {
		obj.Name = generateName(obj.Kind)
	}
	if err := obj.resnap(e.WorkingGrid()); err != nil {
		return nil, err
	}
	if err := e.install(obj); err != nil {
		return nil, err
	}
	return obj.Clone(), nil
}

func (e *Engine) install(obj *SpatialObject) error {
	switch obj.Kind {
	case KindBuilding:
		e.building = obj
	case KindSource:
		e.sources = append(e.sources, obj)
	case KindSoil:
		e.soils = append(e.soils, obj)
	default:
		return fmt.Errorf("domain: cannot install object of kind %s", obj.Kind)
	}
	e.logger.Debug("object placed", "kind", obj.Kind.String(), "name", obj.Name,
		"min", obj.Min, "max", obj.Max)
	return nil
}

// RemoveObject deletes the named object of the given kind and reports
// whether it existed.
func (e *Engine) RemoveObject(kind ObjectKind, name string) bool {
	switch kind {
	case KindBuilding:
		if e.building != nil && e.building.Name == name {
			e.building = nil
			return true
		}
	case KindSource:
		return removeNamed(&e.sources, name)
	case KindSoil:
		return removeNamed(&e.soils, name)
	}
	return false
}

func removeNamed(objs *[]*SpatialObject, name string) bool {
	for i, o := range *objs {
		if o.Name == name {
			*objs = append((*objs)[:i:i], (*objs)[i+1:]...)
			return true
		}
	}
	return false
}

// MakeSymmetricalBuilding centers the building on index floor(len/2) of the
// X and Z working axes and stands it on the bottom-most Y line, keeping its
// world-space size. The anchor index is the building's center, not its
// minimum corner, so the result is symmetric about the middle grid line.
func (e *Engine) MakeSymmetricalBuilding() error {
	if e.building == nil {
		return ErrNoBuilding
	}
	w := e.WorkingGrid()
	b := e.building.Clone()
	for _, a := range []grid.Axis{grid.AxisX, grid.AxisZ} {
		n := w[a].Len()
		anchor := min(n/2, n-1)
		center := w[a].Position(anchor)
		half := math.Abs(b.Size.Get(a)) / 2
		lo, err := w[a].ClosestIndex(center - half)
		if err != nil {
			return err
		}
		hi, err := w[a].ClosestIndex(center + half)
		if err != nil {
			return err
		}
		b.Min.Set(a, min(lo, hi))
		b.Max.Set(a, max(lo, hi))
	}
	ys := w[grid.AxisY].Positions()
	bottom := floats.MinIdx(ys)
	top, err := w[grid.AxisY].ClosestIndex(ys[bottom] + math.Abs(b.Size.Y))
	if err != nil {
		return err
	}
	b.Min.Y, b.Max.Y = min(bottom, top), max(bottom, top)
	b.clamp(w)
	b.commit(w)
	e.building = b
	return nil
}

// ---------------------------------------------------------------------------
// Placement state machine
// ---------------------------------------------------------------------------

// PlacementState returns the placer's current step.
func (e *Engine) PlacementState() PlacementState {
	return e.placer.State()
}

// PlacementPreview returns the object being placed, or nil.
func (e *Engine) PlacementPreview() *SpatialObject {
	return e.placer.Preview()
}

// BeginPlacement starts interactive placement of a new object.
func (e *Engine) BeginPlacement(kind ObjectKind, name string) error {
	return e.placer.Begin(e.WorkingGrid(), kind, name)
}

// PlaceAt moves the object's min corner to the nearest cell of (u, v).
func (e *Engine) PlaceAt(u, v float64) error {
	return e.placer.PlaceAt(e.WorkingGrid(), u, v)
}

// ResizePlacement grows or shrinks the object's max corner by whole cells.
func (e *Engine) ResizePlacement(du, dv int) error {
	return e.placer.Resize(e.WorkingGrid(), du, dv)
}

// AdvancePlacement moves to the next placement step.
func (e *Engine) AdvancePlacement() error {
	return e.placer.Advance()
}

// CancelPlacement abandons the object being placed.
func (e *Engine) CancelPlacement() {
	e.placer.Cancel()
}

// CommitPlacement finishes the object and adds it to the document.
func (e *Engine) CommitPlacement() (*SpatialObject, error) {
	obj, err := e.placer.Commit(e.WorkingGrid())
	if err != nil {
		return nil, err
	}
	if err := e.install(obj); err != nil {
		return nil, err
	}
	return obj.Clone(), nil
}

// ---------------------------------------------------------------------------
// Cracks
// ---------------------------------------------------------------------------

// AddCrack validates c against the building and stores it. It reports
// false when an identical crack already exists.
func (e *Engine) AddCrack(c Crack) (bool, error) {
	if e.building == nil {
		e.logRejection("crack", c.Axis, c.Value, ErrNoBuilding)
		return false, ErrNoBuilding
	}
	par, perp := c.Axis, c.Axis.Other()
	added, err := e.cracks.AddCrack(e.WorkingGrid(), par, perp, c,
		e.building.Min.Get(par), e.building.Max.Get(par),
		e.building.Min.Get(perp), e.building.Max.Get(perp),
	)
	if err != nil {
		e.logRejection("crack", c.Axis, c.Value, err)
		return false, err
	}
	return added, nil
}

// SetCrackEditAxis selects the axis RemoveCrack resolves points on.
func (e *Engine) SetCrackEditAxis(a grid.Axis) error {
	if !a.Horizontal() {
		return fmt.Errorf("%w: crack edit axis must be X or Z, got %s", grid.ErrPrecondition, a)
	}
	e.cracks.EditAxis = a
	return nil
}

// CrackEditAxis returns the current crack edit axis.
func (e *Engine) CrackEditAxis() grid.Axis {
	return e.cracks.EditAxis
}

// RemoveCrack removes the cracks whose constant coordinate sits on the grid
// line nearest point along the edit axis.
func (e *Engine) RemoveCrack(point float64) (int, error) {
	return e.cracks.RemoveCrack(e.WorkingGrid(), point)
}

// Cracks returns every stored crack.
func (e *Engine) Cracks() []Crack {
	return e.cracks.Cracks()
}

// ---------------------------------------------------------------------------
// Pressure field
// ---------------------------------------------------------------------------

// SetPressureSamples loads a sample map and activates a wind direction.
func (e *Engine) SetPressureSamples(samples map[pressure.SampleKey]float64, direction string) {
	e.field = pressure.NewField(samples, direction, e.opts.Pressure)
}

// SetWindDirection switches the active wind direction.
func (e *Engine) SetWindDirection(direction string) error {
	if e.field == nil {
		return ErrNoPressureField
	}
	e.field.SetDirection(direction)
	return nil
}

// PressureField returns a copy of the loaded field, or nil.
func (e *Engine) PressureField() *pressure.Field {
	if e.field == nil {
		return nil
	}
	return e.field.Clone()
}

// PressureCells samples the field for every X/Z cell of the working grid,
// keyed relative to the building's near corner.
func (e *Engine) PressureCells() (pressure.CellGrid, error) {
	if e.field == nil {
		return pressure.CellGrid{}, ErrNoPressureField
	}
	if e.building == nil {
		return pressure.CellGrid{}, ErrNoBuilding
	}
	w := e.WorkingGrid()
	lo, _ := e.building.Extent(w)
	cg := e.field.RebuildPerCellColors(w[grid.AxisX], w[grid.AxisZ], lo.X, lo.Z)
	if cg.Misses > 0 {
		e.logger.Debug("pressure lookups missed", "direction", e.field.Direction(), "misses", cg.Misses)
	}
	return cg, nil
}
