package domain

import (
	"fmt"
	"log/slog"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/pressure"
)

// Records is the persistable form of an Engine. Objects are restored from
// their world-space record, so indices are re-derived against whatever
// working grid the restored base and extras produce.
type Records struct {
	Base          [3][]grid.GridLine
	Extras        []grid.ExtraPoint
	Cracks        []Crack
	CrackEditAxis grid.Axis
	Objects       []SpatialObject
	Samples       map[pressure.SampleKey]float64
	WindDirection string
}

// Records captures the engine state.
func (e *Engine) Records() Records {
	r := Records{
		Extras:        e.grid.Extras(),
		Cracks:        e.cracks.Cracks(),
		CrackEditAxis: e.cracks.EditAxis,
	}
	for _, a := range grid.Axes {
		r.Base[a] = e.grid.Base(a).Lines()
	}
	for _, o := range e.objects() {
		r.Objects = append(r.Objects, *o.Clone())
	}
	if e.field != nil {
		r.Samples = e.field.Samples()
		r.WindDirection = e.field.Direction()
	}
	return r
}

// Restore builds an engine from records.
func Restore(r Records, opts Options, logger *slog.Logger) (*Engine, error) {
	var base [3]grid.GridAxis
	for _, a := range grid.Axes {
		base[a] = grid.NewAxisFromLines(r.Base[a])
	}
	e, err := NewEngine(base, opts, logger)
	if err != nil {
		return nil, err
	}
	if err := e.grid.SetExtras(r.Extras); err != nil {
		return nil, err
	}
	w := e.WorkingGrid()
	for i := range r.Objects {
		obj := r.Objects[i].Clone()
		if err := obj.resnap(w); err != nil {
			return nil, err
		}
		if err := e.install(obj); err != nil {
			return nil, err
		}
	}
	if err := e.cracks.SetCracks(r.Cracks); err != nil {
		return nil, err
	}
	if r.CrackEditAxis.Horizontal() {
		e.cracks.EditAxis = r.CrackEditAxis
	}
	if r.Samples != nil {
		e.SetPressureSamples(r.Samples, r.WindDirection)
	}
	return e, nil
}

// String summarizes the records for logs.
func (r Records) String() string {
	return fmt.Sprintf("grid %dx%dx%d, %d extra points, %d objects, %d cracks, %d samples",
		len(r.Base[grid.AxisX]), len(r.Base[grid.AxisY]), len(r.Base[grid.AxisZ]),
		len(r.Extras), len(r.Objects), len(r.Cracks), len(r.Samples))
}
