package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chazu/vapordomain/pkg/config"
	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/engine"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/kernel"
	"github.com/chazu/vapordomain/pkg/kernel/sdfx"
	"github.com/chazu/vapordomain/pkg/store"
	"github.com/chazu/vapordomain/pkg/tessellate"
)

// DefaultDimensions is the domain a fresh document starts with, before a
// script calls (domain ...).
var DefaultDimensions = grid.Vec3{X: 10, Y: 5, Z: 10}

// App ties a document to the script engine, the mesh kernel and storage.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	doc    *domain.Document
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON-serializable mesh format written by run --json.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Colors   []float32 `json:"colors,omitempty"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Color    string    `json:"color,omitempty"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Summary string          `json:"summary,omitempty"`
	Meshes  []MeshData      `json:"meshes"`
	Errors  []EvalErrorData `json:"errors"`
}

// NewApp creates an App with an empty document, the script engine and the
// sdfx kernel, all tuned by cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts, err := cfg.DomainOptions()
	if err != nil {
		return nil, err
	}
	e, err := domain.NewEngineFromDimensions(DefaultDimensions, grid.Vec3{X: 1, Y: 1, Z: 1}, opts, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		doc:    domain.NewDocument(e),
		engine: engine.NewEngine(cfg.EngineOptions(logger)...),
		kernel: sdfx.New(cfg.Mesh.Cells),
	}, nil
}

// Document returns the document scripts run against.
func (a *App) Document() *domain.Document {
	return a.doc
}

// Evaluate runs source against the document. When render is set the
// committed state is tessellated, plus a pressure overlay when a field is
// loaded.
func (a *App) Evaluate(source string, render bool) EvalResult {
	result := EvalResult{
		Meshes: []MeshData{},
		Errors: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a committed document state.
	state, evalErrs, err := a.engine.Evaluate(a.doc, source)
	if err != nil {
		a.logger.Error("evaluate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors; the document is unchanged.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	var sb strings.Builder
	describe(&sb, state)
	result.Summary = sb.String()
	if !render {
		return result
	}

	// Step 3: Tessellate objects into triangle meshes.
	meshes, err := tessellate.Tessellate(state, a.kernel, a.cfg.TessellateOptions())
	if err != nil {
		a.logger.Error("tessellate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	if state.PressureField() != nil && state.Building() != nil {
		overlay, err := tessellate.PressureOverlay(state)
		if err != nil {
			a.logger.Warn("pressure overlay skipped", "error", err)
		} else {
			meshes = append(meshes, overlay)
		}
	}

	// Step 4: Convert kernel meshes to MeshData.
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Colors:   m.Colors,
			Name:     m.Name,
			Kind:     m.Kind,
			Color:    m.Color,
		})
	}
	return result
}

// Save writes the current document to st under name.
func (a *App) Save(ctx context.Context, st *store.Store, name string) (string, error) {
	return st.Save(ctx, name, a.doc.Snapshot().Records())
}

// Load replaces the document with the one saved under name.
func (a *App) Load(ctx context.Context, st *store.Store, name string) error {
	r, err := st.Load(ctx, name)
	if err != nil {
		return err
	}
	opts, err := a.cfg.DomainOptions()
	if err != nil {
		return err
	}
	e, err := domain.Restore(r, opts, a.logger)
	if err != nil {
		return fmt.Errorf("restore %q: %w", name, err)
	}
	a.doc.Replace(e)
	return nil
}

// describe prints the working grid, objects, cracks and pressure field.
func describe(w io.Writer, e *domain.Engine) {
	d := e.Dims()
	fmt.Fprintf(w, "grid: %d x %d x %d lines, %d extra points\n", d[0], d[1], d[2], len(e.ExtraPoints()))
	for _, a := range grid.Axes {
		lo, hi := e.Working(a).Bounds()
		fmt.Fprintf(w, "  %s: [%g, %g]\n", a, lo, hi)
	}
	for _, o := range e.Objects() {
		fmt.Fprintf(w, "%s %q: cells (%d,%d,%d)-(%d,%d,%d) origin (%g, %g, %g) size (%g, %g, %g)\n",
			o.Kind, o.Name,
			o.Min.X, o.Min.Y, o.Min.Z, o.Max.X, o.Max.Y, o.Max.Z,
			o.Origin.X, o.Origin.Y, o.Origin.Z, o.Size.X, o.Size.Y, o.Size.Z)
	}
	for _, c := range e.Cracks() {
		fmt.Fprintf(w, "crack %s=%g along %s [%g, %g]\n", c.Axis, c.Value, c.RunsAlong(), c.Start, c.End)
	}
	if f := e.PressureField(); f != nil {
		lo, hi := f.Range()
		fmt.Fprintf(w, "pressure: %d samples, wind %q, range [%g, %g]\n", f.Len(), f.Direction(), lo, hi)
	}
}
