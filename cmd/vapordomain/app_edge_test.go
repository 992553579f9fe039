package main

import (
	"testing"

	"github.com/chazu/vapordomain/pkg/grid"
)

// ---------------------------------------------------------------------------
// Empty and comment-only sources
// ---------------------------------------------------------------------------

func TestE2ECommentsAndWhitespace(t *testing.T) {
	for _, source := range []string{
		"   \n\t\n  ",
		";; only a comment",
		";; a comment\n\n  ; another with :keyword\n",
	} {
		app := newTestApp(t)
		result := app.Evaluate(source, true)
		if len(result.Errors) != 0 {
			t.Errorf("%q: unexpected errors %v", source, result.Errors)
		}
		if len(result.Meshes) != 0 {
			t.Errorf("%q: expected 0 meshes, got %d", source, len(result.Meshes))
		}
	}
}

// ---------------------------------------------------------------------------
// Syntax errors
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp(t)

	// Valid code on line 1, broken code on line 2 so line info is meaningful.
	source := "(+ 1 2)\n(building :name \"house\""
	result := app.Evaluate(source, true)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

// ---------------------------------------------------------------------------
// Dimension edge cases
// ---------------------------------------------------------------------------

func TestE2EInvalidDimensions(t *testing.T) {
	for _, source := range []string{
		`(domain :length 0 :depth 5 :width 5)`,
		`(domain :length -10 :depth 5 :width 5)`,
		`(domain :length 10 :depth 5 :width 5 :spacing-x 0)`,
	} {
		app := newTestApp(t)
		before := app.Document().Snapshot().Dims()
		result := app.Evaluate(source, false)
		if len(result.Errors) == 0 {
			t.Errorf("%s: expected an error", source)
		}
		if got := app.Document().Snapshot().Dims(); got != before {
			t.Errorf("%s: dims changed to %v", source, got)
		}
	}
}

func TestE2EFloatingPointDimensions(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`
(domain :length 12.5 :depth 3.25 :width 7.5 :spacing-x 2.5 :spacing-z 2.5)
(building :at (vec3 2.5 0 2.5) :size (vec3 5 2 2.5))
`, true)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}

	snap := app.Document().Snapshot()
	if lo, hi := snap.Working(grid.AxisX).Bounds(); lo != 0 || hi != 12.5 {
		t.Errorf("x bounds = [%g, %g], want [0, 12.5]", lo, hi)
	}
	if n := len(result.Meshes); n != 1 {
		t.Fatalf("expected 1 mesh, got %d", n)
	}
	if result.Meshes[0].Color == "" {
		t.Error("building mesh has no color")
	}
}

func TestE2ELargeDomain(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`
(domain :length 500 :depth 40 :width 400 :spacing-x 10 :spacing-y 5 :spacing-z 10)
(building :at (vec3 200 0 150) :size (vec3 100 10 100))
(symmetric-building)
`, false)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	b := app.Document().Snapshot().Building()
	if b == nil || b.Size != (grid.Vec3{X: 100, Y: 10, Z: 100}) {
		t.Errorf("building = %+v", b)
	}
}

// ---------------------------------------------------------------------------
// Rapid sequential evaluation
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	// Sequential calls on one App exercise the generation counter. zygomys
	// sandboxes are created one at a time, as the engine does in production.
	app := newTestApp(t)

	sources := []string{
		`(domain :length 10 :depth 4 :width 10)`,
		`(building :at (vec3 2 0 2) :size (vec3 6 2 6))`,
		`(+ 1 2)`,
		``,
		`(remove-point :x 2)`,
		`(source :name "s1" :at (vec3 1 0 1) :size (vec3 1 1 1))`,
		`(building :name`,
		`(soil :name "sand" :at (vec3 0 0 0) :size (vec3 10 1 10))`,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked: %v", i, r)
				}
			}()
			app.Evaluate(source, false)
		}()
	}

	// Successful scripts accumulate; failed ones leave no trace.
	snap := app.Document().Snapshot()
	if snap.Building() == nil {
		t.Fatal("building lost")
	}
	if n := len(snap.Sources()); n != 1 {
		t.Errorf("sources = %d, want 1", n)
	}
	if n := len(snap.Soils()); n != 1 {
		t.Errorf("soils = %d, want 1", n)
	}
	if !snap.Working(grid.AxisX).HasPoint(2) {
		t.Error("x=2 building edge removed")
	}
}
