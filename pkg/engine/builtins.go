package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/pressure"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before passing it to zygomys.
// It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: insert-point -> insert_point
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// A trailing keyword with no value reads as nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a grid.Vec3.
type sexpVec3 struct {
	vec grid.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpObject wraps a copy of a placed object.
type sexpObject struct {
	obj *domain.SpatialObject
}

func (o *sexpObject) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q :at (vec3 %g %g %g) :size (vec3 %g %g %g))", o.obj.Kind, o.obj.Name,
		o.obj.Origin.X, o.obj.Origin.Y, o.obj.Origin.Z, o.obj.Size.X, o.obj.Size.Y, o.obj.Size.Z)
}
func (o *sexpObject) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer, accepting floats with no fractional part.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected integer, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toAxis converts a keyword or string to a grid.Axis.
func toAxis(s zygo.Sexp) (grid.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	return grid.ParseAxis(name)
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (grid.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return grid.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// floatKW reads an optional numeric keyword, returning def when absent.
func (a kwArgs) floatKW(name string, def float64) (float64, error) {
	v, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// requireFloat reads a mandatory numeric keyword.
func (a kwArgs) requireFloat(name string) (float64, error) {
	if _, ok := a.kw[name]; !ok {
		return 0, fmt.Errorf("missing :%s", name)
	}
	return a.floatKW(name, 0)
}

// axisValue reads exactly one of :x, :y or :z.
func (a kwArgs) axisValue() (grid.Axis, float64, error) {
	var (
		axis  grid.Axis
		value float64
		found int
	)
	for _, ax := range grid.Axes {
		v, ok := a.kw[strings.ToLower(ax.String())]
		if !ok {
			continue
		}
		f, err := toFloat64(v)
		if err != nil {
			return 0, 0, fmt.Errorf("%s: %w", ax, err)
		}
		axis, value = ax, f
		found++
	}
	if found != 1 {
		return 0, 0, fmt.Errorf("expected exactly one of :x, :y, :z, got %d", found)
	}
	return axis, value, nil
}

func intSexp(n int) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(n)}
}

// ---------------------------------------------------------------------------
// Session state
// ---------------------------------------------------------------------------

// session is the per-evaluation state the builtins share. Pressure samples
// are collected here and handed to the engine once, since a Field is
// immutable after construction.
type session struct {
	eng       *domain.Engine
	logger    *slog.Logger
	samples   map[pressure.SampleKey]float64
	direction string
	dirty     bool
}

func newSession(de *domain.Engine, logger *slog.Logger) *session {
	s := &session{eng: de, logger: logger, samples: make(map[pressure.SampleKey]float64)}
	if f := de.PressureField(); f != nil {
		s.samples = f.Samples()
		s.direction = f.Direction()
	}
	return s
}

// flush installs the collected pressure samples.
func (s *session) flush() {
	if !s.dirty {
		return
	}
	s.eng.SetPressureSamples(s.samples, s.direction)
	s.dirty = false
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// objectKeywords are the keywords every placement builtin understands.
// Any other numeric keyword becomes an object attribute.
var objectKeywords = map[string]bool{"name": true, "at": true, "size": true, "color": true}

// registerBuiltins installs all vapordomain builtins into a zygomys
// environment. The builtins operate on the session's engine.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (domain :length 20 :depth 5 :width 20 :spacing-x 1 :spacing-y 1 :spacing-z 1)
	// -----------------------------------------------------------------------
	env.AddFunction("domain", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var dims, spacing grid.Vec3
		for _, f := range []struct {
			key string
			dst *float64
			def float64
		}{
			{"length", &dims.X, 0},
			{"depth", &dims.Y, 0},
			{"width", &dims.Z, 0},
			{"spacing-x", &spacing.X, 1},
			{"spacing-y", &spacing.Y, 1},
			{"spacing-z", &spacing.Z, 1},
		} {
			v, err := pa.floatKW(f.key, f.def)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("domain: %w", err)
			}
			*f.dst = v
		}
		if err := s.eng.Reset(dims, spacing); err != nil {
			return zygo.SexpNull, fmt.Errorf("domain: %w", err)
		}
		s.samples = make(map[pressure.SampleKey]float64)
		s.direction = ""
		s.dirty = false
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (insert-point :x 4.5) adds a permanent grid line
	// -----------------------------------------------------------------------
	env.AddFunction("insert_point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a, v, err := parseArgs(args).axisValue()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("insert-point: %w", err)
		}
		if err := s.eng.AddExtraPoint(a, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("insert-point: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (remove-point :z 3)
	// -----------------------------------------------------------------------
	env.AddFunction("remove_point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		a, v, err := parseArgs(args).axisValue()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-point: %w", err)
		}
		if err := s.eng.RemoveGridPoint(a, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-point: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (rebuild)
	// -----------------------------------------------------------------------
	env.AddFunction("rebuild", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := s.eng.RebuildWorkingGrid(); err != nil {
			return zygo.SexpNull, fmt.Errorf("rebuild: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var vec grid.Vec3
		for i, a := range grid.Axes {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", strings.ToLower(a.String()), err)
			}
			vec = vec.With(a, f)
		}
		return &sexpVec3{vec: vec}, nil
	})

	// -----------------------------------------------------------------------
	// (building :name "house" :at (vec3 5 0 5) :size (vec3 10 3 10))
	// (source :name "tce" :at ... :size ... :rate 0.02)
	// (soil :name "clay" :at ... :size ... :color "#8b4513" :permeability 1e-12)
	// -----------------------------------------------------------------------
	for _, kind := range []domain.ObjectKind{domain.KindBuilding, domain.KindSource, domain.KindSoil} {
		builtin := kind.String()
		env.AddFunction(builtin, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			obj := &domain.SpatialObject{Kind: kind}

			if v, ok := pa.kw["name"]; ok {
				n, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: name: %w", builtin, err)
				}
				obj.Name = n
			}
			if v, ok := pa.kw["color"]; ok {
				c, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: color: %w", builtin, err)
				}
				obj.Color = c
			}
			v, ok := pa.kw["size"]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: missing :size", builtin)
			}
			size, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: size: %w", builtin, err)
			}
			obj.Size = size
			if v, ok := pa.kw["at"]; ok {
				at, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: at: %w", builtin, err)
				}
				obj.Origin = at
			}
			for k, v := range pa.kw {
				if objectKeywords[k] {
					continue
				}
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: attribute %s: %w", builtin, k, err)
				}
				if obj.Attributes == nil {
					obj.Attributes = make(map[string]float64)
				}
				obj.Attributes[k] = f
			}

			placed, err := s.eng.PlaceSpatialObject(obj)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", builtin, err)
			}
			return &sexpObject{obj: placed}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (symmetric-building)
	// -----------------------------------------------------------------------
	env.AddFunction("symmetric_building", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := s.eng.MakeSymmetricalBuilding(); err != nil {
			return zygo.SexpNull, fmt.Errorf("symmetric-building: %w", err)
		}
		return &sexpObject{obj: s.eng.Building()}, nil
	})

	// -----------------------------------------------------------------------
	// (crack :axis :x :at 8 :from 6 :to 10) returns 1 if stored, 0 if a
	// duplicate
	// -----------------------------------------------------------------------
	env.AddFunction("crack", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["axis"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("crack: missing :axis")
		}
		a, err := toAxis(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("crack: axis: %w", err)
		}
		c := domain.Crack{Axis: a}
		for _, f := range []struct {
			key string
			dst *float64
		}{{"at", &c.Value}, {"from", &c.Start}, {"to", &c.End}} {
			if *f.dst, err = pa.requireFloat(f.key); err != nil {
				return zygo.SexpNull, fmt.Errorf("crack: %w", err)
			}
		}
		added, err := s.eng.AddCrack(c)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("crack: %w", err)
		}
		if !added {
			return intSexp(0), nil
		}
		return intSexp(1), nil
	})

	// -----------------------------------------------------------------------
	// (remove-crack :axis :x :at 8) returns the number removed
	// -----------------------------------------------------------------------
	env.AddFunction("remove_crack", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["axis"]; ok {
			a, err := toAxis(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("remove-crack: axis: %w", err)
			}
			if err := s.eng.SetCrackEditAxis(a); err != nil {
				return zygo.SexpNull, fmt.Errorf("remove-crack: %w", err)
			}
		}
		at, err := pa.requireFloat("at")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-crack: %w", err)
		}
		n, err := s.eng.RemoveCrack(at)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-crack: %w", err)
		}
		return intSexp(n), nil
	})

	// -----------------------------------------------------------------------
	// (sample "N" -100 250 3.5) records one pressure sample
	// -----------------------------------------------------------------------
	env.AddFunction("sample", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("sample requires direction, dx, dz and value, got %d arguments", len(args))
		}
		dir, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: direction: %w", err)
		}
		dx, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: dx: %w", err)
		}
		dz, err := toInt(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: dz: %w", err)
		}
		v, err := toFloat64(args[3])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: value: %w", err)
		}
		s.samples[pressure.SampleKey{Direction: dir, DX: dx, DZ: dz}] = v
		if s.direction == "" {
			s.direction = dir
		}
		s.dirty = true
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (wind "N") selects the active wind direction
	// -----------------------------------------------------------------------
	env.AddFunction("wind", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("wind requires a direction")
		}
		dir, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("wind: %w", err)
		}
		s.direction = dir
		s.dirty = true
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// Placement state machine:
	// (begin-placement :source "probe") (place-at 2 0) (resize 3 1) (advance) (commit)
	//
	// Registered as "begin_placement" since begin is a zygomys special form.
	// -----------------------------------------------------------------------
	env.AddFunction("begin_placement", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.kw) != 1 {
			return zygo.SexpNull, fmt.Errorf("begin-placement requires exactly one of :building, :source, :soil")
		}
		for k, v := range pa.kw {
			kind, err := domain.ParseObjectKind(k)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("begin-placement: %w", err)
			}
			objName := ""
			if v != zygo.SexpNull {
				if objName, err = toString(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("begin-placement: name: %w", err)
				}
			}
			if err := s.eng.BeginPlacement(kind, objName); err != nil {
				return zygo.SexpNull, fmt.Errorf("begin-placement: %w", err)
			}
		}
		return zygo.SexpNull, nil
	})

	env.AddFunction("place_at", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("place-at requires 2 coordinates, got %d", len(args))
		}
		u, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place-at: %w", err)
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place-at: %w", err)
		}
		if err := s.eng.PlaceAt(u, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("place-at: %w", err)
		}
		return zygo.SexpNull, nil
	})

	env.AddFunction("resize", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("resize requires 2 cell deltas, got %d", len(args))
		}
		du, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("resize: %w", err)
		}
		dv, err := toInt(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("resize: %w", err)
		}
		if err := s.eng.ResizePlacement(du, dv); err != nil {
			return zygo.SexpNull, fmt.Errorf("resize: %w", err)
		}
		return zygo.SexpNull, nil
	})

	env.AddFunction("advance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := s.eng.AdvancePlacement(); err != nil {
			return zygo.SexpNull, fmt.Errorf("advance: %w", err)
		}
		return zygo.SexpNull, nil
	})

	env.AddFunction("cancel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s.eng.CancelPlacement()
		return zygo.SexpNull, nil
	})

	env.AddFunction("commit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		obj, err := s.eng.CommitPlacement()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("commit: %w", err)
		}
		return &sexpObject{obj: obj}, nil
	})
}
