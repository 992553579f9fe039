// Package pressure maps a precomputed scalar pressure field onto the cells
// of the working grid. Samples are keyed by wind direction and by integer
// offsets from the building's near corner, in hundredths of a distance unit
// unless KeyScale says otherwise.
package pressure

import (
	"math"
	"sort"

	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"
)

// DefaultKeyScale converts world offsets into sample-map key units.
const DefaultKeyScale = 100

// SampleKey addresses one pressure sample.
type SampleKey struct {
	Direction string `json:"direction"`
	DX        int    `json:"dx"`
	DZ        int    `json:"dz"`
}

// Options holds the color endpoints and key granularity.
type Options struct {
	MinColor colorful.Color
	MaxColor colorful.Color
	KeyScale float64
}

// DefaultOptions blends from blue at the minimum to red at the maximum.
func DefaultOptions() Options {
	return Options{
		MinColor: colorful.Color{R: 0, G: 0, B: 1},
		MaxColor: colorful.Color{R: 1, G: 0, B: 0},
		KeyScale: DefaultKeyScale,
	}
}

// Field is a read-only sample map plus the value range of the active wind
// direction.
type Field struct {
	samples   map[SampleKey]float64
	direction string
	lo, hi    float64
	opts      Options
}

// NewField copies samples and activates direction.
func NewField(samples map[SampleKey]float64, direction string, opts Options) *Field {
	if opts.KeyScale == 0 {
		opts.KeyScale = DefaultKeyScale
	}
	f := &Field{samples: make(map[SampleKey]float64, len(samples)), opts: opts}
	for k, v := range samples {
		f.samples[k] = v
	}
	f.SetDirection(direction)
	return f
}

// Clone returns an independent copy.
func (f *Field) Clone() *Field {
	return NewField(f.samples, f.direction, f.opts)
}

// Options returns the color endpoints and key scale.
func (f *Field) Options() Options {
	return f.opts
}

// Samples returns a copy of the sample map.
func (f *Field) Samples() map[SampleKey]float64 {
	out := make(map[SampleKey]float64, len(f.samples))
	for k, v := range f.samples {
		out[k] = v
	}
	return out
}

// Len returns the number of samples across all directions.
func (f *Field) Len() int {
	return len(f.samples)
}

// Direction returns the active wind direction.
func (f *Field) Direction() string {
	return f.direction
}

// Directions lists the wind directions present in the sample map.
func (f *Field) Directions() []string {
	seen := make(map[string]bool)
	var dirs []string
	for k := range f.samples {
		if !seen[k.Direction] {
			seen[k.Direction] = true
			dirs = append(dirs, k.Direction)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// SetDirection activates dir and recomputes the value range over its samples.
func (f *Field) SetDirection(dir string) {
	f.direction = dir
	var vals []float64
	for k, v := range f.samples {
		if k.Direction == dir {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		f.lo, f.hi = 0, 0
		return
	}
	f.lo, f.hi = floats.Min(vals), floats.Max(vals)
}

// Range returns the minimum and maximum sample of the active direction.
func (f *Field) Range() (lo, hi float64) {
	return f.lo, f.hi
}

// Lookup returns the sample at the given key offsets under the active direction.
func (f *Field) Lookup(dx, dz int) (float64, bool) {
	v, ok := f.samples[SampleKey{Direction: f.direction, DX: dx, DZ: dz}]
	return v, ok
}

// InterpolateColor blends linearly between the endpoint colors. Values at or
// beyond either end of the range return that endpoint exactly. A degenerate
// range, including a direction with no samples, maps everything to MinColor.
func (f *Field) InterpolateColor(v float64) colorful.Color {
	if f.hi <= f.lo || v <= f.lo {
		return f.opts.MinColor
	}
	if v >= f.hi {
		return f.opts.MaxColor
	}
	t := (v - f.lo) / (f.hi - f.lo)
	return f.opts.MinColor.BlendRgb(f.opts.MaxColor, t)
}

// Key converts a world offset from the corner into sample-map units.
func (f *Field) Key(offset float64) int {
	return int(math.Round(offset * f.opts.KeyScale))
}

// CellGrid holds one value and color per (x cell, z cell) pair in
// row-major order over x.
type CellGrid struct {
	NX, NZ int
	Values []float64
	Colors []colorful.Color
	Misses int // cells with no sample; their value defaulted to 0
}

// At returns the value and color of cell (i, j).
func (c CellGrid) At(i, j int) (float64, colorful.Color) {
	k := i*c.NZ + j
	return c.Values[k], c.Colors[k]
}

// RebuildPerCellColors samples the field for every cell of the X/Z working
// grid. Each cell is keyed by the offset of its low corner from
// (cornerX, cornerZ). A missing sample reads as zero.
func (f *Field) RebuildPerCellColors(x, z grid.GridAxis, cornerX, cornerZ float64) CellGrid {
	nx, nz := max(x.Len()-1, 0), max(z.Len()-1, 0)
	cg := CellGrid{
		NX:     nx,
		NZ:     nz,
		Values: make([]float64, nx*nz),
		Colors: make([]colorful.Color, nx*nz),
	}
	for i := 0; i < nx; i++ {
		dx := f.Key(x.Position(i) - cornerX)
		for j := 0; j < nz; j++ {
			dz := f.Key(z.Position(j) - cornerZ)
			v, ok := f.Lookup(dx, dz)
			if !ok {
				cg.Misses++
			}
			k := i*nz + j
			cg.Values[k] = v
			cg.Colors[k] = f.InterpolateColor(v)
		}
	}
	return cg
}
