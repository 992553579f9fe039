// Package config loads vapordomain settings from defaults, a YAML file,
// VAPORDOMAIN_ environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/vapordomain/pkg/domain"
	"github.com/chazu/vapordomain/pkg/engine"
	"github.com/chazu/vapordomain/pkg/grid"
	"github.com/chazu/vapordomain/pkg/kernel/sdfx"
	"github.com/chazu/vapordomain/pkg/pressure"
	"github.com/chazu/vapordomain/pkg/tessellate"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read by Load.
const EnvPrefix = "VAPORDOMAIN_"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "vapordomain.yaml"

// Config is the full settings tree.
type Config struct {
	Grid     GridConfig     `koanf:"grid"`
	Crack    CrackConfig    `koanf:"crack"`
	Building BuildingConfig `koanf:"building"`
	Pressure PressureConfig `koanf:"pressure"`
	Mesh     MeshConfig     `koanf:"mesh"`
	Log      LogConfig      `koanf:"log"`
	Eval     EvalConfig     `koanf:"eval"`
	Store    StoreConfig    `koanf:"store"`
}

// GridConfig tunes the working grid.
type GridConfig struct {
	PaddingOffsets []float64 `koanf:"padding_offsets"`
	PaddingAxes    []string  `koanf:"padding_axes"`
	MinSpacing     float64   `koanf:"min_spacing"`
	Tolerance      float64   `koanf:"tolerance"`
}

// CrackConfig tunes crack validation.
type CrackConfig struct {
	Clearance       int     `koanf:"clearance"`
	DedupeTolerance float64 `koanf:"dedupe_tolerance"`
	RemoveTolerance float64 `koanf:"remove_tolerance"`
}

// BuildingConfig tunes the building face guards.
type BuildingConfig struct {
	EdgeEpsilon float64 `koanf:"edge_epsilon"`
}

// PressureConfig sets the overlay gradient and sample key granularity.
type PressureConfig struct {
	MinColor string  `koanf:"min_color"`
	MaxColor string  `koanf:"max_color"`
	KeyScale float64 `koanf:"key_scale"`
}

// MeshConfig tunes tessellation.
type MeshConfig struct {
	Cells      int     `koanf:"cells"`
	CrackWidth float64 `koanf:"crack_width"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// EvalConfig bounds script evaluation.
type EvalConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig names the default database.
type StoreConfig struct {
	Path string `koanf:"path"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"grid.padding_offsets":   append([]float64(nil), grid.DefaultPaddingOffsets...),
		"grid.padding_axes":      []string{"x", "z"},
		"grid.min_spacing":       grid.DefaultMinSpacing,
		"grid.tolerance":         grid.DefaultTolerance,
		"crack.clearance":        domain.DefaultCrackClearance,
		"crack.dedupe_tolerance": domain.DefaultCrackDedupeTolerance,
		"crack.remove_tolerance": domain.DefaultCrackRemoveTolerance,
		"building.edge_epsilon":  domain.DefaultEdgeEpsilon,
		"pressure.min_color":     "#0000ff",
		"pressure.max_color":     "#ff0000",
		"pressure.key_scale":     float64(pressure.DefaultKeyScale),
		"mesh.cells":             sdfx.DefaultMeshCells,
		"mesh.crack_width":       tessellate.DefaultCrackWidth,
		"log.level":              "info",
		"log.format":             "text",
		"eval.timeout":           engine.EvalTimeout,
		"store.path":             "",
	}
}

// flagKeys maps CLI flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"timeout":    "eval.timeout",
	"mesh-cells": "mesh.cells",
	"db":         "store.path",
}

// Default returns the built-in configuration without reading files,
// environment or flags.
func Default() *Config {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		panic(fmt.Sprintf("config: load defaults: %v", err))
	}
	cfg, err := decode(k)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return cfg
}

// Load reads configuration. An empty path falls back to DefaultFile when it
// exists. Only flags that were explicitly set override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// VAPORDOMAIN_CRACK_DEDUPE_TOLERANCE -> crack.dedupe_tolerance
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return decode(k)
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and parses colors, axes and the log level.
func (c *Config) Validate() error {
	if c.Grid.MinSpacing <= 0 {
		return fmt.Errorf("config: grid.min_spacing must be positive, got %g", c.Grid.MinSpacing)
	}
	if c.Grid.Tolerance < 0 {
		return fmt.Errorf("config: grid.tolerance must not be negative, got %g", c.Grid.Tolerance)
	}
	for _, off := range c.Grid.PaddingOffsets {
		if off <= 0 {
			return fmt.Errorf("config: grid.padding_offsets must be positive, got %g", off)
		}
	}
	if _, err := c.paddingAxes(); err != nil {
		return err
	}
	if c.Crack.Clearance < 0 {
		return fmt.Errorf("config: crack.clearance must not be negative, got %d", c.Crack.Clearance)
	}
	if c.Building.EdgeEpsilon < 0 {
		return fmt.Errorf("config: building.edge_epsilon must not be negative, got %g", c.Building.EdgeEpsilon)
	}
	if c.Pressure.KeyScale <= 0 {
		return fmt.Errorf("config: pressure.key_scale must be positive, got %g", c.Pressure.KeyScale)
	}
	if _, err := c.PressureOptions(); err != nil {
		return err
	}
	if c.Mesh.Cells <= 0 {
		return fmt.Errorf("config: mesh.cells must be positive, got %d", c.Mesh.Cells)
	}
	if c.Mesh.CrackWidth <= 0 {
		return fmt.Errorf("config: mesh.crack_width must be positive, got %g", c.Mesh.CrackWidth)
	}
	if c.Eval.Timeout <= 0 {
		return fmt.Errorf("config: eval.timeout must be positive, got %s", c.Eval.Timeout)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func (c *Config) paddingAxes() ([]grid.Axis, error) {
	axes := make([]grid.Axis, 0, len(c.Grid.PaddingAxes))
	for _, s := range c.Grid.PaddingAxes {
		a, err := grid.ParseAxis(s)
		if err != nil {
			return nil, fmt.Errorf("config: grid.padding_axes: %w", err)
		}
		axes = append(axes, a)
	}
	return axes, nil
}

// PressureOptions parses the gradient endpoints.
func (c *Config) PressureOptions() (pressure.Options, error) {
	lo, err := colorful.Hex(c.Pressure.MinColor)
	if err != nil {
		return pressure.Options{}, fmt.Errorf("config: pressure.min_color %q: %w", c.Pressure.MinColor, err)
	}
	hi, err := colorful.Hex(c.Pressure.MaxColor)
	if err != nil {
		return pressure.Options{}, fmt.Errorf("config: pressure.max_color %q: %w", c.Pressure.MaxColor, err)
	}
	return pressure.Options{MinColor: lo, MaxColor: hi, KeyScale: c.Pressure.KeyScale}, nil
}

// DomainOptions converts the settings into engine options.
func (c *Config) DomainOptions() (domain.Options, error) {
	axes, err := c.paddingAxes()
	if err != nil {
		return domain.Options{}, err
	}
	po, err := c.PressureOptions()
	if err != nil {
		return domain.Options{}, err
	}
	return domain.Options{
		Grid: grid.Options{
			PaddingOffsets: append([]float64(nil), c.Grid.PaddingOffsets...),
			PaddingAxes:    axes,
			MinSpacing:     c.Grid.MinSpacing,
			Tolerance:      c.Grid.Tolerance,
		},
		Crack: domain.CrackOptions{
			Clearance:       c.Crack.Clearance,
			DedupeTolerance: c.Crack.DedupeTolerance,
			RemoveTolerance: c.Crack.RemoveTolerance,
		},
		Pressure:    po,
		EdgeEpsilon: c.Building.EdgeEpsilon,
	}, nil
}

// TessellateOptions returns the mesh settings.
func (c *Config) TessellateOptions() tessellate.Options {
	return tessellate.Options{CrackWidth: c.Mesh.CrackWidth}
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w at the configured level and format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.LogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EngineOptions returns the script engine settings.
func (c *Config) EngineOptions(logger *slog.Logger) []engine.Option {
	return []engine.Option{engine.WithTimeout(c.Eval.Timeout), engine.WithLogger(logger)}
}
