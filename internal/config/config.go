// Package config loads the monoart CLI configuration from
// $XDG_CONFIG_HOME/monoart/config.toml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/Barryalien23/monoart"
	"github.com/Barryalien23/monoart/compose"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/palette"
)

// RelPath is the config file location relative to the XDG config home.
const RelPath = "monoart/config.toml"

// Config is the user configuration.
type Config struct {
	Engine  EngineConfig  `toml:"engine"`
	Effect  EffectConfig  `toml:"effect"`
	Palette PaletteConfig `toml:"palette"`
	Export  ExportConfig  `toml:"export"`
	Log     LogConfig     `toml:"log"`
}

// EngineConfig holds the cell budgets.
type EngineConfig struct {
	MaxPreviewCells int  `toml:"max_preview_cells"`
	MaxCaptureCells int  `toml:"max_capture_cells"`
	CPUOnly         bool `toml:"cpu_only"`
}

// EffectConfig selects the effect and its parameters. Unset parameters
// take the effect defaults.
type EffectConfig struct {
	Name   string   `toml:"name"`
	Cell   *float64 `toml:"cell"`
	Jitter *float64 `toml:"jitter"`
	Softy  *float64 `toml:"softy"`
	Edge   *float64 `toml:"edge"`
}

// PaletteConfig holds colours as preset names or hex. A non-empty
// Gradient overrides Foreground; its stops are spread evenly.
type PaletteConfig struct {
	Background string   `toml:"background"`
	Foreground string   `toml:"foreground"`
	Gradient   []string `toml:"gradient"`
}

// ExportConfig controls PNG export.
type ExportConfig struct {
	Mirror bool `toml:"mirror"`
	Width  int  `toml:"width"`
	Height int  `toml:"height"`
}

// LogConfig sets the log level: debug, info, warn, error or off.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	p := effect.DefaultParameters()
	return &Config{
		Engine: EngineConfig{
			MaxPreviewCells: monoart.DefaultMaxPreviewCells,
			MaxCaptureCells: monoart.DefaultMaxCaptureCells,
		},
		Effect: EffectConfig{
			Name:   effect.ASCII.String(),
			Cell:   &p.Cell,
			Jitter: &p.Jitter,
			Softy:  &p.Softy,
			Edge:   &p.Edge,
		},
		Palette: PaletteConfig{
			Background: string(palette.Black),
			Foreground: string(palette.White),
		},
		Export: ExportConfig{
			Width:  compose.PortraitWidth,
			Height: compose.PortraitHeight,
		},
		Log: LogConfig{Level: "off"},
	}
}

// Load reads the user config, creating a default file when none exists.
func Load() (*Config, error) {
	path, err := xdg.SearchConfigFile(RelPath)
	if err != nil {
		return createDefault()
	}
	return LoadFile(path)
}

// LoadFile reads and validates the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	fillMissing(&cfg, DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file in use, or where it would be created.
func Path() (string, error) {
	path, err := xdg.SearchConfigFile(RelPath)
	if err != nil {
		return xdg.ConfigFile(RelPath)
	}
	return path, nil
}

func createDefault() (*Config, error) {
	path, err := xdg.ConfigFile(RelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	cfg := DefaultConfig()
	if err := Write(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg at path with a commented header.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# monoart configuration\n")
	sb.WriteString("# Location: " + path + "\n")
	sb.WriteString("#\n")
	sb.WriteString("# [engine] max_preview_cells / max_capture_cells: grid cell budgets\n")
	sb.WriteString("# [effect] name: " + strings.Join(effectNames(), ", ") + "\n")
	sb.WriteString("#          cell, jitter, softy, edge: 0 to 100\n")
	sb.WriteString("# [palette] colours are preset names or #rrggbb[aa]\n")
	sb.WriteString("#   presets: " + strings.Join(presetNames(), ", ") + "\n")
	sb.WriteString("#   gradient: 2 to 4 colours, overrides foreground\n")
	sb.WriteString("# [export] width/height: portrait canvas size in pixels\n")
	sb.WriteString("# [log] level: debug, info, warn, error, off\n\n")
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func effectNames() []string {
	names := make([]string, len(effect.Types))
	for i, t := range effect.Types {
		names[i] = t.String()
	}
	return names
}

func presetNames() []string {
	names := make([]string, len(palette.Presets))
	for i, p := range palette.Presets {
		names[i] = string(p)
	}
	return names
}

// fillMissing copies defaults into unset fields.
func fillMissing(cfg, def *Config) {
	if cfg.Engine.MaxPreviewCells == 0 {
		cfg.Engine.MaxPreviewCells = def.Engine.MaxPreviewCells
	}
	if cfg.Engine.MaxCaptureCells == 0 {
		cfg.Engine.MaxCaptureCells = def.Engine.MaxCaptureCells
	}

	if cfg.Effect.Name == "" {
		cfg.Effect.Name = def.Effect.Name
	}
	if cfg.Effect.Cell == nil {
		cfg.Effect.Cell = def.Effect.Cell
	}
	if cfg.Effect.Jitter == nil {
		cfg.Effect.Jitter = def.Effect.Jitter
	}
	if cfg.Effect.Softy == nil {
		cfg.Effect.Softy = def.Effect.Softy
	}
	if cfg.Effect.Edge == nil {
		cfg.Effect.Edge = def.Effect.Edge
	}

	if cfg.Palette.Background == "" {
		cfg.Palette.Background = def.Palette.Background
	}
	if cfg.Palette.Foreground == "" {
		cfg.Palette.Foreground = def.Palette.Foreground
	}

	if cfg.Export.Width <= 0 {
		cfg.Export.Width = def.Export.Width
	}
	if cfg.Export.Height <= 0 {
		cfg.Export.Height = def.Export.Height
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxPreviewCells < 0 || c.Engine.MaxCaptureCells < 0 {
		errs = append(errs, fmt.Errorf("[engine] cell budgets must not be negative"))
	}
	if _, err := effect.ParseType(c.Effect.Name); err != nil {
		errs = append(errs, fmt.Errorf("[effect] name: %w", err))
	}
	if _, err := c.PaletteState(); err != nil {
		errs = append(errs, fmt.Errorf("[palette] %w", err))
	}
	if c.Export.Width > c.Export.Height {
		errs = append(errs, fmt.Errorf("[export] canvas must be portrait, got %dx%d", c.Export.Width, c.Export.Height))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("[log] %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration has %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// EngineConfiguration returns the engine budgets.
func (c *Config) EngineConfiguration() monoart.EngineConfiguration {
	return monoart.EngineConfiguration{
		MaxPreviewCells: c.Engine.MaxPreviewCells,
		MaxCaptureCells: c.Engine.MaxCaptureCells,
	}
}

// EffectType returns the configured effect.
func (c *Config) EffectType() (effect.Type, error) {
	return effect.ParseType(c.Effect.Name)
}

// Parameters returns the configured parameters, clamped.
func (c *Config) Parameters() effect.Parameters {
	p := effect.DefaultParameters()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Cell, c.Effect.Cell)
	set(&p.Jitter, c.Effect.Jitter)
	set(&p.Softy, c.Effect.Softy)
	set(&p.Edge, c.Effect.Edge)
	return p.Clamped()
}

// PaletteState parses the configured colours.
func (c *Config) PaletteState() (palette.State, error) {
	bg, err := palette.Parse(c.Palette.Background)
	if err != nil {
		return palette.State{}, fmt.Errorf("background: %w", err)
	}
	if len(c.Palette.Gradient) == 0 {
		fg, err := palette.Parse(c.Palette.Foreground)
		if err != nil {
			return palette.State{}, fmt.Errorf("foreground: %w", err)
		}
		return palette.State{Background: bg, Symbols: palette.Solid(fg)}, nil
	}

	stops := make([]palette.GradientStop, len(c.Palette.Gradient))
	for i, s := range c.Palette.Gradient {
		col, err := palette.Parse(s)
		if err != nil {
			return palette.State{}, fmt.Errorf("gradient: %w", err)
		}
		pos := 0.0
		if len(c.Palette.Gradient) > 1 {
			pos = float64(i) / float64(len(c.Palette.Gradient)-1)
		}
		stops[i] = palette.Stop(pos, col)
	}
	symbols, err := palette.Gradient(stops...)
	if err != nil {
		return palette.State{}, fmt.Errorf("gradient: %w", err)
	}
	return palette.State{Background: bg, Symbols: symbols}, nil
}

// Settings returns the effect, parameters and palette as one value.
func (c *Config) Settings() (monoart.Settings, error) {
	t, err := c.EffectType()
	if err != nil {
		return monoart.Settings{}, err
	}
	pal, err := c.PaletteState()
	if err != nil {
		return monoart.Settings{}, err
	}
	return monoart.Settings{Effect: t, Parameters: c.Parameters(), Palette: pal}, nil
}

// LevelOff disables logging.
const LevelOff = slog.Level(99)

// ParseLevel maps a level name to a slog level. "off" yields LevelOff.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off", "":
		return LevelOff, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
