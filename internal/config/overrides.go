package config

// Overrides holds CLI flag values. Zero values mean the flag was not set
// and the config value stays.
type Overrides struct {
	Effect     string
	Cell       *float64
	Jitter     *float64
	Softy      *float64
	Edge       *float64
	Background string
	Foreground string
	Gradient   []string
	Mirror     bool
	CPUOnly    bool
	LogLevel   string
}

// Apply returns a copy of cfg with the overrides applied. Flags take
// precedence; booleans are ORed with the config value.
func (o Overrides) Apply(cfg *Config) *Config {
	out := *cfg
	out.Palette.Gradient = append([]string(nil), cfg.Palette.Gradient...)

	if o.Effect != "" {
		out.Effect.Name = o.Effect
	}
	if o.Cell != nil {
		out.Effect.Cell = o.Cell
	}
	if o.Jitter != nil {
		out.Effect.Jitter = o.Jitter
	}
	if o.Softy != nil {
		out.Effect.Softy = o.Softy
	}
	if o.Edge != nil {
		out.Effect.Edge = o.Edge
	}

	if o.Background != "" {
		out.Palette.Background = o.Background
	}
	if o.Foreground != "" {
		out.Palette.Foreground = o.Foreground
		out.Palette.Gradient = nil
	}
	if len(o.Gradient) > 0 {
		out.Palette.Gradient = append([]string(nil), o.Gradient...)
	}

	out.Export.Mirror = o.Mirror || cfg.Export.Mirror
	out.Engine.CPUOnly = o.CPUOnly || cfg.Engine.CPUOnly
	if o.LogLevel != "" {
		out.Log.Level = o.LogLevel
	}
	return &out
}
