// Package palette describes the background and symbol colours applied to a
// rendered glyph grid.
package palette

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Preset names one of the built-in colours.
type Preset string

const (
	Black   Preset = "black"
	White   Preset = "white"
	Cyan    Preset = "cyan"
	Magenta Preset = "magenta"
	Yellow  Preset = "yellow"
	Orange  Preset = "orange"
	Pink    Preset = "pink"
	Teal    Preset = "teal"
)

// Presets lists the built-in colours in display order.
var Presets = []Preset{Black, White, Cyan, Magenta, Yellow, Orange, Pink, Teal}

var presetValues = map[Preset][3]float64{
	Black:   {0, 0, 0},
	White:   {1, 1, 1},
	Cyan:    {0, 0.68, 0.94},
	Magenta: {0.8, 0.13, 0.75},
	Yellow:  {1, 0.89, 0.01},
	Orange:  {0.99, 0.55, 0},
	Pink:    {1, 0.53, 0.77},
	Teal:    {0, 0.76, 0.75},
}

// Color is a straight-alpha RGBA colour with channels in [0,1]. Preset is
// set when the colour came from one of the built-in presets.
type Color struct {
	R, G, B, A float64
	Preset     Preset
}

// RGB returns an opaque colour with clamped channels.
func RGB(r, g, b float64) Color {
	return RGBA(r, g, b, 1)
}

// RGBA returns a colour with clamped channels.
func RGBA(r, g, b, a float64) Color {
	return Color{R: unit(r), G: unit(g), B: unit(b), A: unit(a)}
}

// FromPreset returns the colour for p. Unknown presets yield opaque black.
func FromPreset(p Preset) Color {
	v, ok := presetValues[p]
	if !ok {
		return RGB(0, 0, 0)
	}
	c := RGB(v[0], v[1], v[2])
	c.Preset = p
	return c
}

// Parse accepts a preset name, "#rrggbb" or "#rrggbbaa".
func Parse(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := presetValues[Preset(s)]; ok {
		return FromPreset(Preset(s)), nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}
	return RGBA(
		float64(v>>24&0xff)/255,
		float64(v>>16&0xff)/255,
		float64(v>>8&0xff)/255,
		float64(v&0xff)/255,
	), nil
}

// Hex formats the colour as "#rrggbb", or "#rrggbbaa" when not opaque.
func (c Color) Hex() string {
	n := c.NRGBA()
	if n.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}

// NRGBA converts to an 8-bit straight-alpha colour.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: to8(c.A)}
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return c.NRGBA().RGBA()
}

// Floats returns the channels as float32, for GPU uniform blocks.
func (c Color) Floats() [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

// Lerp interpolates linearly from c to d by t in [0,1].
func (c Color) Lerp(d Color, t float64) Color {
	t = unit(t)
	return RGBA(
		c.R+(d.R-c.R)*t,
		c.G+(d.G-c.G)*t,
		c.B+(d.B-c.B)*t,
		c.A+(d.A-c.A)*t,
	)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if c.Preset != "" {
		return []byte(c.Preset), nil
	}
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(math.Round(unit(v) * 255))
}
