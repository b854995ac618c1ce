// Package effect defines the visual effects, their glyph alphabets and the
// tunable parameters that drive them.
package effect

import (
	"fmt"
	"strings"
)

// Type is one of the closed set of glyph effects.
type Type int

const (
	ASCII Type = iota
	Shapes
	Circles
	Squares
	Triangles
	Diamonds
)

// Types lists every effect in display order.
var Types = []Type{ASCII, Shapes, Circles, Squares, Triangles, Diamonds}

// asciiRamp is ordered from void to densest. The run of backslashes is
// intentional: each is its own density level.
const asciiRamp = " .'`\\\"^,:;Il!i><~+_-?][}{1)(|\\\\\\\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"

var charsets = [...][]rune{
	ASCII:     []rune(asciiRamp),
	Shapes:    []rune(" ▁·▖▂∙▗▃•▘▅▙▛█"),
	Circles:   []rune(" ·∙•●⬤"),
	Squares:   []rune(" ▁▂▃▄▅▆▇█"),
	Triangles: []rune(" ˙·▵△▴▲"),
	Diamonds:  []rune(" ▖▗▘▝▚▞▙▛▜▟█"),
}

var names = [...]string{
	ASCII:     "ascii",
	Shapes:    "shapes",
	Circles:   "circles",
	Squares:   "squares",
	Triangles: "triangles",
	Diamonds:  "diamonds",
}

var supported = [...][]Parameter{
	ASCII:     {Cell, Jitter, Softy, Edge},
	Shapes:    {Cell, Jitter, Softy},
	Circles:   {Cell, Jitter, Softy},
	Squares:   {Cell, Edge},
	Triangles: {Cell, Jitter},
	Diamonds:  {Cell, Softy, Edge},
}

// Valid reports whether t is one of the defined effects.
func (t Type) Valid() bool {
	return t >= ASCII && t <= Diamonds
}

// String returns the lower-case effect name used in configuration files.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("effect(%d)", int(t))
	}
	return names[t]
}

// Charset returns a copy of the effect's ordered glyph alphabet. Index 0 is
// the empty glyph, the last index the densest.
func (t Type) Charset() []rune {
	if !t.Valid() {
		return nil
	}
	out := make([]rune, len(charsets[t]))
	copy(out, charsets[t])
	return out
}

// GlyphCount returns the alphabet length without copying it.
func (t Type) GlyphCount() int {
	if !t.Valid() {
		return 0
	}
	return len(charsets[t])
}

// Glyph returns the glyph at index i, clamped to the alphabet.
func (t Type) Glyph(i int) rune {
	cs := charsets[t]
	if i < 0 {
		i = 0
	}
	if i >= len(cs) {
		i = len(cs) - 1
	}
	return cs[i]
}

// SupportedParameters returns the parameters the effect responds to.
func (t Type) SupportedParameters() []Parameter {
	if !t.Valid() {
		return nil
	}
	return append([]Parameter(nil), supported[t]...)
}

// Supports reports whether p is tunable for the effect.
func (t Type) Supports(p Parameter) bool {
	for _, s := range t.SupportedParameters() {
		if s == p {
			return true
		}
	}
	return false
}

// ParseType converts a case-insensitive effect name to a Type.
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range names {
		if n == name {
			return Type(t), nil
		}
	}
	return ASCII, fmt.Errorf("unknown effect %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid effect %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
