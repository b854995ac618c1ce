package effect

import "fmt"

// Parameter names one of the four tunable scalars.
type Parameter int

const (
	Cell Parameter = iota
	Jitter
	Softy
	Edge
)

// AllParameters lists every parameter.
var AllParameters = []Parameter{Cell, Jitter, Softy, Edge}

// Bounds of every parameter value.
const (
	MinValue = 0.0
	MaxValue = 100.0
)

func (p Parameter) String() string {
	switch p {
	case Cell:
		return "cell"
	case Jitter:
		return "jitter"
	case Softy:
		return "softy"
	case Edge:
		return "edge"
	}
	return fmt.Sprintf("parameter(%d)", int(p))
}

// DisplayName is the label shown to users. Softy is presented as contrast.
func (p Parameter) DisplayName() string {
	switch p {
	case Cell:
		return "Cell"
	case Jitter:
		return "Jitter"
	case Softy:
		return "Contrast"
	case Edge:
		return "Edge"
	}
	return p.String()
}

// ParseParameter converts a parameter name to a Parameter.
func ParseParameter(s string) (Parameter, error) {
	for _, p := range AllParameters {
		if p.String() == s {
			return p, nil
		}
	}
	if s == "contrast" {
		return Softy, nil
	}
	return Cell, fmt.Errorf("unknown parameter %q", s)
}

// Parameters is a value snapshot of the four effect scalars. Every field
// stays within [MinValue, MaxValue] when mutated through Update.
type Parameters struct {
	Cell   float64 `toml:"cell"`
	Jitter float64 `toml:"jitter"`
	Softy  float64 `toml:"softy"`
	Edge   float64 `toml:"edge"`
}

// DefaultParameters returns cell 40, jitter 20, softy 10, edge 30.
func DefaultParameters() Parameters {
	return Parameters{Cell: 40, Jitter: 20, Softy: 10, Edge: 30}
}

// NewParameters builds a Parameters value with every input clamped.
func NewParameters(cell, jitter, softy, edge float64) Parameters {
	return Parameters{
		Cell:   Clamp(cell),
		Jitter: Clamp(jitter),
		Softy:  Clamp(softy),
		Edge:   Clamp(edge),
	}
}

// Clamp limits v to [MinValue, MaxValue]. NaN maps to MinValue.
func Clamp(v float64) float64 {
	if v != v || v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}

// Update sets parameter p to the clamped value.
func (ps *Parameters) Update(p Parameter, value float64) {
	v := Clamp(value)
	switch p {
	case Cell:
		ps.Cell = v
	case Jitter:
		ps.Jitter = v
	case Softy:
		ps.Softy = v
	case Edge:
		ps.Edge = v
	}
}

// Value returns the current value of p.
func (ps Parameters) Value(p Parameter) float64 {
	switch p {
	case Cell:
		return ps.Cell
	case Jitter:
		return ps.Jitter
	case Softy:
		return ps.Softy
	case Edge:
		return ps.Edge
	}
	return 0
}

// Clamped returns a copy with every field clamped. Values decoded from
// configuration pass through here before use.
func (ps Parameters) Clamped() Parameters {
	return NewParameters(ps.Cell, ps.Jitter, ps.Softy, ps.Edge)
}
