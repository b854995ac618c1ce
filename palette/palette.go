package palette

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
)

// Gradient stop limits.
const (
	MinStops = 2
	MaxStops = 4
)

// ErrStopCount is returned for gradients outside [MinStops, MaxStops].
var ErrStopCount = errors.New("gradient needs between 2 and 4 stops")

// GradientStop places a colour at a position in [0,1].
type GradientStop struct {
	Position float64
	Color    Color
}

// Stop returns a gradient stop with its position clamped.
func Stop(position float64, c Color) GradientStop {
	return GradientStop{Position: unit(position), Color: c}
}

// SymbolColor is either a solid colour or a gradient. The zero value is a
// solid transparent black; use Solid or Gradient to build one.
type SymbolColor struct {
	solid    Color
	stops    []GradientStop
	gradient bool
}

// Solid returns a single-colour symbol fill.
func Solid(c Color) SymbolColor {
	return SymbolColor{solid: c}
}

// Gradient returns a symbol fill interpolated across stops. Stops are
// copied, their positions clamped and sorted.
func Gradient(stops ...GradientStop) (SymbolColor, error) {
	if len(stops) < MinStops || len(stops) > MaxStops {
		return SymbolColor{}, fmt.Errorf("%w: got %d", ErrStopCount, len(stops))
	}
	sorted := make([]GradientStop, len(stops))
	for i, s := range stops {
		sorted[i] = Stop(s.Position, s.Color)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	return SymbolColor{stops: sorted, gradient: true}, nil
}

// IsGradient reports whether the fill is a gradient.
func (s SymbolColor) IsGradient() bool { return s.gradient }

// SolidColor returns the solid colour; ok is false for gradients.
func (s SymbolColor) SolidColor() (Color, bool) {
	return s.solid, !s.gradient
}

// Stops returns a copy of the gradient stops, nil for solid fills.
func (s SymbolColor) Stops() []GradientStop {
	if !s.gradient {
		return nil
	}
	return append([]GradientStop(nil), s.stops...)
}

// Primary is the solid colour or the first gradient stop.
func (s SymbolColor) Primary() Color {
	if s.gradient {
		return s.stops[0].Color
	}
	return s.solid
}

// At samples the fill at t in [0,1].
func (s SymbolColor) At(t float64) Color {
	if !s.gradient {
		return s.solid
	}
	t = unit(t)
	first, last := s.stops[0], s.stops[len(s.stops)-1]
	if t <= first.Position {
		return first.Color
	}
	if t >= last.Position {
		return last.Color
	}
	for i := 1; i < len(s.stops); i++ {
		a, b := s.stops[i-1], s.stops[i]
		if t > b.Position {
			continue
		}
		span := b.Position - a.Position
		if span <= 0 {
			return b.Color
		}
		return a.Color.Lerp(b.Color, (t-a.Position)/span)
	}
	return last.Color
}

// State is a palette snapshot: background plus symbol fill.
type State struct {
	Background Color
	Symbols    SymbolColor
}

// Default returns a black background with solid white symbols.
func Default() State {
	return State{
		Background: FromPreset(Black),
		Symbols:    Solid(FromPreset(White)),
	}
}

// RowColor is the foreground of a text row: the solid colour, or the
// gradient sampled at row/(rows-1).
func (s State) RowColor(row, rows int) Color {
	if rows <= 1 {
		return s.Symbols.At(0)
	}
	return s.Symbols.At(float64(row) / float64(rows-1))
}

// PreviewColors returns the two colours blended by the GPU preview:
// background and the solid colour or first gradient stop.
func (s State) PreviewColors() (background, foreground Color) {
	return s.Background, s.Symbols.Primary()
}

// Hash returns a stable FNV-1a hash of the palette. Equal states hash
// equally across processes.
func (s State) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	putColor := func(c Color) {
		put(c.R)
		put(c.G)
		put(c.B)
		put(c.A)
		h.Write([]byte(c.Preset))
		h.Write([]byte{0})
	}
	putColor(s.Background)
	if s.Symbols.gradient {
		h.Write([]byte{1})
		for _, st := range s.Symbols.stops {
			put(st.Position)
			putColor(st.Color)
		}
	} else {
		h.Write([]byte{0})
		putColor(s.Symbols.solid)
	}
	return h.Sum64()
}
