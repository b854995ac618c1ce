// Package tonemap maps per-cell luminance to glyph indices: contrast,
// shadow darkening, a dark cutoff, quantisation and seeded jitter. The
// GPU preview shader applies the same curve.
package tonemap

import (
	"fmt"
	"math"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
)

// Curve constants shared with the preview shader.
const (
	ContrastBase  = 0.2
	ContrastRange = 2.8
	ShadowGamma   = 1.5
	DarkCutoff    = 0.15
)

// ContrastMultiplier maps softy in [0,100] to a multiplier in [0.2, 3.0].
func ContrastMultiplier(softy float64) float64 {
	return ContrastBase + effect.Clamp(softy)/effect.MaxValue*ContrastRange
}

// Contrast scales v around mid grey and clamps to [0,1].
func Contrast(v, multiplier float64) float64 {
	return unit((v-0.5)*multiplier + 0.5)
}

// Darken applies the shadow power curve.
func Darken(v float64) float64 {
	return math.Pow(v, ShadowGamma)
}

// Cutoff zeroes values strictly below DarkCutoff.
func Cutoff(v float64) float64 {
	if v < DarkCutoff {
		return 0
	}
	return v
}

// Map runs one luminance value through clamp, contrast, darkening and
// cutoff.
func Map(lum, softy float64) float64 {
	return Cutoff(Darken(Contrast(unit(lum), ContrastMultiplier(softy))))
}

// Quantize maps v in [0,1] to an index in [0, n-1].
func Quantize(v float64, n int) int {
	if n <= 0 {
		return 0
	}
	return clampIndex(int(math.Floor(float64(n-1)*v)), n)
}

// JitterAmplitude is the maximum index offset for a jitter value in
// [0,100] and an alphabet of n glyphs.
func JitterAmplitude(jitter float64, n int) int {
	if n <= 1 {
		return 0
	}
	a := int(math.Round(effect.Clamp(jitter) / effect.MaxValue * float64(max(1, n/4))))
	return clampIndex(a, n)
}

// Seed derives the jitter seed from the palette, the grid and the
// amplitude, so equal inputs always jitter the same way.
func Seed(paletteHash uint64, g grid.Descriptor, amplitude int) uint64 {
	return paletteHash ^ uint64(g.Columns) ^ uint64(g.Rows) ^ uint64(amplitude)
}

// Indices maps a row-major luminance slice to glyph indices for an
// alphabet of n glyphs.
func Indices(lum []float32, g grid.Descriptor, n int, p effect.Parameters, paletteHash uint64) ([]int, error) {
	if len(lum) != g.TotalCells() {
		return nil, fmt.Errorf("luminance has %d values, grid %dx%d needs %d",
			len(lum), g.Columns, g.Rows, g.TotalCells())
	}
	if n <= 0 {
		return nil, fmt.Errorf("empty glyph alphabet")
	}

	p = p.Clamped()
	multiplier := ContrastMultiplier(p.Softy)
	amplitude := JitterAmplitude(p.Jitter, n)
	rng := NewRand(Seed(paletteHash, g, amplitude))

	out := make([]int, len(lum))
	for i, l := range lum {
		v := Cutoff(Darken(Contrast(unit(float64(l)), multiplier)))
		idx := Quantize(v, n)
		if amplitude > 0 {
			idx = clampIndex(idx+rng.IntN(-amplitude, amplitude), n)
		}
		out[i] = idx
	}
	return out, nil
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

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
