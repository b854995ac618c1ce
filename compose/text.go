// Package compose turns glyph indices into text grids and text grids into
// raster images.
package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Barryalien23/monoart/grid"
)

// Text lays out one glyph per cell in row-major order. Rows are joined
// with '\n' and the last row has no trailing newline. Indices outside the
// alphabet are clamped; cells without an index render as the void glyph.
func Text(indices []int, charset []rune, g grid.Descriptor) string {
	if len(charset) == 0 || g.Columns <= 0 || g.Rows <= 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(g.TotalCells()*utf8.UTFMax + g.Rows)
	last := len(charset) - 1
	for row := 0; row < g.Rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < g.Columns; col++ {
			i := row*g.Columns + col
			idx := 0
			if i < len(indices) {
				idx = indices[i]
			}
			if idx < 0 {
				idx = 0
			} else if idx > last {
				idx = last
			}
			sb.WriteRune(charset[idx])
		}
	}
	return sb.String()
}

// Lines splits a glyph grid into its rows, keeping empty rows.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// Validate checks that text has exactly g.Rows lines of g.Columns runes.
func Validate(text string, g grid.Descriptor) error {
	lines := Lines(text)
	if len(lines) != g.Rows {
		return fmt.Errorf("glyph text has %d rows, want %d", len(lines), g.Rows)
	}
	for i, line := range lines {
		if n := utf8.RuneCountInString(line); n != g.Columns {
			return fmt.Errorf("glyph text row %d has %d columns, want %d", i, n, g.Columns)
		}
	}
	return nil
}
