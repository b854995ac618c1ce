package monoart

import (
	"image"

	"github.com/gogpu/wgpu"

	"github.com/Barryalien23/monoart/compose"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/palette"
)

// AsciiFrame is the result of a render. The text path fills GlyphText
// with Rows lines of Columns glyphs; Texture is set only by GPU-resident
// paths.
type AsciiFrame struct {
	Texture   *wgpu.Texture
	GlyphText string
	Columns   int
	Rows      int
}

// HasText reports whether the frame carries glyph text.
func (f AsciiFrame) HasText() bool {
	return f.GlyphText != ""
}

// Grid returns the frame's grid size.
func (f AsciiFrame) Grid() grid.Descriptor {
	return grid.Descriptor{Columns: f.Columns, Rows: f.Rows}
}

// Lines returns the glyph rows.
func (f AsciiFrame) Lines() []string {
	if !f.HasText() {
		return nil
	}
	return compose.Lines(f.GlyphText)
}

// Image rasterises the frame for export.
func (f AsciiFrame) Image(r *compose.Rasterizer, t effect.Type, pal palette.State, mirrored bool) (*image.RGBA, error) {
	return r.Render(compose.Input{
		Text:     f.GlyphText,
		Columns:  f.Columns,
		Rows:     f.Rows,
		Effect:   t,
		Palette:  pal,
		Mirrored: mirrored,
	})
}
