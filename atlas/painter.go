package atlas

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/go-text/typesetting/font"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

// Painter draws single glyphs centred in a box. Glyphs the font does not
// cover are drawn as procedural shapes when one is known for the rune.
// A Painter is safe for concurrent use.
type Painter struct {
	ttf   *truetype.Font
	cover *font.Font
	size  float64
}

// NewPainter parses a TrueType font for drawing at size points (72 DPI,
// so points equal pixels). A nil font selects Go Mono.
func NewPainter(ttf []byte, size float64) (*Painter, error) {
	if ttf == nil {
		ttf = gomono.TTF
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	parsed, err := freetype.ParseFont(ttf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := font.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("failed to load font tables: %w", err)
	}
	return &Painter{ttf: parsed, cover: face.Font, size: size}, nil
}

// Size returns the font size in points.
func (p *Painter) Size() float64 { return p.size }

// WithSize returns a painter sharing the parsed font at another size.
func (p *Painter) WithSize(size float64) *Painter {
	return &Painter{ttf: p.ttf, cover: p.cover, size: size}
}

// Covers reports whether the font has a glyph for r.
func (p *Painter) Covers(r rune) bool {
	_, ok := p.cover.NominalGlyph(r)
	return ok
}

// Metrics returns the ascent and descent in pixels at the painter's size.
func (p *Painter) Metrics() (ascent, descent int) {
	face := p.face()
	defer face.Close()
	m := face.Metrics()
	return m.Ascent.Ceil(), m.Descent.Ceil()
}

// Advance returns the horizontal advance of r in pixels.
func (p *Painter) Advance(r rune) float64 {
	face := p.face()
	defer face.Close()
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		return p.size * 0.6
	}
	return float64(adv) / 64
}

// FitSize returns the largest size no greater than the painter's that
// keeps a line of text within height pixels.
func (p *Painter) FitSize(height int) float64 {
	ascent, descent := p.Metrics()
	if ascent+descent <= height || ascent+descent == 0 {
		return p.size
	}
	return p.size * float64(height) / float64(ascent+descent)
}

// Draw paints r centred in box using src as the ink. Spaces draw nothing.
func (p *Painter) Draw(dst draw.Image, r rune, box image.Rectangle, src image.Image) {
	b := p.Batch(dst, dst.Bounds())
	defer b.Close()
	b.Draw(r, box, src)
}

// Batch returns a pen that draws many glyphs into dst, reusing one face
// and rasteriser. Font glyphs are clipped to clip. A Batch is not safe for
// concurrent use.
func (p *Painter) Batch(dst draw.Image, clip image.Rectangle) *Batch {
	face := p.face()
	m := face.Metrics()

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(p.ttf)
	ctx.SetFontSize(p.size)
	ctx.SetClip(clip.Intersect(dst.Bounds()))
	ctx.SetDst(dst)
	ctx.SetHinting(xfont.HintingFull)

	return &Batch{
		p:       p,
		dst:     dst,
		face:    face,
		ctx:     ctx,
		ascent:  int(m.Ascent >> 6),
		descent: int(m.Descent >> 6),
	}
}

// Batch draws glyphs of one painter size into one destination.
type Batch struct {
	p       *Painter
	dst     draw.Image
	face    xfont.Face
	ctx     *freetype.Context
	ascent  int
	descent int
}

// Draw paints r centred in box using src as the ink.
func (b *Batch) Draw(r rune, box image.Rectangle, src image.Image) {
	if r == ' ' || box.Empty() {
		return
	}
	if (isBlockElement(r) || !b.p.Covers(r)) && drawShape(b.dst, r, box, src) {
		return
	}

	adv, ok := b.face.GlyphAdvance(r)
	if !ok {
		adv = fixed.Int26_6(b.p.size * 0.6 * 64)
	}
	x := box.Min.X + (box.Dx()-int(adv>>6))/2
	baselineY := box.Min.Y + (box.Dy()+b.ascent-b.descent)/2

	b.ctx.SetSrc(src)
	// DrawString only fails when the font is unset.
	_, _ = b.ctx.DrawString(string(r), freetype.Pt(x, baselineY))
}

// Close releases the face.
func (b *Batch) Close() {
	b.face.Close()
}

func (p *Painter) face() xfont.Face {
	return truetype.NewFace(p.ttf, &truetype.Options{
		Size:    p.size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
}

// isBlockElement reports runes in the Block Elements range. Fonts size
// these to the line box rather than the tile, so they are always drawn
// procedurally.
func isBlockElement(r rune) bool {
	return r >= 0x2580 && r <= 0x259F
}
