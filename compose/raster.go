package compose

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/Barryalien23/monoart/atlas"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/internal/logx"
	"github.com/Barryalien23/monoart/palette"
)

// Export canvas and typography constants.
const (
	PortraitWidth  = 1080
	PortraitHeight = 1920

	baseWidthFactor = 0.6
	minWidthFactor  = 0.52
	circleWidth     = 0.92
	lineHeight      = 1.12
	minFontSize     = 8
	maxFontSize     = 120
)

// ErrEmptyFrame is returned when there is no glyph text to rasterise.
var ErrEmptyFrame = errors.New("compose: empty frame")

// Input is a glyph grid plus the styling needed to paint it.
type Input struct {
	Text     string
	Columns  int
	Rows     int
	Effect   effect.Type
	Palette  palette.State
	Mirrored bool
}

// Layout is the placement of a grid on the canvas. Content may overflow
// the canvas horizontally; drawing is clipped to the canvas.
type Layout struct {
	Canvas     image.Rectangle
	FontSize   float64
	OffsetX    float64
	OffsetY    float64
	CellWidth  float64
	CellHeight float64
}

// Rasterizer paints glyph grids onto a fixed-size canvas for export.
// A Rasterizer is safe for concurrent use.
type Rasterizer struct {
	font          []byte
	portraitW     int
	portraitH     int
	mirrorDefault bool

	painter *atlas.Painter
}

// RasterOption is a functional option for configuring a Rasterizer.
type RasterOption func(*Rasterizer)

// WithFont sets the TrueType font used for glyphs. Nil selects Go Mono.
func WithFont(ttf []byte) RasterOption {
	return func(r *Rasterizer) {
		r.font = ttf
	}
}

// WithCanvas sets the portrait canvas size. Landscape frames use the
// transposed size.
func WithCanvas(width, height int) RasterOption {
	return func(r *Rasterizer) {
		if width > 0 && height > 0 {
			r.portraitW, r.portraitH = width, height
		}
	}
}

// WithMirror flips every output horizontally, in addition to Input.Mirrored.
func WithMirror(mirror bool) RasterOption {
	return func(r *Rasterizer) {
		r.mirrorDefault = mirror
	}
}

// NewRasterizer creates a Rasterizer with a 1080x1920 portrait canvas and
// Go Mono glyphs.
func NewRasterizer(opts ...RasterOption) (*Rasterizer, error) {
	r := &Rasterizer{
		portraitW: PortraitWidth,
		portraitH: PortraitHeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	p, err := atlas.NewPainter(r.font, maxFontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load export font: %w", err)
	}
	r.painter = p
	return r, nil
}

// Layout computes the canvas and cell geometry for a grid. Grids with at
// least as many columns as rows use the landscape canvas. The font is
// sized from the canvas width, then everything is scaled up when the rows
// do not cover the canvas height.
func (r *Rasterizer) Layout(columns, rows int, t effect.Type) Layout {
	columns = max(columns, 1)
	rows = max(rows, 1)

	w, h := r.portraitW, r.portraitH
	if columns >= rows {
		w, h = max(w, h), min(w, h)
	}

	widthFactor := math.Max(minWidthFactor, baseWidthFactor-float64(columns)/200*0.08)
	if t == effect.Circles {
		widthFactor *= circleWidth
	}

	fontSize := float64(w) / (float64(columns) * widthFactor)
	fontSize = math.Min(math.Max(fontSize, minFontSize), maxFontSize)

	contentW := fontSize * widthFactor * float64(columns)
	contentH := fontSize * lineHeight * float64(rows)
	if contentH < float64(h) {
		scale := float64(h) / math.Max(contentH, 1)
		fontSize *= scale
		contentW *= scale
		contentH *= scale
	}

	return Layout{
		Canvas:     image.Rect(0, 0, w, h),
		FontSize:   fontSize,
		OffsetX:    (float64(w) - contentW) / 2,
		OffsetY:    (float64(h) - contentH) / 2,
		CellWidth:  contentW / float64(columns),
		CellHeight: contentH / float64(rows),
	}
}

// Cell returns the pixel box of the cell at (col, row).
func (l Layout) Cell(col, row int) image.Rectangle {
	x0 := l.OffsetX + float64(col)*l.CellWidth
	y0 := l.OffsetY + float64(row)*l.CellHeight
	return image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Floor(x0+l.CellWidth)), int(math.Floor(y0+l.CellHeight)),
	)
}

// Render paints the glyph grid. The background fills the canvas and each
// row takes its colour from the palette.
func (r *Rasterizer) Render(in Input) (*image.RGBA, error) {
	if in.Text == "" || in.Columns <= 0 || in.Rows <= 0 {
		return nil, ErrEmptyFrame
	}
	if !in.Effect.Valid() {
		return nil, fmt.Errorf("compose: invalid effect %d", int(in.Effect))
	}

	l := r.Layout(in.Columns, in.Rows, in.Effect)
	img := image.NewRGBA(l.Canvas)
	draw.Draw(img, img.Bounds(), image.NewUniform(in.Palette.Background.NRGBA()), image.Point{}, draw.Src)

	lines := Lines(in.Text)
	if in.Effect == effect.Circles {
		r.drawCircles(img, lines, in, l)
	} else {
		r.drawGlyphs(img, lines, in, l)
	}

	logx.Logger().Debug("rendered export frame",
		"effect", in.Effect.String(),
		"columns", in.Columns,
		"rows", in.Rows,
		"canvas", l.Canvas.Size().String(),
		"font_size", l.FontSize)

	if in.Mirrored != r.mirrorDefault {
		img = imageutil.FlipHorizontal(img)
	}
	return img, nil
}

func (r *Rasterizer) drawGlyphs(img *image.RGBA, lines []string, in Input, l Layout) {
	b := r.painter.WithSize(l.FontSize).Batch(img, img.Bounds())
	defer b.Close()

	for row, line := range lines {
		if row >= in.Rows {
			break
		}
		ink := image.NewUniform(in.Palette.RowColor(row, in.Rows).NRGBA())
		col := 0
		for _, g := range line {
			if col >= in.Columns {
				break
			}
			b.Draw(g, l.Cell(col, row), ink)
			col++
		}
	}
}

// drawCircles paints a filled disc per cell, its radius proportional to
// the glyph's level in the circles alphabet.
func (r *Rasterizer) drawCircles(img *image.RGBA, lines []string, in Input, l Layout) {
	charset := effect.Circles.Charset()
	levels := make(map[rune]int, len(charset))
	for i, g := range charset {
		levels[g] = i
	}
	maxLevel := float64(max(len(charset)-1, 1))
	minSide := math.Min(l.CellWidth, l.CellHeight)

	for row, line := range lines {
		if row >= in.Rows {
			break
		}
		ink := image.NewUniform(in.Palette.RowColor(row, in.Rows).NRGBA())
		col := 0
		for _, g := range line {
			if col >= in.Columns {
				break
			}
			if level := levels[g]; level > 0 {
				radius := float64(level) / maxLevel * 0.5 * minSide
				cx := l.OffsetX + (float64(col)+0.5)*l.CellWidth
				cy := l.OffsetY + (float64(row)+0.5)*l.CellHeight
				atlas.FillDisc(img, cx, cy, radius, ink)
			}
			col++
		}
	}
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
