// Package atlas rasterises an effect's character set into a single-channel
// glyph atlas used for GPU sampling and CPU glyph lookup.
package atlas

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/internal/logx"
)

// Defaults for Build.
const (
	DefaultFontSize = 28
	DefaultTileSize = 32
	DefaultColumns  = 12

	// inset is the margin kept free on each side of a tile, as a fraction
	// of the tile size.
	inset = 0.15
)

// Atlas is an immutable grid of glyph tiles. Mask holds 0 where there is
// no ink and up to 255 where a glyph covers the pixel.
type Atlas struct {
	Effect      effect.Type
	Mask        *image.Gray
	GridColumns int
	GridRows    int
	TileSize    int
	Charset     []rune
}

type config struct {
	font     []byte
	fontSize float64
	tileSize int
	columns  int
}

// Option configures Build.
type Option func(*config)

// WithFont sets the TrueType font. The default is Go Mono.
func WithFont(ttf []byte) Option {
	return func(c *config) { c.font = ttf }
}

// WithFontSize sets the largest font size in points. Glyphs shrink to fit
// the tile's inset box.
func WithFontSize(size float64) Option {
	return func(c *config) { c.fontSize = size }
}

// WithTileSize sets the square tile size in pixels.
func WithTileSize(px int) Option {
	return func(c *config) { c.tileSize = px }
}

// WithColumns sets the number of tiles per atlas row.
func WithColumns(n int) Option {
	return func(c *config) { c.columns = n }
}

// Build rasterises the character set of t. A font that cannot be parsed
// is an error. Build panics when the atlas bitmap cannot be allocated.
func Build(t effect.Type, opts ...Option) (*Atlas, error) {
	cfg := config{
		fontSize: DefaultFontSize,
		tileSize: DefaultTileSize,
		columns:  DefaultColumns,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.columns = max(cfg.columns, 1)

	charset := t.Charset()
	rows := int(math.Ceil(float64(len(charset)) / float64(cfg.columns)))
	width, height := cfg.tileSize*cfg.columns, cfg.tileSize*rows
	if cfg.tileSize <= 0 || rows <= 0 || width/cfg.columns != cfg.tileSize || height/rows != cfg.tileSize ||
		width > math.MaxInt32/max(height, 1) {
		panic(fmt.Sprintf("atlas: cannot allocate %dx%d tiles of %dpx", cfg.columns, rows, cfg.tileSize))
	}

	painter, err := NewPainter(cfg.font, cfg.fontSize)
	if err != nil {
		return nil, fmt.Errorf("atlas %s: %w", t, err)
	}
	margin := int(math.Round(float64(cfg.tileSize) * inset))
	painter = painter.WithSize(painter.FitSize(cfg.tileSize - 2*margin))

	start := time.Now()
	a := &Atlas{
		Effect:      t,
		Mask:        image.NewGray(image.Rect(0, 0, width, height)),
		GridColumns: cfg.columns,
		GridRows:    rows,
		TileSize:    cfg.tileSize,
		Charset:     charset,
	}
	for i, r := range charset {
		tile := a.TileRect(i)
		pen := painter.Batch(a.Mask, tile)
		pen.Draw(r, tile.Inset(margin), image.White)
		pen.Close()
	}

	logx.Logger().Debug("glyph atlas built",
		"effect", t.String(),
		"glyphs", len(charset),
		"width", width,
		"height", height,
		"elapsed", time.Since(start))
	return a, nil
}

// GlyphCount returns the number of glyphs in the atlas.
func (a *Atlas) GlyphCount() int {
	return len(a.Charset)
}

// Size returns the atlas dimensions in pixels.
func (a *Atlas) Size() (width, height int) {
	b := a.Mask.Bounds()
	return b.Dx(), b.Dy()
}

// TileRect returns the tile of glyph i, laid out row-major.
func (a *Atlas) TileRect(i int) image.Rectangle {
	x := (i % a.GridColumns) * a.TileSize
	y := (i / a.GridColumns) * a.TileSize
	return image.Rect(x, y, x+a.TileSize, y+a.TileSize)
}

// Coverage returns the mean ink of glyph i in [0,1].
func (a *Atlas) Coverage(i int) float64 {
	if i < 0 || i >= len(a.Charset) {
		return 0
	}
	r := a.TileRect(i)
	var sum int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := a.Mask.Pix[a.Mask.PixOffset(r.Min.X, y):]
		for x := 0; x < r.Dx(); x++ {
			sum += int(row[x])
		}
	}
	return float64(sum) / float64(255*r.Dx()*r.Dy())
}
