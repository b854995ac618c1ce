package atlas

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// quadrant bits
const (
	qUL = 1 << iota
	qUR
	qLL
	qLR
)

var quadrants = map[rune]int{
	'▖': qLL,
	'▗': qLR,
	'▘': qUL,
	'▝': qUR,
	'▙': qUL | qLL | qLR,
	'▚': qUL | qLR,
	'▛': qUL | qUR | qLL,
	'▜': qUL | qUR | qLR,
	'▞': qUR | qLL,
	'▟': qUR | qLL | qLR,
}

type disc struct {
	radius float64 // fraction of the box's smaller side
	cy     float64 // centre, fraction of the box height
}

var discs = map[rune]disc{
	'˙': {0.07, 0.3},
	'·': {0.08, 0.5},
	'∙': {0.11, 0.5},
	'•': {0.17, 0.5},
	'●': {0.36, 0.5},
	'⬤': {0.5, 0.5},
}

type triangle struct {
	scale  float64
	filled bool
}

var triangles = map[rune]triangle{
	'▵': {0.55, false},
	'▴': {0.55, true},
	'△': {1, false},
	'▲': {1, true},
}

// path is a vector rasteriser covering clip, addressed in the
// coordinates of the destination image.
type path struct {
	z    *vector.Rasterizer
	clip image.Rectangle
}

func newPath(dst draw.Image, area image.Rectangle) (*path, bool) {
	clip := area.Intersect(dst.Bounds())
	if clip.Empty() {
		return nil, false
	}
	return &path{z: vector.NewRasterizer(clip.Dx(), clip.Dy()), clip: clip}, true
}

func (p *path) pt(x, y float64) (float32, float32) {
	return float32(x - float64(p.clip.Min.X)), float32(y - float64(p.clip.Min.Y))
}

func (p *path) moveTo(x, y float64) { p.z.MoveTo(p.pt(x, y)) }
func (p *path) lineTo(x, y float64) { p.z.LineTo(p.pt(x, y)) }

func (p *path) cubeTo(x1, y1, x2, y2, x3, y3 float64) {
	ax, ay := p.pt(x1, y1)
	bx, by := p.pt(x2, y2)
	cx, cy := p.pt(x3, y3)
	p.z.CubeTo(ax, ay, bx, by, cx, cy)
}

func (p *path) rect(x0, y0, x1, y1 float64) {
	p.moveTo(x0, y0)
	p.lineTo(x1, y0)
	p.lineTo(x1, y1)
	p.lineTo(x0, y1)
	p.z.ClosePath()
}

// circle approximates a circle with four cubic Béziers.
func (p *path) circle(cx, cy, radius float64) {
	const k = 0.5522847498
	c := radius * k
	p.moveTo(cx+radius, cy)
	p.cubeTo(cx+radius, cy+c, cx+c, cy+radius, cx, cy+radius)
	p.cubeTo(cx-c, cy+radius, cx-radius, cy+c, cx-radius, cy)
	p.cubeTo(cx-radius, cy-c, cx-c, cy-radius, cx, cy-radius)
	p.cubeTo(cx+c, cy-radius, cx+radius, cy-c, cx+radius, cy)
	p.z.ClosePath()
}

// triangle adds an upward triangle of the given side centred on (cx, cy).
// Reversed winding cancels coverage where it overlaps a forward one.
func (p *path) triangle(cx, cy, side float64, reverse bool) {
	h := side * math.Sqrt(3) / 2
	lx, rx := cx-side/2, cx+side/2
	if reverse {
		lx, rx = rx, lx
	}
	p.moveTo(cx, cy-h/2)
	p.lineTo(rx, cy+h/2)
	p.lineTo(lx, cy+h/2)
	p.z.ClosePath()
}

func (p *path) fill(dst draw.Image, src image.Image) {
	p.z.Draw(dst, p.clip, src, p.clip.Min)
}

// drawShape rasterises block elements, quadrants, dots and triangles
// procedurally. It reports false for runes it has no shape for.
func drawShape(dst draw.Image, r rune, box image.Rectangle, src image.Image) bool {
	_, isQuad := quadrants[r]
	_, isDisc := discs[r]
	tri, isTri := triangles[r]
	isBlock := r >= '▁' && r <= '█'
	if !isBlock && !isQuad && !isDisc && !isTri {
		return false
	}
	p, ok := newPath(dst, box)
	if !ok {
		return true
	}

	x0, y0 := float64(box.Min.X), float64(box.Min.Y)
	w, h := float64(box.Dx()), float64(box.Dy())
	side := math.Min(w, h)

	switch {
	case isBlock:
		// Lower one-eighth to full block.
		top := y0 + h*(1-float64(r-'▁'+1)/8)
		p.rect(x0, top, x0+w, y0+h)
	case isQuad:
		q := quadrants[r]
		mx, my := x0+w/2, y0+h/2
		if q&qUL != 0 {
			p.rect(x0, y0, mx, my)
		}
		if q&qUR != 0 {
			p.rect(mx, y0, x0+w, my)
		}
		if q&qLL != 0 {
			p.rect(x0, my, mx, y0+h)
		}
		if q&qLR != 0 {
			p.rect(mx, my, x0+w, y0+h)
		}
	case isDisc:
		d := discs[r]
		p.circle(x0+w/2, y0+h*d.cy, side*d.radius)
	case isTri:
		s := side * tri.scale
		cx, cy := x0+w/2, y0+h/2
		p.triangle(cx, cy, s, false)
		if !tri.filled {
			p.triangle(cx, cy+s*0.06, s*0.62, true)
		}
	}
	p.fill(dst, src)
	return true
}

// FillDisc paints an anti-aliased filled circle onto dst.
func FillDisc(dst draw.Image, cx, cy, radius float64, src image.Image) {
	if radius <= 0 {
		return
	}
	box := image.Rect(
		int(math.Floor(cx-radius)), int(math.Floor(cy-radius)),
		int(math.Ceil(cx+radius)), int(math.Ceil(cy+radius)),
	)
	p, ok := newPath(dst, box)
	if !ok {
		return
	}
	p.circle(cx, cy, radius)
	p.fill(dst, src)
}
