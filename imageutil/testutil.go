package imageutil

import (
	"image/color"
	"math"
)

// CreateGradientImage creates a horizontal grey ramp, black on the left.
func CreateGradientImage(width, height int) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(255 * x / max(1, width-1))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// CreateVerticalGradientImage creates a vertical grey ramp, black on top.
func CreateVerticalGradientImage(width, height int) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		v := uint8(255 * y / max(1, height-1))
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// CreateSolidImage creates a solid color image.
func CreateSolidImage(width, height int, c RGB) *RGBAImage {
	img := NewRGBAImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGB(x, y, c)
		}
	}
	return img
}

// CreateColorBarsImage creates a color bars test pattern.
func CreateColorBarsImage(width, height int) *RGBAImage {
	img := NewRGBAImage(width, height)
	colors := []RGB{
		{255, 255, 255}, // White
		{255, 255, 0},   // Yellow
		{0, 255, 255},   // Cyan
		{0, 255, 0},     // Green
		{255, 0, 255},   // Magenta
		{255, 0, 0},     // Red
		{0, 0, 255},     // Blue
		{0, 0, 0},       // Black
	}

	barWidth := max(1, width/len(colors))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			colorIdx := min(x/barWidth, len(colors)-1)
			img.SetRGB(x, y, colors[colorIdx])
		}
	}
	return img
}

// SolidFrame creates a frame of one colour in the given packed format.
func SolidFrame(format PixelFormat, width, height int, c RGB) *PixelBuffer {
	buf := NewPixelBuffer(format, width, height)
	var px []byte
	switch format {
	case FormatBGRA8:
		px = []byte{c.B, c.G, c.R, 0xff}
	case FormatARGB8:
		px = []byte{0xff, c.R, c.G, c.B}
	case FormatRGBA8:
		px = []byte{c.R, c.G, c.B, 0xff}
	case FormatGray8:
		px = []byte{uint8(Luma709(c.R, c.G, c.B)*255 + 0.5)}
	default:
		return buf
	}
	for i := 0; i+len(px) <= len(buf.Pix); i += len(px) {
		copy(buf.Pix[i:], px)
	}
	return buf
}

// CalculateMaxDiff calculates the maximum channel difference between two
// images. Images of different sizes differ by 256.
func CalculateMaxDiff(img1, img2 *RGBAImage) int {
	if img1.Width() != img2.Width() || img1.Height() != img2.Height() {
		return 256
	}

	maxDiff := 0
	for y := 0; y < img1.Height(); y++ {
		for x := 0; x < img1.Width(); x++ {
			c1 := img1.RGBAAt(x, y)
			c2 := img2.RGBAAt(x, y)
			maxDiff = max(maxDiff, abs(int(c1.R)-int(c2.R)), abs(int(c1.G)-int(c2.G)), abs(int(c1.B)-int(c2.B)))
		}
	}
	return maxDiff
}

// MaxAbsDiff returns the largest element-wise difference of two luminance
// slices, or +Inf when their lengths differ.
func MaxAbsDiff(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(float64(a[i])-float64(b[i])))
	}
	return d
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
