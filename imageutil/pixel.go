package imageutil

import (
	"errors"
	"fmt"
	"image"

	"github.com/Barryalien23/monoart/grid"
)

// ErrUnsupportedPixelFormat is returned for frames the pipeline cannot
// ingest or convert.
var ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

// PixelFormat is the byte layout of a PixelBuffer.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatBGRA8
	FormatARGB8
	FormatRGBA8
	FormatGray8
	// FormatNV12 is bi-planar YUV as delivered by some capture devices. It
	// is recognised but not converted.
	FormatNV12
)

var formatNames = map[PixelFormat]string{
	FormatUnknown: "unknown",
	FormatBGRA8:   "bgra8",
	FormatARGB8:   "argb8",
	FormatRGBA8:   "rgba8",
	FormatGray8:   "gray8",
	FormatNV12:    "nv12",
}

func (f PixelFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// BytesPerPixel returns the size of one pixel, or 0 for formats that are
// not packed.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatBGRA8, FormatARGB8, FormatRGBA8:
		return 4
	case FormatGray8:
		return 1
	}
	return 0
}

// Supported reports whether buffers of this format can be converted.
func (f PixelFormat) Supported() bool {
	return f.BytesPerPixel() > 0
}

// PixelBuffer is a raw frame as handed over by a frame source.
// Orientation is the nominal layout class the source reports, which may
// differ from the buffer's own aspect (a landscape sensor held upright).
// Auto lets the renderer classify the buffer by its size.
type PixelBuffer struct {
	Format      PixelFormat
	Width       int
	Height      int
	Stride      int
	Pix         []byte
	Orientation grid.Orientation
}

// NewPixelBuffer allocates a tightly packed buffer.
func NewPixelBuffer(format PixelFormat, width, height int) *PixelBuffer {
	stride := width * format.BytesPerPixel()
	return &PixelBuffer{
		Format: format,
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// PixelBufferFromImage copies img into an RGBA8 buffer.
func PixelBufferFromImage(img image.Image) *PixelBuffer {
	rgba := RGBAImageFromImage(img)
	return &PixelBuffer{
		Format: FormatRGBA8,
		Width:  rgba.Width(),
		Height: rgba.Height(),
		Stride: rgba.Stride,
		Pix:    rgba.Pix,
	}
}

// Bounds returns the frame rectangle.
func (b *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Validate checks the format and that Pix covers every row.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrUnsupportedPixelFormat)
	}
	if !b.Format.Supported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedPixelFormat, b.Format)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: empty %dx%d frame", ErrUnsupportedPixelFormat, b.Width, b.Height)
	}
	row := b.Width * b.Format.BytesPerPixel()
	if b.Stride < row || len(b.Pix) < b.Stride*(b.Height-1)+row {
		return fmt.Errorf("%w: %d bytes for %dx%d %s at stride %d",
			ErrUnsupportedPixelFormat, len(b.Pix), b.Width, b.Height, b.Format, b.Stride)
	}
	return nil
}

// RGBAt returns the colour of pixel (x, y). The buffer must be valid.
func (b *PixelBuffer) RGBAt(x, y int) RGB {
	i := y*b.Stride + x*b.Format.BytesPerPixel()
	p := b.Pix
	switch b.Format {
	case FormatBGRA8:
		return RGB{R: p[i+2], G: p[i+1], B: p[i]}
	case FormatARGB8:
		return RGB{R: p[i+1], G: p[i+2], B: p[i+3]}
	case FormatGray8:
		return RGB{R: p[i], G: p[i], B: p[i]}
	default:
		return RGB{R: p[i], G: p[i+1], B: p[i+2]}
	}
}

// ToRGBA converts the buffer to an RGBA image. Alpha is carried over
// where the format has one.
func (b *PixelBuffer) ToRGBA() (*RGBAImage, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	out := NewRGBAImage(b.Width, b.Height)
	bpp := b.Format.BytesPerPixel()
	for y := 0; y < b.Height; y++ {
		src := b.Pix[y*b.Stride : y*b.Stride+b.Width*bpp]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Width*4]
		switch b.Format {
		case FormatRGBA8:
			copy(dst, src)
		case FormatBGRA8:
			for x := 0; x < b.Width; x++ {
				s, d := src[x*4:x*4+4], dst[x*4:x*4+4]
				d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
			}
		case FormatARGB8:
			for x := 0; x < b.Width; x++ {
				s, d := src[x*4:x*4+4], dst[x*4:x*4+4]
				d[0], d[1], d[2], d[3] = s[1], s[2], s[3], s[0]
			}
		case FormatGray8:
			for x := 0; x < b.Width; x++ {
				v := src[x]
				dst[x*4], dst[x*4+1], dst[x*4+2], dst[x*4+3] = v, v, v, 0xff
			}
		}
	}
	return out, nil
}

// PackRGBA returns the frame as little-endian RGBA8 words, one uint32 per
// pixel, rows tightly packed. This is the layout the compute kernel reads.
func (b *PixelBuffer) PackRGBA() ([]byte, error) {
	img, err := b.ToRGBA()
	if err != nil {
		return nil, err
	}
	return img.Pix, nil
}
