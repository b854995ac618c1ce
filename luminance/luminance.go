// Package luminance reduces a frame to one BT.709 luma value per grid cell,
// either with a wgpu compute kernel or on the CPU.
package luminance

import (
	"context"
	"fmt"

	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
)

// Extractor computes row-major per-cell luminance in [0,1].
type Extractor interface {
	Extract(ctx context.Context, src *imageutil.PixelBuffer, g grid.Descriptor) ([]float32, error)
}

// checkInput validates the frame and the grid before any work is done.
func checkInput(src *imageutil.PixelBuffer, g grid.Descriptor) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if g.Columns <= 0 || g.Rows <= 0 {
		return fmt.Errorf("invalid grid %dx%d", g.Columns, g.Rows)
	}
	return nil
}

// cellSize is the source rectangle each cell averages over. Remainder
// pixels on the right and bottom edges are not sampled.
func cellSize(srcW, srcH int, g grid.Descriptor) (w, h int) {
	return max(srcW/g.Columns, 1), max(srcH/g.Rows, 1)
}
