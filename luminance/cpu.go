package luminance

import (
	"context"
	"runtime"
	"sync"

	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
)

// CPU resamples the frame to one pixel per cell in a single scaling pass
// and takes the luma of each resulting pixel.
type CPU struct {
	interp imageutil.Interpolation
}

// NewCPU returns the resampling extractor.
func NewCPU() *CPU {
	return &CPU{interp: imageutil.InterpolationArea}
}

// Extract implements Extractor.
func (c *CPU) Extract(ctx context.Context, src *imageutil.PixelBuffer, g grid.Descriptor) ([]float32, error) {
	if err := checkInput(src, g); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := src.ToRGBA()
	if err != nil {
		return nil, err
	}
	small := imageutil.Resize(img, g.Columns, g.Rows, c.interp)
	return imageutil.LumaPlane(small), nil
}

// Box averages the luma of every source pixel in each cell's rectangle,
// the same reduction the compute kernel performs. Rows of cells are split
// across GOMAXPROCS workers.
type Box struct {
	workers int
}

// NewBox returns a box-filter extractor.
func NewBox() *Box {
	return &Box{workers: runtime.GOMAXPROCS(0)}
}

// Extract implements Extractor.
func (b *Box) Extract(ctx context.Context, src *imageutil.PixelBuffer, g grid.Descriptor) ([]float32, error) {
	if err := checkInput(src, g); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float32, g.TotalCells())
	cw, ch := cellSize(src.Width, src.Height, g)

	rows := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < max(1, min(b.workers, g.Rows)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range rows {
				boxRow(src, g, cw, ch, row, out[row*g.Columns:(row+1)*g.Columns])
			}
		}()
	}
	var err error
feed:
	for row := 0; row < g.Rows; row++ {
		select {
		case rows <- row:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(rows)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func boxRow(src *imageutil.PixelBuffer, g grid.Descriptor, cw, ch, row int, out []float32) {
	y0 := row * ch
	y1 := min(y0+ch, src.Height)
	for col := range out {
		x0 := col * cw
		x1 := min(x0+cw, src.Width)
		var sum float64
		var n int
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				sum += src.RGBAt(x, y).Luma()
				n++
			}
		}
		if n > 0 {
			out[col] = float32(min(1, sum/float64(n)))
		}
	}
}
