//go:build !nocv

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/Barryalien23/monoart/imageutil"
)

// Video reads frames from an OpenCV capture device or file. File frames
// are paced at the file's frame rate.
type Video struct {
	mu       sync.Mutex
	vc       *gocv.VideoCapture
	raw      gocv.Mat
	bgra     gocv.Mat
	interval time.Duration
	last     time.Time
	start    time.Time
	closed   bool
}

// OpenCamera opens camera id.
func OpenCamera(id int) (*Video, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", id, err)
	}
	return newVideo(vc, 0), nil
}

// OpenVideo opens a video file.
func OpenVideo(path string) (*Video, error) {
	vc, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	var interval time.Duration
	if fps := vc.Get(gocv.VideoCaptureFPS); fps > 0 {
		interval = time.Duration(float64(time.Second) / fps)
	}
	return newVideo(vc, interval), nil
}

func newVideo(vc *gocv.VideoCapture, interval time.Duration) *Video {
	return &Video{
		vc:       vc,
		raw:      gocv.NewMat(),
		bgra:     gocv.NewMat(),
		interval: interval,
		start:    time.Now(),
	}
}

// Next reads the next frame as BGRA.
func (v *Video) Next(ctx context.Context) (Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return Frame{}, ErrClosed
	}
	if v.interval > 0 && !v.last.IsZero() {
		wait := time.Until(v.last.Add(v.interval))
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return Frame{}, ctx.Err()
			case <-t.C:
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	if ok := v.vc.Read(&v.raw); !ok || v.raw.Empty() {
		return Frame{}, ErrEndOfStream
	}
	v.last = time.Now()
	buf, err := toBGRA(v.raw, &v.bgra)
	if err != nil {
		return Frame{}, err
	}
	return newFrame(buf, time.Since(v.start)), nil
}

// Close releases the capture device.
func (v *Video) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.raw.Close()
	v.bgra.Close()
	return v.vc.Close()
}

// toBGRA converts a 1, 3 or 4 channel 8-bit Mat into a BGRA pixel buffer.
// The returned buffer owns its pixels.
func toBGRA(src gocv.Mat, scratch *gocv.Mat) (*imageutil.PixelBuffer, error) {
	out := src
	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, scratch, gocv.ColorGrayToBGRA)
		out = *scratch
	case 3:
		gocv.CvtColor(src, scratch, gocv.ColorBGRToBGRA)
		out = *scratch
	case 4:
	default:
		return nil, fmt.Errorf("%w: %d channel frame", imageutil.ErrUnsupportedPixelFormat, src.Channels())
	}

	w, h := out.Cols(), out.Rows()
	buf := imageutil.NewPixelBuffer(imageutil.FormatBGRA8, w, h)
	data := out.ToBytes()
	step := out.Step()
	for y := 0; y < h; y++ {
		copy(buf.Pix[y*buf.Stride:y*buf.Stride+w*4], data[y*step:y*step+w*4])
	}
	return buf, nil
}

func readImage(path string) (*imageutil.PixelBuffer, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("opencv cannot read %s", path)
	}
	scratch := gocv.NewMat()
	defer scratch.Close()
	return toBGRA(mat, &scratch)
}
