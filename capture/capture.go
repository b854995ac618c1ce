// Package capture reads frames from cameras, video files and still images
// into pixel buffers the engine can render.
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
)

var (
	// ErrEndOfStream is returned by Next when a source has no more frames.
	ErrEndOfStream = errors.New("capture: end of stream")

	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("capture: source closed")
)

// Frame is one captured image. Orientation is the buffer's nominal
// orientation, or its size class when the source reports none.
type Frame struct {
	Buffer      *imageutil.PixelBuffer
	Orientation grid.Orientation
	Timestamp   time.Duration
}

func newFrame(buf *imageutil.PixelBuffer, ts time.Duration) Frame {
	return Frame{
		Buffer:      buf,
		Orientation: buf.Orientation.Resolve(buf.Width, buf.Height),
		Timestamp:   ts,
	}
}

// Source yields frames until ErrEndOfStream.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

var (
	_ Source = (*StillSource)(nil)
	_ Source = (*Video)(nil)
)

// Oriented reports o as the nominal orientation of every frame src yields.
// Auto returns src unchanged.
func Oriented(src Source, o grid.Orientation) Source {
	if o == grid.Auto {
		return src
	}
	return &orientedSource{Source: src, orientation: o}
}

type orientedSource struct {
	Source
	orientation grid.Orientation
}

func (s *orientedSource) Next(ctx context.Context) (Frame, error) {
	f, err := s.Source.Next(ctx)
	if err != nil {
		return f, err
	}
	f.Buffer.Orientation = s.orientation
	f.Orientation = s.orientation
	return f, nil
}

// StillSource yields a single image once.
type StillSource struct {
	mu    sync.Mutex
	frame Frame
	done  bool
}

// NewStill wraps an already decoded buffer.
func NewStill(buf *imageutil.PixelBuffer) *StillSource {
	return &StillSource{frame: newFrame(buf, 0)}
}

// Still decodes the image at path. OpenCV is tried first; formats it
// cannot read fall back to the Go image decoders.
func Still(path string) (*StillSource, error) {
	buf, err := readImage(path)
	if err != nil {
		buf, err = imageutil.LoadPixelBuffer(path)
		if err != nil {
			return nil, err
		}
	}
	return NewStill(buf), nil
}

// Frame returns the image without consuming it.
func (s *StillSource) Frame() Frame {
	return s.frame
}

// Next returns the image on the first call and ErrEndOfStream after.
func (s *StillSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Frame{}, ErrEndOfStream
	}
	s.done = true
	return s.frame, nil
}

// Close implements Source.
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return nil
}

// Run calls fn for every frame of src until the stream ends, ctx is done
// or fn fails. The end of the stream is not an error.
func Run(ctx context.Context, src Source, fn func(Frame) error) error {
	for {
		f, err := src.Next(ctx)
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}
