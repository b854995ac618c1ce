//go:build nocv

package capture

import (
	"context"
	"errors"

	"github.com/Barryalien23/monoart/imageutil"
)

// ErrNoOpenCV is returned by camera and video sources in builds without
// OpenCV.
var ErrNoOpenCV = errors.New("capture: built without OpenCV")

// Video is unavailable without OpenCV.
type Video struct{}

// OpenCamera returns ErrNoOpenCV.
func OpenCamera(int) (*Video, error) { return nil, ErrNoOpenCV }

// OpenVideo returns ErrNoOpenCV.
func OpenVideo(string) (*Video, error) { return nil, ErrNoOpenCV }

// Next implements Source.
func (*Video) Next(context.Context) (Frame, error) { return Frame{}, ErrNoOpenCV }

// Close implements Source.
func (*Video) Close() error { return nil }

func readImage(string) (*imageutil.PixelBuffer, error) { return nil, ErrNoOpenCV }
