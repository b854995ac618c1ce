package capture

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
)

func TestStillSource(t *testing.T) {
	buf := imageutil.SolidFrame(imageutil.FormatBGRA8, 90, 160, imageutil.RGB{R: 1, G: 2, B: 3})
	s := NewStill(buf)

	f, err := s.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.Buffer != buf {
		t.Error("Expected the wrapped buffer")
	}
	if f.Orientation != grid.Portrait {
		t.Errorf("Expected portrait, got %v", f.Orientation)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream, got %v", err)
	}
}

func TestStillSourceCancelled(t *testing.T) {
	s := NewStill(imageutil.SolidFrame(imageutil.FormatBGRA8, 4, 4, imageutil.RGB{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStillFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	img := imageutil.CreateGradientImage(64, 36)
	if err := imageutil.SaveImage(img.RGBA, path); err != nil {
		t.Fatal(err)
	}

	s, err := Still(path)
	if err != nil {
		t.Fatal(err)
	}
	f := s.Frame()
	if f.Buffer.Width != 64 || f.Buffer.Height != 36 {
		t.Fatalf("Expected 64x36, got %dx%d", f.Buffer.Width, f.Buffer.Height)
	}
	if f.Orientation != grid.Landscape {
		t.Errorf("Expected landscape, got %v", f.Orientation)
	}
	if err := f.Buffer.Validate(); err != nil {
		t.Errorf("Expected a valid buffer, got %v", err)
	}
}

func TestStillMissingFile(t *testing.T) {
	if _, err := Still(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestRun(t *testing.T) {
	s := NewStill(imageutil.SolidFrame(imageutil.FormatBGRA8, 4, 4, imageutil.RGB{}))
	n := 0
	err := Run(context.Background(), s, func(Frame) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected 1 frame, got %d", n)
	}

	boom := errors.New("boom")
	err = Run(context.Background(), NewStill(imageutil.SolidFrame(imageutil.FormatBGRA8, 4, 4, imageutil.RGB{})), func(Frame) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected callback error, got %v", err)
	}
}

func TestOrientedOverridesBufferAspect(t *testing.T) {
	buf := imageutil.SolidFrame(imageutil.FormatBGRA8, 160, 90, imageutil.RGB{})
	src := Oriented(NewStill(buf), grid.Portrait)

	f, err := src.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if f.Orientation != grid.Portrait {
		t.Errorf("Expected portrait, got %v", f.Orientation)
	}
	if f.Buffer.Orientation != grid.Portrait {
		t.Errorf("Expected the buffer to carry portrait, got %v", f.Buffer.Orientation)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream, got %v", err)
	}

	if s := NewStill(buf); Oriented(s, grid.Auto) != Source(s) {
		t.Error("Expected Auto to return the source unchanged")
	}
}

func TestStillKeepsNominalOrientation(t *testing.T) {
	buf := imageutil.SolidFrame(imageutil.FormatBGRA8, 160, 90, imageutil.RGB{})
	buf.Orientation = grid.Portrait
	if o := NewStill(buf).Frame().Orientation; o != grid.Portrait {
		t.Errorf("Expected portrait, got %v", o)
	}
}
