package monoart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

// recordingEngine renders the stub frame and records each call.
type recordingEngine struct {
	StubEngine

	mu      sync.Mutex
	effects []effect.Type
	cells   []int
}

func newRecordingEngine(t *testing.T) *recordingEngine {
	e := &recordingEngine{}
	if err := e.Prepare(DefaultEngineConfiguration()); err != nil {
		t.Fatal(err)
	}
	return e
}

func (r *recordingEngine) RenderPreview(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State) (AsciiFrame, error) {
	r.record(t, -1)
	return r.StubEngine.RenderPreview(ctx, src, t, p, pal)
}

func (r *recordingEngine) RenderCapture(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, cells int) (AsciiFrame, error) {
	r.record(t, cells)
	return r.StubEngine.RenderCapture(ctx, src, t, p, pal, cells)
}

func (r *recordingEngine) record(t effect.Type, cells int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, t)
	r.cells = append(r.cells, cells)
}

func (r *recordingEngine) lastCells() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cells[len(r.cells)-1]
}

func newTestSession(t *testing.T, opts ...SessionOption) (*PreviewSession, *recordingEngine, chan PreviewFrame) {
	t.Helper()
	e := newRecordingEngine(t)
	q := NewRenderQueue(e)
	frames := make(chan PreviewFrame, 16)
	opts = append([]SessionOption{
		WithDebounce(5 * time.Millisecond),
		OnFrame(func(f PreviewFrame) { frames <- f }),
		OnError(func(err error) { t.Errorf("Unexpected error: %v", err) }),
	}, opts...)
	s := NewPreviewSession(q, opts...)
	t.Cleanup(func() {
		s.Close()
		q.Close()
	})
	return s, e, frames
}

func waitFrame(t *testing.T, frames <-chan PreviewFrame) PreviewFrame {
	t.Helper()
	select {
	case f := <-frames:
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for preview frame")
		return PreviewFrame{}
	}
}

func TestSessionPushFrame(t *testing.T) {
	s, _, frames := newTestSession(t)
	s.PushFrame(landscapeFrame(imageutil.RGB{}))

	f := waitFrame(t, frames)
	if f.Frame.GlyphText != StubText || f.Import {
		t.Errorf("Expected live stub frame, got %+v", f)
	}
	if f.Effect != effect.ASCII {
		t.Errorf("Expected ascii, got %v", f.Effect)
	}
}

func TestSessionSettingsRerender(t *testing.T) {
	s, e, frames := newTestSession(t)
	s.PushFrame(landscapeFrame(imageutil.RGB{}))
	waitFrame(t, frames)

	st := DefaultSettings()
	st.Effect = effect.Triangles
	s.SetSettings(st)
	s.SetSettings(st)

	f := waitFrame(t, frames)
	if f.Effect != effect.Triangles {
		t.Errorf("Expected triangles after settings change, got %v", f.Effect)
	}
	select {
	case extra := <-frames:
		t.Errorf("Expected debounced single re-render, got extra %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	if got := e.lastCells(); got != -1 {
		t.Errorf("Expected preview render, got capture with %d cells", got)
	}
}

func TestSessionSettingsWithoutFrame(t *testing.T) {
	s, _, frames := newTestSession(t)
	s.SetSettings(DefaultSettings())
	select {
	case f := <-frames:
		t.Errorf("Expected no render without a frame, got %+v", f)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestSessionImport(t *testing.T) {
	s, e, frames := newTestSession(t)
	frame, err := s.Import(context.Background(), landscapeFrame(imageutil.RGB{R: 10, G: 10, B: 10}))
	if err != nil {
		t.Fatal(err)
	}
	if frame.GlyphText != StubText {
		t.Errorf("Expected stub frame, got %q", frame.GlyphText)
	}
	if got := e.lastCells(); got != ImportPreviewCells {
		t.Errorf("Expected import budget %d, got %d", ImportPreviewCells, got)
	}
	if !s.Importing() {
		t.Fatal("Expected import mode")
	}

	s.PushFrame(landscapeFrame(imageutil.RGB{}))
	select {
	case f := <-frames:
		t.Errorf("Expected camera frames ignored during import, got %+v", f)
	case <-time.After(30 * time.Millisecond):
	}

	s.SetSettings(DefaultSettings())
	if f := waitFrame(t, frames); !f.Import {
		t.Errorf("Expected import re-render, got %+v", f)
	}

	if _, _, err := s.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := e.lastCells(); got != 0 {
		t.Errorf("Expected capture budget, got override %d", got)
	}
	if s.Importing() {
		t.Error("Expected capture to end import mode")
	}
}

func TestSessionImportRejectsBadSource(t *testing.T) {
	s, _, _ := newTestSession(t)
	src := &imageutil.PixelBuffer{Format: imageutil.FormatNV12, Width: 4, Height: 4}
	if _, err := s.Import(context.Background(), src); !errors.Is(err, ErrUnsupportedPixelFormat) {
		t.Errorf("Expected ErrUnsupportedPixelFormat, got %v", err)
	}
	if s.Importing() {
		t.Error("Expected no import mode after a rejected source")
	}
}

func TestSessionCaptureWithoutFrame(t *testing.T) {
	s, _, _ := newTestSession(t)
	if _, _, err := s.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}
}

func TestSessionCancelImport(t *testing.T) {
	s, _, _ := newTestSession(t)
	if _, err := s.Import(context.Background(), landscapeFrame(imageutil.RGB{})); err != nil {
		t.Fatal(err)
	}
	s.CancelImport()
	if s.Importing() {
		t.Error("Expected import mode cleared")
	}
	if _, _, err := s.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame after cancelling import, got %v", err)
	}
}
