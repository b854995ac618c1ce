package monoart

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/palette"
)

func newCPUEngine(t *testing.T, cfg EngineConfiguration, opts ...EngineOption) *GPUEngine {
	t.Helper()
	e := NewGPUEngine(append([]EngineOption{WithCPUOnly()}, opts...)...)
	if err := e.Prepare(cfg); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func landscapeFrame(c imageutil.RGB) *imageutil.PixelBuffer {
	return imageutil.SolidFrame(imageutil.FormatBGRA8, 320, 180, c)
}

func noJitter(cell, softy float64) effect.Parameters {
	return effect.NewParameters(cell, 0, softy, 0)
}

func TestEngineRequiresPrepare(t *testing.T) {
	engines := map[string]Engine{
		"gpu":  NewGPUEngine(WithCPUOnly()),
		"stub": NewStubEngine(),
	}
	for name, e := range engines {
		t.Run(name, func(t *testing.T) {
			_, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), effect.ASCII, effect.DefaultParameters(), palette.Default())
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %v", err)
			}
			if cfgErr.Reason != "prepare was not called" {
				t.Errorf("Expected reason %q, got %q", "prepare was not called", cfgErr.Reason)
			}
		})
	}
}

func TestPrepareRejectsNegativeBudget(t *testing.T) {
	e := NewGPUEngine(WithCPUOnly())
	err := e.Prepare(EngineConfiguration{MaxPreviewCells: -1})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
}

func TestPrepareFillsDefaults(t *testing.T) {
	e := newCPUEngine(t, EngineConfiguration{})
	if got := e.Configuration(); got != DefaultEngineConfiguration() {
		t.Errorf("Expected %+v, got %+v", DefaultEngineConfiguration(), got)
	}
	if e.Backend() != "cpu" {
		t.Errorf("Expected cpu backend, got %q", e.Backend())
	}
	if e.HasGPU() {
		t.Error("Expected no GPU with WithCPUOnly")
	}
}

func TestRenderPreviewGrid(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	frame, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{R: 200, G: 200, B: 200}), effect.ASCII, noJitter(40, 50), palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	want := grid.Make(40, grid.Landscape.Aspect(), DefaultMaxPreviewCells)
	if frame.Columns != want.Columns || frame.Rows != want.Rows {
		t.Fatalf("Expected %dx%d, got %dx%d", want.Columns, want.Rows, frame.Columns, frame.Rows)
	}
	lines := frame.Lines()
	if len(lines) != frame.Rows {
		t.Fatalf("Expected %d lines, got %d", frame.Rows, len(lines))
	}
	for i, line := range lines {
		if n := utf8.RuneCountInString(line); n != frame.Columns {
			t.Fatalf("Line %d: expected %d glyphs, got %d", i, frame.Columns, n)
		}
	}
	if strings.HasSuffix(frame.GlyphText, "\n") {
		t.Error("Expected no trailing newline")
	}
}

func TestRenderBlackFrameIsVoid(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	for _, typ := range effect.Types {
		frame, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), typ, noJitter(0, 50), palette.Default())
		if err != nil {
			t.Fatalf("%v: %v", typ, err)
		}
		void := string(typ.Glyph(0))
		if strings.Trim(strings.ReplaceAll(frame.GlyphText, "\n", ""), void) != "" {
			t.Errorf("%v: expected only void glyphs for a black frame", typ)
		}
	}
}

func TestRenderWhiteFrameIsDensest(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	frame, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{R: 255, G: 255, B: 255}), effect.Squares, noJitter(0, 100), palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Trim(strings.ReplaceAll(frame.GlyphText, "\n", ""), "█") != "" {
		t.Errorf("Expected only full blocks, got %q", frame.Lines()[0])
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	src := imageutil.PixelBufferFromImage(imageutil.CreateGradientImage(320, 180).RGBA)
	p := effect.NewParameters(60, 80, 40, 30)

	first, err := e.RenderPreview(context.Background(), src, effect.ASCII, p, palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.RenderPreview(context.Background(), src, effect.ASCII, p, palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	if first.GlyphText != second.GlyphText {
		t.Error("Expected identical output for identical inputs")
	}
}

func TestRenderFollowsSourceOrientation(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	src := imageutil.SolidFrame(imageutil.FormatBGRA8, 180, 320, imageutil.RGB{R: 90, G: 90, B: 90})
	frame, err := e.RenderPreview(context.Background(), src, effect.ASCII, noJitter(40, 50), palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	if frame.Rows <= frame.Columns {
		t.Errorf("Expected a portrait grid, got %dx%d", frame.Columns, frame.Rows)
	}

	fixed := newCPUEngine(t, DefaultEngineConfiguration(), WithOrientation(grid.Landscape))
	frame, err = fixed.RenderPreview(context.Background(), src, effect.ASCII, noJitter(40, 50), palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	if frame.Columns <= frame.Rows {
		t.Errorf("Expected a landscape grid, got %dx%d", frame.Columns, frame.Rows)
	}
}

func TestRenderHonoursNominalOrientation(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration(), WithOrientation(grid.Landscape))
	src := imageutil.SolidFrame(imageutil.FormatBGRA8, 320, 180, imageutil.RGB{R: 90, G: 90, B: 90})
	src.Orientation = grid.Portrait

	frame, err := e.RenderCapture(context.Background(), src, effect.ASCII, noJitter(40, 50), palette.Default(), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := grid.Make(40, grid.Portrait.Aspect(), DefaultMaxCaptureCells)
	if frame.Columns != want.Columns || frame.Rows != want.Rows {
		t.Errorf("Expected portrait grid %dx%d, got %dx%d", want.Columns, want.Rows, frame.Columns, frame.Rows)
	}
	if frame.Rows <= frame.Columns {
		t.Errorf("Expected more rows than columns, got %dx%d", frame.Columns, frame.Rows)
	}
}

func TestRenderCaptureBudgets(t *testing.T) {
	e := newCPUEngine(t, EngineConfiguration{MaxPreviewCells: 1200, MaxCaptureCells: 64000})
	src := landscapeFrame(imageutil.RGB{R: 128, G: 128, B: 128})
	p := noJitter(100, 50)

	preview, err := e.RenderPreview(context.Background(), src, effect.ASCII, p, palette.Default())
	if err != nil {
		t.Fatal(err)
	}
	capture, err := e.RenderCapture(context.Background(), src, effect.ASCII, p, palette.Default(), 0)
	if err != nil {
		t.Fatal(err)
	}
	override, err := e.RenderCapture(context.Background(), src, effect.ASCII, p, palette.Default(), 5000)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		frame AsciiFrame
		want  grid.Descriptor
	}{
		{"preview", preview, grid.Make(100, grid.Landscape.Aspect(), 1200)},
		{"capture", capture, grid.Make(100, grid.Landscape.Aspect(), 64000)},
		{"override", override, grid.Make(100, grid.Landscape.Aspect(), 5000)},
	}
	for _, tt := range tests {
		if tt.frame.Grid() != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, tt.frame.Grid())
		}
	}
}

func TestRenderCancelled(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frame, err := e.RenderCapture(ctx, landscapeFrame(imageutil.RGB{}), effect.ASCII, effect.DefaultParameters(), palette.Default(), 0)
	if !IsCancelled(err) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if frame.HasText() {
		t.Error("Expected no frame for a cancelled render")
	}
	if s := e.Stats(); s.Cancelled != 1 || s.Failures != 0 || s.Renders != 0 {
		t.Errorf("Expected one cancelled render, got %+v", s)
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	src := &imageutil.PixelBuffer{Format: imageutil.FormatNV12, Width: 64, Height: 36, Stride: 64, Pix: make([]byte, 64*36*3/2)}
	_, err := e.RenderPreview(context.Background(), src, effect.ASCII, effect.DefaultParameters(), palette.Default())
	if !errors.Is(err, ErrUnsupportedPixelFormat) {
		t.Fatalf("Expected ErrUnsupportedPixelFormat, got %v", err)
	}
}

func TestRenderInvalidEffect(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	_, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), effect.Type(42), effect.DefaultParameters(), palette.Default())
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Fatalf("Expected InternalError, got %v", err)
	}
}

func TestStatsCountRenders(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	for i := 0; i < 3; i++ {
		if _, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), effect.ASCII, effect.DefaultParameters(), palette.Default()); err != nil {
			t.Fatal(err)
		}
	}
	s := e.Stats()
	if s.Renders != 3 || s.GPURenders != 0 {
		t.Errorf("Expected 3 CPU renders, got %+v", s)
	}
	e.ResetStats()
	if s := e.Stats(); s.Renders != 0 {
		t.Errorf("Expected stats reset, got %+v", s)
	}
}

func TestSetupPreviewWithoutGPU(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	if _, err := e.PreviewRenderer(); !errors.Is(err, ErrGPUUnavailable) {
		t.Errorf("Expected ErrGPUUnavailable, got %v", err)
	}
}

func TestUpdatePreviewParametersBuildsAtlas(t *testing.T) {
	e := newCPUEngine(t, DefaultEngineConfiguration())
	p := effect.NewParameters(70, 10, 20, 30)
	if err := e.UpdatePreviewParameters(effect.Circles, p, palette.Default()); err != nil {
		t.Fatal(err)
	}
	snap := e.PreviewState().Snapshot()
	if snap.Effect != effect.Circles || snap.Parameters != p {
		t.Errorf("Expected circles with %+v, got %v with %+v", p, snap.Effect, snap.Parameters)
	}
	a, err := e.Atlas(effect.Circles)
	if err != nil {
		t.Fatal(err)
	}
	if a.GlyphCount() != effect.Circles.GlyphCount() {
		t.Errorf("Expected %d glyphs, got %d", effect.Circles.GlyphCount(), a.GlyphCount())
	}

	e.UpdateCameraPosition(true)
	if !e.PreviewState().Snapshot().Mirror {
		t.Error("Expected mirror for the front camera")
	}
}

func TestCheckShaders(t *testing.T) {
	if err := CheckShaders(); err != nil {
		t.Fatalf("Expected shaders to compile, got %v", err)
	}
}

func TestStubEngine(t *testing.T) {
	s := NewStubEngine()
	cfg := EngineConfiguration{MaxPreviewCells: 100, MaxCaptureCells: 200}
	if err := s.Prepare(cfg); err != nil {
		t.Fatal(err)
	}
	if s.Configuration() != cfg {
		t.Errorf("Expected %+v, got %+v", cfg, s.Configuration())
	}

	for _, render := range []func() (AsciiFrame, error){
		func() (AsciiFrame, error) {
			return s.RenderPreview(context.Background(), nil, effect.ASCII, effect.DefaultParameters(), palette.Default())
		},
		func() (AsciiFrame, error) {
			return s.RenderCapture(context.Background(), nil, effect.Diamonds, effect.DefaultParameters(), palette.Default(), 10)
		},
	} {
		frame, err := render()
		if err != nil {
			t.Fatal(err)
		}
		if frame.GlyphText != StubText || frame.Columns != 4 || frame.Rows != 2 {
			t.Errorf("Expected stub frame, got %+v", frame)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.RenderPreview(ctx, nil, effect.ASCII, effect.DefaultParameters(), palette.Default()); !IsCancelled(err) {
		t.Errorf("Expected cancellation, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	plain := errors.New("boom")
	tests := []struct {
		name     string
		err      error
		internal bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"format", ErrUnsupportedPixelFormat, false},
		{"configuration", &ConfigurationError{Reason: "x"}, false},
		{"plain", plain, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate("stage", tt.err)
			var internal *InternalError
			if errors.As(got, &internal) != tt.internal {
				t.Errorf("Expected internal=%v, got %v", tt.internal, got)
			}
			if tt.err != nil && !errors.Is(got, tt.err) {
				t.Errorf("Expected %v to wrap %v", got, tt.err)
			}
		})
	}
}

// blockingExtractor holds Extract open until release is closed.
type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(_ context.Context, _ *imageutil.PixelBuffer, g grid.Descriptor) ([]float32, error) {
	close(b.started)
	<-b.release
	return make([]float32, g.TotalCells()), nil
}

func TestCloseWaitsForRender(t *testing.T) {
	x := &blockingExtractor{started: make(chan struct{}), release: make(chan struct{})}
	e := NewGPUEngine(WithCPUOnly(), WithExtractor(x))
	if err := e.Prepare(DefaultEngineConfiguration()); err != nil {
		t.Fatal(err)
	}

	rendered := make(chan error, 1)
	go func() {
		_, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), effect.ASCII, noJitter(0, 50), palette.Default())
		rendered <- err
	}()
	<-x.started

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a render was still extracting")
	case <-time.After(50 * time.Millisecond):
	}

	close(x.release)
	if err := <-rendered; err != nil {
		t.Errorf("Expected the in-flight render to finish, got %v", err)
	}
	<-closed

	_, err := e.RenderPreview(context.Background(), landscapeFrame(imageutil.RGB{}), effect.ASCII, noJitter(0, 50), palette.Default())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected ConfigurationError after Close, got %v", err)
	}
}
