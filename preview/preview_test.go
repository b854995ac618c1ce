package preview

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/naga"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/internal/gpudev"
	"github.com/Barryalien23/monoart/palette"
)

func TestCellPixels(t *testing.T) {
	tests := []struct {
		cell float64
		want int
	}{
		{0, 12},
		{40, 8},
		{50, 8},
		{99, 4},
		{100, 4},
		{-10, 12},
		{500, 4},
	}
	for _, tt := range tests {
		if got := CellPixels(tt.cell); got != tt.want {
			t.Errorf("CellPixels(%v): expected %d, got %d", tt.cell, tt.want, got)
		}
	}
}

func TestUniformsBytes(t *testing.T) {
	u := Uniforms{
		TargetSize: [2]float32{1080, 1920},
		VideoSize:  [2]float32{640, 480},
		CellSize:   [2]uint32{8, 8},
		AtlasGrid:  [2]uint32{12, 7},
		ColorA:     [4]float32{0, 0, 0, 1},
		ColorB:     [4]float32{1, 0.5, 0.25, 1},
		Contrast:   0.1,
		Jitter:     0.2,
		Time:       0.016,
		Mirror:     1,
		GlyphCount: 74,
	}
	b := u.Bytes()
	if len(b) != UniformSize {
		t.Fatalf("Expected %d bytes, got %d", UniformSize, len(b))
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	i := func(off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }

	if f(0) != 1080 || f(4) != 1920 {
		t.Errorf("Expected target size at offset 0, got %v %v", f(0), f(4))
	}
	if f(8) != 640 || f(12) != 480 {
		t.Errorf("Expected video size at offset 8, got %v %v", f(8), f(12))
	}
	if i(16) != 8 || i(24) != 12 || i(28) != 7 {
		t.Errorf("Expected cell and atlas grid at 16..31, got %d %d %d", i(16), i(24), i(28))
	}
	if f(48) != 1 || f(52) != 0.5 || f(56) != 0.25 {
		t.Errorf("Expected colorB at offset 48, got %v %v %v", f(48), f(52), f(56))
	}
	if f(64) != 0.1 || f(68) != 0.2 || f(72) != 0.016 || f(76) != 1 {
		t.Errorf("Expected scalars at 64..79, got %v %v %v %v", f(64), f(68), f(72), f(76))
	}
	if i(80) != 74 {
		t.Errorf("Expected glyph count 74, got %d", i(80))
	}
	for off := 84; off < UniformSize; off++ {
		if b[off] != 0 {
			t.Errorf("Expected zero padding at %d", off)
		}
	}
}

func TestUniformsFor(t *testing.T) {
	sym, err := palette.Gradient(
		palette.Stop(0, palette.FromPreset(palette.Pink)),
		palette.Stop(1, palette.FromPreset(palette.Cyan)),
	)
	if err != nil {
		t.Fatal(err)
	}
	s := Snapshot{
		Video:      imageutil.NewPixelBuffer(imageutil.FormatBGRA8, 64, 48),
		Effect:     effect.Circles,
		Parameters: effect.NewParameters(100, 50, 25, 0),
		Palette:    palette.State{Background: palette.FromPreset(palette.Black), Symbols: sym},
		Mirror:     true,
	}
	u := uniformsFor(s, 320, 240, 12, 1, 6, 0.032)
	if u.CellSize != [2]uint32{4, 4} {
		t.Errorf("Expected 4px cells, got %v", u.CellSize)
	}
	if u.VideoSize != [2]float32{64, 48} {
		t.Errorf("Expected video size 64x48, got %v", u.VideoSize)
	}
	if u.Contrast != 0.25 || u.Jitter != 0.5 {
		t.Errorf("Expected contrast 0.25 and jitter 0.5, got %v and %v", u.Contrast, u.Jitter)
	}
	if u.ColorB != palette.FromPreset(palette.Pink).Floats() {
		t.Errorf("Expected first gradient stop as foreground, got %v", u.ColorB)
	}
	if u.Mirror != 1 || u.GlyphCount != 6 || u.Time != 0.032 {
		t.Errorf("Unexpected uniforms %+v", u)
	}
}

func TestStateUpdates(t *testing.T) {
	s := NewState()
	first := s.Snapshot()
	if first.Effect != effect.ASCII || first.Video != nil || first.Mirror {
		t.Fatalf("Unexpected initial state %+v", first)
	}

	s.UpdateParameters(effect.ASCII, effect.Parameters{Cell: 300}, palette.Default())
	if got := s.Snapshot(); got.EffectSeq != first.EffectSeq || got.Parameters.Cell != 100 {
		t.Errorf("Expected clamped parameters and no effect change, got %+v", got)
	}

	s.UpdateParameters(effect.Triangles, effect.DefaultParameters(), palette.Default())
	if got := s.Snapshot(); got.Effect != effect.Triangles || got.EffectSeq != first.EffectSeq+1 {
		t.Errorf("Expected effect switch to bump the sequence, got %+v", got)
	}

	buf := imageutil.NewPixelBuffer(imageutil.FormatBGRA8, 4, 4)
	s.UpdateVideo(buf)
	s.UpdateCameraPosition(true)
	got := s.Snapshot()
	if got.Video != buf || got.VideoSeq != 1 || !got.Mirror {
		t.Errorf("Expected video and mirror to be recorded, got %+v", got)
	}

	if tm := s.tick(); math.Abs(float64(tm-TimeStep)) > 1e-7 {
		t.Errorf("Expected time %v, got %v", TimeStep, tm)
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := NewState()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			s.UpdateParameters(effect.Types[i%len(effect.Types)], effect.DefaultParameters(), palette.Default())
			s.UpdateCameraPosition(i%2 == 0)
		}
	}()
	for i := 0; i < 1000; i++ {
		_ = s.Snapshot()
	}
	<-done
}

func TestShaderCompiles(t *testing.T) {
	src := ShaderSource()
	for _, want := range []string{"fn vs_main", "fn fs_main", "smoothstep(0.35, 0.65", "43758.5453"} {
		if !strings.Contains(src, want) {
			t.Errorf("Expected shader to contain %q", want)
		}
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		t.Fatalf("Shader failed to compile: %v", err)
	}
	if len(spirv) == 0 {
		t.Error("Expected SPIR-V output")
	}
}

func TestPhaseString(t *testing.T) {
	if Previewing.String() != "previewing" || Phase(9).String() != "phase(9)" {
		t.Errorf("Unexpected phase names %q %q", Previewing, Phase(9))
	}
}

func openRenderer(t *testing.T) (*gpudev.Device, *Renderer, *OffscreenTarget) {
	t.Helper()
	dev, err := gpudev.Open("preview-test", gpudev.AllowSoftware())
	if err != nil {
		t.Skipf("No wgpu adapter: %v", err)
	}
	target, err := NewOffscreenTarget(dev.Device, 96, 64)
	if err != nil {
		dev.Release()
		t.Fatal(err)
	}
	r, err := NewRenderer(dev.Device, target.Format())
	if err != nil {
		target.Release()
		dev.Release()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		r.Release()
		target.Release()
		dev.Release()
	})
	return dev, r, target
}

func TestRendererLifecycle(t *testing.T) {
	_, r, target := openRenderer(t)
	if r.Phase() != Prepared {
		t.Fatalf("Expected prepared, got %s", r.Phase())
	}
	if err := r.Draw(target); !errors.Is(err, ErrNotPreviewing) {
		t.Errorf("Expected ErrNotPreviewing, got %v", err)
	}
	if err := r.Start(nil); !errors.Is(err, ErrNoTarget) {
		t.Errorf("Expected ErrNoTarget, got %v", err)
	}
	if err := r.Start(target); err != nil {
		t.Fatal(err)
	}
	// No video yet: the frame is skipped.
	if err := r.Draw(target); err != nil {
		t.Errorf("Expected skipped draw, got %v", err)
	}
	r.Stop()
	r.Stop()
	if r.Phase() != Stopped {
		t.Errorf("Expected stopped, got %s", r.Phase())
	}
}

func TestRendererDrawsGlyphs(t *testing.T) {
	_, r, target := openRenderer(t)
	pal := palette.State{
		Background: palette.RGB(1, 0, 0),
		Symbols:    palette.Solid(palette.RGB(1, 1, 1)),
	}
	r.State().UpdateParameters(effect.ASCII, effect.NewParameters(0, 0, 100, 0), pal)
	r.State().UpdateVideo(imageutil.SolidFrame(imageutil.FormatBGRA8, 64, 48, imageutil.RGB{R: 255, G: 255, B: 255}))

	if err := r.Start(target); err != nil {
		t.Fatal(err)
	}
	if err := r.Draw(target); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := target.Readback(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ink, bg int
	for i := 0; i < len(img.Pix); i += 4 {
		switch {
		case img.Pix[i] > 200 && img.Pix[i+1] > 200:
			ink++
		case img.Pix[i] > 200 && img.Pix[i+1] < 50:
			bg++
		}
	}
	if ink == 0 || bg == 0 {
		t.Errorf("Expected both glyph ink and background, got %d ink and %d background pixels", ink, bg)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	_, r, target := openRenderer(t)
	r.State().UpdateVideo(imageutil.SolidFrame(imageutil.FormatRGBA8, 32, 32, imageutil.RGB{R: 128, G: 128, B: 128}))

	ctx, cancel := context.WithCancel(context.Background())
	frames := 0
	l := &Loop{
		Renderer: r,
		Target:   target,
		Interval: time.Millisecond,
		OnFrame: func(context.Context, Target) error {
			frames++
			if frames == 3 {
				cancel()
			}
			return nil
		},
	}
	if err := l.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if frames < 3 {
		t.Errorf("Expected at least 3 frames, got %d", frames)
	}
	if r.Phase() != Stopped {
		t.Errorf("Expected loop exit to stop the renderer, got %s", r.Phase())
	}
}
