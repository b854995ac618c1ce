// Package monoart converts camera frames into grids of glyphs. An Engine
// plans the grid, measures per-cell luminance on the GPU or the CPU, maps
// luminance to glyph indices and lays the glyphs out as text. GPUEngine
// also drives a live GPU preview that draws glyphs straight from the
// camera texture.
package monoart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/naga"

	"github.com/Barryalien23/monoart/atlas"
	"github.com/Barryalien23/monoart/compose"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/internal/gpudev"
	"github.com/Barryalien23/monoart/luminance"
	"github.com/Barryalien23/monoart/palette"
	"github.com/Barryalien23/monoart/preview"
	"github.com/Barryalien23/monoart/tonemap"
)

// Engine renders frames into glyph grids.
type Engine interface {
	// Prepare acquires resources. It must be called before rendering.
	Prepare(cfg EngineConfiguration) error
	// RenderPreview renders under the preview cell budget.
	RenderPreview(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State) (AsciiFrame, error)
	// RenderCapture renders under the capture cell budget, or under
	// cellOverride cells when it is positive.
	RenderCapture(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, cellOverride int) (AsciiFrame, error)
}

var (
	_ Engine = (*GPUEngine)(nil)
	_ Engine = (*StubEngine)(nil)
)

// Stats counts renders since the engine was prepared or ResetStats.
type Stats struct {
	Renders     int
	GPURenders  int
	Cancelled   int
	Failures    int
	ExtractTime time.Duration
	TotalTime   time.Duration
}

// GPUEngine extracts luminance with a WGSL compute kernel when a hardware
// GPU is available and falls back to the CPU otherwise. Renders are
// serialised; the preview draw path runs independently.
type GPUEngine struct {
	provider    gpucontext.DeviceProvider
	cpuOnly     bool
	atlasOpts   []atlas.Option
	orientation grid.Orientation
	fallback    luminance.Extractor

	cache        *atlas.Cache
	previewState *preview.State

	mu        sync.Mutex
	prepared  bool
	cfg       EngineConfiguration
	device    *gpudev.Device
	gpu       *luminance.GPU
	extractor luminance.Extractor
	renderer  *preview.Renderer

	renderMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// EngineOption is a functional option for configuring a GPUEngine.
type EngineOption func(*GPUEngine)

// WithDeviceProvider renders on a device supplied by the host instead of
// opening one.
func WithDeviceProvider(p gpucontext.DeviceProvider) EngineOption {
	return func(e *GPUEngine) {
		e.provider = p
	}
}

// WithCPUOnly never acquires a GPU device.
func WithCPUOnly() EngineOption {
	return func(e *GPUEngine) {
		e.cpuOnly = true
	}
}

// WithAtlasOptions configures how glyph atlases are built.
func WithAtlasOptions(opts ...atlas.Option) EngineOption {
	return func(e *GPUEngine) {
		e.atlasOpts = append(e.atlasOpts, opts...)
	}
}

// WithOrientation plans grids for o when a buffer carries no nominal
// orientation of its own.
func WithOrientation(o grid.Orientation) EngineOption {
	return func(e *GPUEngine) {
		e.orientation = o
	}
}

// WithExtractor sets the CPU extractor used without a GPU. The default
// box filter matches the GPU kernel exactly.
func WithExtractor(x luminance.Extractor) EngineOption {
	return func(e *GPUEngine) {
		e.fallback = x
	}
}

// NewGPUEngine creates an engine. Call Prepare before rendering.
func NewGPUEngine(opts ...EngineOption) *GPUEngine {
	e := &GPUEngine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.fallback == nil {
		e.fallback = luminance.NewBox()
	}
	e.cache = atlas.NewCache(e.atlasOpts...)
	e.previewState = preview.NewState()
	return e
}

// CheckShaders compiles the WGSL sources without a device.
func CheckShaders() error {
	if _, err := naga.Compile(luminance.KernelSource()); err != nil {
		return &ConfigurationError{Reason: "luminance kernel failed to compile", Err: err}
	}
	if _, err := naga.Compile(preview.ShaderSource()); err != nil {
		return &ConfigurationError{Reason: "preview shader failed to compile", Err: err}
	}
	return nil
}

// Prepare validates cfg, compiles the shaders and tries to acquire a GPU.
// GPU failures are logged and the engine continues on the CPU. Calling
// Prepare again only replaces the configuration.
func (e *GPUEngine) Prepare(cfg EngineConfiguration) error {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return err
	}
	if err := CheckShaders(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if e.prepared {
		return nil
	}

	e.extractor = e.fallback
	if !e.cpuOnly {
		if err := e.acquireGPU(); err != nil {
			Logger().Warn("GPU unavailable, using CPU luminance", "error", err)
		}
	}
	e.prepared = true
	e.ResetStats()

	Logger().Info("engine prepared",
		"backend", e.backendLocked(),
		"max_preview_cells", cfg.MaxPreviewCells,
		"max_capture_cells", cfg.MaxCaptureCells)
	return nil
}

func (e *GPUEngine) acquireGPU() error {
	var dev *gpudev.Device
	var err error
	if e.provider != nil {
		dev, err = gpudev.FromProvider(e.provider)
	} else {
		dev, err = gpudev.Open("monoart")
	}
	if err != nil {
		return err
	}
	gpu, err := luminance.NewGPU(dev.Device)
	if err != nil {
		dev.Release()
		return fmt.Errorf("build luminance pipeline: %w", err)
	}
	e.device = dev
	e.gpu = gpu
	e.extractor = gpu
	return nil
}

// Backend describes where luminance is computed.
func (e *GPUEngine) Backend() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backendLocked()
}

func (e *GPUEngine) backendLocked() string {
	if e.gpu != nil {
		return "gpu: " + e.device.Name
	}
	return "cpu"
}

// HasGPU reports whether a hardware device was acquired.
func (e *GPUEngine) HasGPU() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gpu != nil
}

// Configuration returns the configuration passed to Prepare.
func (e *GPUEngine) Configuration() EngineConfiguration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// RenderPreview implements Engine.
func (e *GPUEngine) RenderPreview(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State) (AsciiFrame, error) {
	return e.render(ctx, src, t, p, pal, func(cfg EngineConfiguration) int {
		return cfg.MaxPreviewCells
	})
}

// RenderCapture implements Engine.
func (e *GPUEngine) RenderCapture(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, cellOverride int) (AsciiFrame, error) {
	return e.render(ctx, src, t, p, pal, func(cfg EngineConfiguration) int {
		if cellOverride > 0 {
			return cellOverride
		}
		return cfg.MaxCaptureCells
	})
}

// RenderWithBudget renders under an explicit cell budget.
func (e *GPUEngine) RenderWithBudget(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, maxCells int) (AsciiFrame, error) {
	return e.render(ctx, src, t, p, pal, func(EngineConfiguration) int {
		return maxCells
	})
}

// snapshot must be called with renderMu held so Close cannot release the
// extractor while it is in use.
func (e *GPUEngine) snapshot() (EngineConfiguration, luminance.Extractor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return EngineConfiguration{}, nil, &ConfigurationError{Reason: "prepare was not called"}
	}
	return e.cfg, e.extractor, nil
}

func (e *GPUEngine) render(ctx context.Context, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, budget func(EngineConfiguration) int) (AsciiFrame, error) {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()

	cfg, x, err := e.snapshot()
	if err != nil {
		return AsciiFrame{}, err
	}
	if !t.Valid() {
		return AsciiFrame{}, &InternalError{Reason: fmt.Sprintf("invalid effect %d", int(t))}
	}
	if err := src.Validate(); err != nil {
		return AsciiFrame{}, err
	}

	start := time.Now()
	frame, extract, err := e.run(ctx, x, src, t, p.Clamped(), pal, budget(cfg))
	e.record(x, extract, time.Since(start), err)
	return frame, err
}

func (e *GPUEngine) run(ctx context.Context, x luminance.Extractor, src *imageutil.PixelBuffer, t effect.Type, p effect.Parameters, pal palette.State, maxCells int) (AsciiFrame, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return AsciiFrame{}, 0, err
	}

	o := src.Orientation
	if o == grid.Auto {
		o = e.orientation
	}
	o = o.Resolve(src.Width, src.Height)
	g := grid.Make(p.Cell, o.Aspect(), maxCells)

	extractStart := time.Now()
	lum, err := x.Extract(ctx, src, g)
	extract := time.Since(extractStart)
	if err != nil {
		return AsciiFrame{}, extract, translate("luminance extraction failed", err)
	}
	if err := ctx.Err(); err != nil {
		return AsciiFrame{}, extract, err
	}

	indices, err := tonemap.Indices(lum, g, t.GlyphCount(), p, pal.Hash())
	if err != nil {
		return AsciiFrame{}, extract, translate("tone mapping failed", err)
	}
	if err := ctx.Err(); err != nil {
		return AsciiFrame{}, extract, err
	}

	text := compose.Text(indices, t.Charset(), g)
	Logger().Debug("rendered frame",
		"effect", t.String(),
		"columns", g.Columns,
		"rows", g.Rows,
		"extract", extract)
	return AsciiFrame{GlyphText: text, Columns: g.Columns, Rows: g.Rows}, extract, nil
}

func (e *GPUEngine) record(x luminance.Extractor, extract, total time.Duration, err error) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	switch {
	case IsCancelled(err):
		e.stats.Cancelled++
		return
	case err != nil:
		e.stats.Failures++
		return
	}
	e.stats.Renders++
	if _, ok := x.(*luminance.GPU); ok {
		e.stats.GPURenders++
	}
	e.stats.ExtractTime += extract
	e.stats.TotalTime += total
}

// Stats returns render statistics.
func (e *GPUEngine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// ResetStats zeroes the render statistics.
func (e *GPUEngine) ResetStats() {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats = Stats{}
}

// Atlas returns the glyph atlas for t, building it on first use.
func (e *GPUEngine) Atlas(t effect.Type) (*atlas.Atlas, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid effect %d", int(t))
	}
	return e.cache.Get(t)
}

// PreviewState returns the state read by the preview renderer.
func (e *GPUEngine) PreviewState() *preview.State {
	return e.previewState
}

// SetupPreview creates the preview renderer for target's format, loads
// the current effect's atlas and starts previewing. It fails with
// ErrGPUUnavailable when the engine runs on the CPU.
func (e *GPUEngine) SetupPreview(target preview.Target) (*preview.Renderer, error) {
	if target == nil {
		return nil, preview.ErrNoTarget
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.prepared {
		return nil, &ConfigurationError{Reason: "prepare was not called"}
	}
	if e.device == nil {
		return nil, ErrGPUUnavailable
	}
	if e.renderer == nil {
		r, err := preview.NewRenderer(e.device.Device, target.Format(),
			preview.WithState(e.previewState),
			preview.WithAtlasCache(e.cache))
		if err != nil {
			return nil, &ConfigurationError{Reason: "preview pipeline", Err: err}
		}
		e.renderer = r
	}
	if _, err := e.cache.Get(e.previewState.Snapshot().Effect); err != nil {
		return nil, &ConfigurationError{Reason: "preview atlas", Err: err}
	}
	if err := e.renderer.Start(target); err != nil {
		return nil, err
	}
	return e.renderer, nil
}

// OffscreenTarget creates a texture target on the engine's device for
// headless previews.
func (e *GPUEngine) OffscreenTarget(width, height int) (*preview.OffscreenTarget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.device == nil {
		return nil, ErrGPUUnavailable
	}
	return preview.NewOffscreenTarget(e.device.Device, width, height)
}

// PreviewRenderer returns the renderer created by SetupPreview.
func (e *GPUEngine) PreviewRenderer() (*preview.Renderer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.renderer == nil {
		if e.device == nil {
			return nil, ErrGPUUnavailable
		}
		return nil, errors.New("monoart: preview not set up")
	}
	return e.renderer, nil
}

// UpdatePreviewVideo hands the latest camera frame to the preview.
func (e *GPUEngine) UpdatePreviewVideo(buf *imageutil.PixelBuffer) {
	e.previewState.UpdateVideo(buf)
}

// UpdatePreviewParameters stores new preview settings. A new effect's
// atlas is built before the state switches to it.
func (e *GPUEngine) UpdatePreviewParameters(t effect.Type, p effect.Parameters, pal palette.State) error {
	if _, err := e.Atlas(t); err != nil {
		return &InternalError{Reason: "build atlas", Err: err}
	}
	e.previewState.UpdateParameters(t, p, pal)
	return nil
}

// UpdateCameraPosition mirrors the preview for the front camera.
func (e *GPUEngine) UpdateCameraPosition(front bool) {
	e.previewState.UpdateCameraPosition(front)
}

// Close releases the preview renderer, the GPU pipeline and the device.
// The engine must be prepared again before further use.
func (e *GPUEngine) Close() error {
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
	if e.gpu != nil {
		e.gpu.Release()
		e.gpu = nil
	}
	if e.device != nil {
		e.device.Release()
		e.device = nil
	}
	e.extractor = nil
	e.prepared = false
	e.cache.Reset()
	return nil
}
