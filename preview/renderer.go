// Package preview draws the live glyph preview on the GPU. A fragment
// shader picks a glyph per screen cell straight from the camera texture,
// so no text is produced.
package preview

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/Barryalien23/monoart/atlas"
	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/imageutil"
	"github.com/Barryalien23/monoart/internal/logx"
)

//go:embed shaders/preview.wgsl
var shaderSource string

// ShaderSource returns the WGSL source of the preview shader.
func ShaderSource() string {
	return shaderSource
}

// Phase is the renderer lifecycle state.
type Phase int

const (
	Uninitialized Phase = iota
	Prepared
	Previewing
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case Prepared:
		return "prepared"
	case Previewing:
		return "previewing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	// ErrNoTarget is returned by Start without a target.
	ErrNoTarget = errors.New("preview: no target")
	// ErrNotPreviewing is returned by Draw outside the Previewing phase.
	ErrNotPreviewing = errors.New("preview: not previewing")
)

// Renderer owns the preview pipeline and the textures it samples.
type Renderer struct {
	device *wgpu.Device
	format gputypes.TextureFormat
	state  *State
	cache  *atlas.Cache

	mu             sync.Mutex
	phase          Phase
	shader         *wgpu.ShaderModule
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipeline       *wgpu.RenderPipeline
	uniforms       *wgpu.Buffer
	videoSampler   *wgpu.Sampler
	atlasSampler   *wgpu.Sampler

	video     *texture
	videoSeq  uint64
	glyphs    *texture
	atlas     *atlas.Atlas
	effectSeq uint64
	bindGroup *wgpu.BindGroup
}

type texture struct {
	tex           *wgpu.Texture
	view          *wgpu.TextureView
	width, height int
}

func (t *texture) release() {
	if t == nil {
		return
	}
	t.view.Release()
	t.tex.Release()
}

// RendererOption is a functional option for configuring a Renderer.
type RendererOption func(*Renderer)

// WithState shares a preview state with the renderer.
func WithState(s *State) RendererOption {
	return func(r *Renderer) {
		r.state = s
	}
}

// WithAtlasCache shares an atlas cache with the renderer.
func WithAtlasCache(c *atlas.Cache) RendererOption {
	return func(r *Renderer) {
		r.cache = c
	}
}

// NewRenderer builds the preview pipeline for targets of the given format.
// The caller keeps ownership of the device.
func NewRenderer(device *wgpu.Device, format gputypes.TextureFormat, opts ...RendererOption) (*Renderer, error) {
	if device == nil {
		return nil, fmt.Errorf("nil device")
	}
	r := &Renderer{device: device, format: format}
	for _, opt := range opts {
		opt(r)
	}
	if r.state == nil {
		r.state = NewState()
	}
	if r.cache == nil {
		r.cache = atlas.NewCache()
	}
	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}
	r.phase = Prepared
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	r.shader, err = r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "preview-shader",
		WGSL:  shaderSource,
	})
	if err != nil {
		return fmt.Errorf("create shader: %w", err)
	}

	frag := wgpu.ShaderStageFragment
	texLayout := &gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	smpLayout := &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	r.layout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "preview-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: frag, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: frag, Texture: texLayout},
			{Binding: 2, Visibility: frag, Sampler: smpLayout},
			{Binding: 3, Visibility: frag, Texture: texLayout},
			{Binding: 4, Visibility: frag, Sampler: smpLayout},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	r.pipelineLayout, err = r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "preview-pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	r.pipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "preview-pipeline",
		Layout: r.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    r.format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	r.uniforms, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "preview-uniforms",
		Size:  UniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	r.videoSampler, err = r.device.CreateSampler(sampler("preview-video", gputypes.FilterModeLinear))
	if err != nil {
		return fmt.Errorf("create video sampler: %w", err)
	}
	r.atlasSampler, err = r.device.CreateSampler(sampler("preview-atlas", gputypes.FilterModeNearest))
	if err != nil {
		return fmt.Errorf("create atlas sampler: %w", err)
	}
	return nil
}

func sampler(label string, filter gputypes.FilterMode) *wgpu.SamplerDescriptor {
	return &wgpu.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	}
}

// State returns the state the renderer draws from.
func (r *Renderer) State() *State { return r.state }

// Phase returns the current lifecycle phase.
func (r *Renderer) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Start begins previewing into target.
func (r *Renderer) Start(target Target) error {
	if target == nil {
		return ErrNoTarget
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pipeline == nil {
		return fmt.Errorf("preview: pipeline not ready (%s)", r.phase)
	}
	if target.Format() != r.format {
		return fmt.Errorf("preview: target format %v does not match pipeline format %v", target.Format(), r.format)
	}
	r.phase = Previewing
	w, h := target.Size()
	logx.Logger().Info("preview started", "width", w, "height", h)
	return nil
}

// Stop ends previewing. Stopping twice is harmless.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == Previewing {
		r.phase = Stopped
		logx.Logger().Info("preview stopped")
	}
}

// UploadVideo copies a camera frame into the video texture, reallocating
// it when the frame size changes.
func (r *Renderer) UploadVideo(buf *imageutil.PixelBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploadVideo(buf)
}

func (r *Renderer) uploadVideo(buf *imageutil.PixelBuffer) error {
	pixels, err := buf.PackRGBA()
	if err != nil {
		return err
	}
	if r.video == nil || r.video.width != buf.Width || r.video.height != buf.Height {
		t, err := r.newTexture("preview-video", buf.Width, buf.Height, gputypes.TextureFormatRGBA8Unorm)
		if err != nil {
			return err
		}
		r.video.release()
		r.video = t
		r.dropBindGroup()
	}
	return r.write(r.video, pixels, uint32(buf.Width)*4)
}

// loadAtlas uploads the effect's atlas as an R8 texture.
func (r *Renderer) loadAtlas(t effect.Type) error {
	a, err := r.cache.Get(t)
	if err != nil {
		return fmt.Errorf("load atlas: %w", err)
	}
	w, h := a.Size()
	if r.glyphs == nil || r.glyphs.width != w || r.glyphs.height != h {
		tex, err := r.newTexture("preview-atlas", w, h, gputypes.TextureFormatR8Unorm)
		if err != nil {
			return err
		}
		r.glyphs.release()
		r.glyphs = tex
		r.dropBindGroup()
	}
	if err := r.write(r.glyphs, a.Mask.Pix, uint32(a.Mask.Stride)); err != nil {
		return err
	}
	r.atlas = a
	logx.Logger().Debug("preview atlas loaded", "effect", t.String(), "glyphs", a.GlyphCount())
	return nil
}

func (r *Renderer) newTexture(label string, w, h int, format gputypes.TextureFormat) (*texture, error) {
	tex, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := r.device.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return &texture{tex: tex, view: view, width: w, height: h}, nil
}

func (r *Renderer) write(t *texture, data []byte, bytesPerRow uint32) error {
	err := r.device.Queue().WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex},
		data,
		&wgpu.ImageDataLayout{BytesPerRow: bytesPerRow, RowsPerImage: uint32(t.height)},
		&wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("write texture: %w", err)
	}
	return nil
}

func (r *Renderer) dropBindGroup() {
	if r.bindGroup != nil {
		r.bindGroup.Release()
		r.bindGroup = nil
	}
}

func (r *Renderer) ensureBindGroup() error {
	if r.bindGroup != nil {
		return nil
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "preview-bg",
		Layout: r.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.uniforms, Size: UniformSize},
			{Binding: 1, TextureView: r.video.view},
			{Binding: 2, Sampler: r.videoSampler},
			{Binding: 3, TextureView: r.glyphs.view},
			{Binding: 4, Sampler: r.atlasSampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

// Draw renders one frame into target. It is a no-op until a video frame
// has been supplied. Effect changes reload the atlas before drawing;
// parameter and palette changes only rewrite the uniform block.
func (r *Renderer) Draw(target Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != Previewing {
		return ErrNotPreviewing
	}

	snap := r.state.Snapshot()
	if snap.Video == nil {
		return nil
	}
	if r.video == nil || snap.VideoSeq != r.videoSeq {
		if err := r.uploadVideo(snap.Video); err != nil {
			return err
		}
		r.videoSeq = snap.VideoSeq
	}
	if r.atlas == nil || r.atlas.Effect != snap.Effect || snap.EffectSeq != r.effectSeq {
		if err := r.loadAtlas(snap.Effect); err != nil {
			return err
		}
		r.effectSeq = snap.EffectSeq
	}
	if r.video == nil || r.glyphs == nil {
		return nil
	}

	w, h := target.Size()
	u := uniformsFor(snap, w, h, r.atlas.GridColumns, r.atlas.GridRows, r.atlas.GlyphCount(), r.state.tick())
	queue := r.device.Queue()
	if err := queue.WriteBuffer(r.uniforms, 0, u.Bytes()); err != nil {
		return fmt.Errorf("write uniforms: %w", err)
	}
	if err := r.ensureBindGroup(); err != nil {
		return err
	}

	encoder, err := r.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "preview"})
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	bg := u.ColorA
	pass, err := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target.View(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: float64(bg[3])},
		}},
	})
	if err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, r.bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	if _, err := queue.Submit(cmd); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Release stops the preview and frees every GPU object. The device is not
// released.
func (r *Renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropBindGroup()
	r.video.release()
	r.glyphs.release()
	r.video, r.glyphs, r.atlas = nil, nil, nil
	if r.atlasSampler != nil {
		r.atlasSampler.Release()
	}
	if r.videoSampler != nil {
		r.videoSampler.Release()
	}
	if r.uniforms != nil {
		r.uniforms.Release()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.pipelineLayout != nil {
		r.pipelineLayout.Release()
	}
	if r.layout != nil {
		r.layout.Release()
	}
	if r.shader != nil {
		r.shader.Release()
	}
	r.atlasSampler, r.videoSampler, r.uniforms = nil, nil, nil
	r.pipeline, r.pipelineLayout, r.layout, r.shader = nil, nil, nil, nil
	if r.phase != Uninitialized {
		r.phase = Stopped
	}
}
