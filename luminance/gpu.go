package luminance

import (
	"context"
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/Barryalien23/monoart/grid"
	"github.com/Barryalien23/monoart/imageutil"
)

//go:embed shaders/luminance.wgsl
var kernelSource string

const workgroupSize = 8

// KernelSource returns the WGSL source of the compute kernel.
func KernelSource() string {
	return kernelSource
}

// GPU runs the luminance kernel on a wgpu device. Buffers are sized for
// the last frame and reused while the frame and grid sizes stay the same.
type GPU struct {
	device *wgpu.Device

	mu             sync.Mutex
	shader         *wgpu.ShaderModule
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipeline       *wgpu.ComputePipeline
	params         *wgpu.Buffer
	frame          *frameBuffers
}

type frameBuffers struct {
	pixelBytes, outBytes uint64
	pixels, out, staging *wgpu.Buffer
	bindGroup            *wgpu.BindGroup
}

func (f *frameBuffers) release() {
	f.bindGroup.Release()
	f.staging.Release()
	f.out.Release()
	f.pixels.Release()
}

// NewGPU builds the compute pipeline on device. The caller keeps ownership
// of the device.
func NewGPU(device *wgpu.Device) (*GPU, error) {
	if device == nil {
		return nil, fmt.Errorf("nil device")
	}
	g := &GPU{device: device}
	if err := g.init(); err != nil {
		g.Release()
		return nil, err
	}
	return g, nil
}

func (g *GPU) init() error {
	var err error
	g.shader, err = g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "luminance-kernel",
		WGSL:  kernelSource,
	})
	if err != nil {
		return fmt.Errorf("create shader: %w", err)
	}
	g.layout, err = g.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "luminance-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	g.pipelineLayout, err = g.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "luminance-pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{g.layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	g.pipeline, err = g.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      "luminance-pipeline",
		Layout:     g.pipelineLayout,
		Module:     g.shader,
		EntryPoint: "main",
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	g.params, err = g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "luminance-params",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	return nil
}

// Extract implements Extractor.
func (g *GPU) Extract(ctx context.Context, src *imageutil.PixelBuffer, gd grid.Descriptor) ([]float32, error) {
	if err := checkInput(src, gd); err != nil {
		return nil, err
	}
	pixels, err := src.PackRGBA()
	if err != nil {
		return nil, err
	}
	if uint64(src.Width)*uint64(src.Height) > math.MaxUint32 {
		return nil, fmt.Errorf("frame %dx%d too large", src.Width, src.Height)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	frame, err := g.buffers(uint64(len(pixels)), uint64(gd.TotalCells())*4)
	if err != nil {
		return nil, err
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], uint32(src.Width))
	binary.LittleEndian.PutUint32(params[4:], uint32(src.Height))
	binary.LittleEndian.PutUint32(params[8:], uint32(gd.Columns))
	binary.LittleEndian.PutUint32(params[12:], uint32(gd.Rows))

	queue := g.device.Queue()
	if err := queue.WriteBuffer(frame.pixels, 0, pixels); err != nil {
		return nil, fmt.Errorf("write pixels: %w", err)
	}
	if err := queue.WriteBuffer(g.params, 0, params); err != nil {
		return nil, fmt.Errorf("write params: %w", err)
	}

	encoder, err := g.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "luminance"})
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	pass, err := encoder.BeginComputePass(nil)
	if err != nil {
		return nil, fmt.Errorf("begin compute pass: %w", err)
	}
	pass.SetPipeline(g.pipeline)
	pass.SetBindGroup(0, frame.bindGroup, nil)
	pass.Dispatch(groups(gd.Columns), groups(gd.Rows), 1)
	if err := pass.End(); err != nil {
		return nil, fmt.Errorf("end compute pass: %w", err)
	}
	encoder.CopyBufferToBuffer(frame.out, 0, frame.staging, 0, frame.outBytes)
	cmd, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	if _, err := queue.Submit(cmd); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	if err := frame.staging.Map(ctx, wgpu.MapModeRead, 0, frame.outBytes); err != nil {
		return nil, fmt.Errorf("map result: %w", err)
	}
	rng, err := frame.staging.MappedRange(0, frame.outBytes)
	if err != nil {
		_ = frame.staging.Unmap()
		return nil, fmt.Errorf("mapped range: %w", err)
	}
	raw := rng.Bytes()
	out := make([]float32, gd.TotalCells())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	if err := frame.staging.Unmap(); err != nil {
		return nil, fmt.Errorf("unmap result: %w", err)
	}
	return out, nil
}

// buffers returns per-frame buffers of the requested sizes, recreating
// them when the sizes change.
func (g *GPU) buffers(pixelBytes, outBytes uint64) (*frameBuffers, error) {
	if f := g.frame; f != nil && f.pixelBytes == pixelBytes && f.outBytes == outBytes {
		return f, nil
	}
	if g.frame != nil {
		g.frame.release()
		g.frame = nil
	}

	f := &frameBuffers{pixelBytes: pixelBytes, outBytes: outBytes}
	var err error
	f.pixels, err = g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "luminance-pixels",
		Size:  pixelBytes,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create pixel buffer: %w", err)
	}
	f.out, err = g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "luminance-out",
		Size:  outBytes,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		f.pixels.Release()
		return nil, fmt.Errorf("create output buffer: %w", err)
	}
	f.staging, err = g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "luminance-staging",
		Size:  outBytes,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		f.out.Release()
		f.pixels.Release()
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	f.bindGroup, err = g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "luminance-bg",
		Layout: g.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.pixels, Size: pixelBytes},
			{Binding: 1, Buffer: f.out, Size: outBytes},
			{Binding: 2, Buffer: g.params, Size: 16},
		},
	})
	if err != nil {
		f.staging.Release()
		f.out.Release()
		f.pixels.Release()
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	g.frame = f
	return f, nil
}

// Release frees the pipeline and buffers. The device is not released.
func (g *GPU) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.frame != nil {
		g.frame.release()
		g.frame = nil
	}
	if g.params != nil {
		g.params.Release()
	}
	if g.pipeline != nil {
		g.pipeline.Release()
	}
	if g.pipelineLayout != nil {
		g.pipelineLayout.Release()
	}
	if g.layout != nil {
		g.layout.Release()
	}
	if g.shader != nil {
		g.shader.Release()
	}
	g.params, g.pipeline, g.pipelineLayout, g.layout, g.shader = nil, nil, nil, nil, nil
}

func groups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}
