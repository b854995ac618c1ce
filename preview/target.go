package preview

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// Target is a surface the preview draws into.
type Target interface {
	View() *wgpu.TextureView
	Size() (width, height int)
	Format() gputypes.TextureFormat
}

// copyRowAlignment is the bytes-per-row alignment of texture to buffer copies.
const copyRowAlignment = 256

// OffscreenTarget is an RGBA texture that can be read back to the CPU.
type OffscreenTarget struct {
	device      *wgpu.Device
	texture     *wgpu.Texture
	view        *wgpu.TextureView
	staging     *wgpu.Buffer
	width       int
	height      int
	bytesPerRow uint32
}

// NewOffscreenTarget allocates a width x height render texture.
func NewOffscreenTarget(device *wgpu.Device, width, height int) (*OffscreenTarget, error) {
	if device == nil {
		return nil, fmt.Errorf("nil device")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	t := &OffscreenTarget{
		device:      device,
		width:       width,
		height:      height,
		bytesPerRow: align(uint32(width)*4, copyRowAlignment),
	}

	var err error
	t.texture, err = device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "preview-target",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create target texture: %w", err)
	}
	t.view, err = device.CreateTextureView(t.texture, nil)
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("create target view: %w", err)
	}
	t.staging, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "preview-readback",
		Size:  uint64(t.bytesPerRow) * uint64(height),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		t.Release()
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}
	return t, nil
}

// View implements Target.
func (t *OffscreenTarget) View() *wgpu.TextureView { return t.view }

// Size implements Target.
func (t *OffscreenTarget) Size() (int, int) { return t.width, t.height }

// Format implements Target.
func (t *OffscreenTarget) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Readback copies the last drawn frame into an image.
func (t *OffscreenTarget) Readback(ctx context.Context) (*image.RGBA, error) {
	encoder, err := t.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "preview-readback"})
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	encoder.CopyTextureToBuffer(t.texture, t.staging, []wgpu.BufferTextureCopy{{
		BufferLayout: wgpu.ImageDataLayout{
			BytesPerRow:  t.bytesPerRow,
			RowsPerImage: uint32(t.height),
		},
		TextureBase: wgpu.ImageCopyTexture{Texture: t.texture},
		Size:        wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	}})
	cmd, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	if _, err := t.device.Queue().Submit(cmd); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	size := uint64(t.bytesPerRow) * uint64(t.height)
	if err := t.staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("map readback: %w", err)
	}
	rng, err := t.staging.MappedRange(0, size)
	if err != nil {
		_ = t.staging.Unmap()
		return nil, fmt.Errorf("mapped range: %w", err)
	}
	raw := rng.Bytes()
	img := image.NewRGBA(image.Rect(0, 0, t.width, t.height))
	for y := 0; y < t.height; y++ {
		src := raw[y*int(t.bytesPerRow):]
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], src[:t.width*4])
	}
	if err := t.staging.Unmap(); err != nil {
		return nil, fmt.Errorf("unmap readback: %w", err)
	}
	return img, nil
}

// Release frees the texture and readback buffer.
func (t *OffscreenTarget) Release() {
	if t.staging != nil {
		t.staging.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
	t.staging, t.view, t.texture = nil, nil, nil
}

func align(n, a uint32) uint32 {
	return (n + a - 1) / a * a
}
