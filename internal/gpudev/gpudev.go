// Package gpudev acquires a hardware wgpu device, either by opening one or
// by adopting a device supplied through a gpucontext.DeviceProvider.
package gpudev

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	// Register all available GPU backends (Vulkan, DX12, GLES, Metal, etc.)
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/Barryalien23/monoart/internal/logx"
)

// ErrUnavailable is returned when no hardware adapter can be used.
// Software adapters count as unavailable.
var ErrUnavailable = errors.New("no hardware GPU adapter")

// Device is an acquired wgpu device. Devices adopted from a provider are
// not released by Release.
type Device struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Name   string

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	owned    bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	allowSoftware bool
}

// AllowSoftware accepts CPU adapters. Renderers use it in tests so the
// GPU paths run on machines without a hardware device; the engine never
// does.
func AllowSoftware() Option {
	return func(o *options) {
		o.allowSoftware = true
	}
}

// Open creates an instance, picks a high-performance adapter and opens a
// device on it. Software adapters are rejected unless AllowSoftware is
// given.
func Open(label string, opts ...Option) (*Device, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	instance, err := wgpu.CreateInstance(&wgpu.InstanceDescriptor{
		Backends: wgpu.BackendsAll,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", ErrUnavailable, err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %v", ErrUnavailable, err)
	}
	info := adapter.Info()
	if info.DeviceType == gputypes.DeviceTypeCPU && !o.allowSoftware {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: software adapter %q", ErrUnavailable, info.Name)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: label})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %v", ErrUnavailable, err)
	}

	logx.Logger().Info("gpu device opened", "adapter", info.Name, "type", info.DeviceType.String())
	return &Device{
		Device:   device,
		Queue:    device.Queue(),
		Name:     info.Name,
		instance: instance,
		adapter:  adapter,
		owned:    true,
	}, nil
}

// FromProvider adopts the provider's device. The provider's Device() must
// return a *wgpu.Device.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil provider", ErrUnavailable)
	}
	if adapter, ok := provider.Adapter().(*wgpu.Adapter); ok && adapter != nil {
		if adapter.Info().DeviceType == gputypes.DeviceTypeCPU {
			return nil, fmt.Errorf("%w: provider adapter is software", ErrUnavailable)
		}
	}
	if provider.AdapterInfo().Type == gpucontext.AdapterTypeSoftware {
		return nil, fmt.Errorf("%w: provider adapter is software", ErrUnavailable)
	}

	dev := provider.Device()
	if dev == nil {
		return nil, fmt.Errorf("provider Device is nil")
	}
	wgpuDev, ok := dev.(*wgpu.Device)
	if !ok {
		return nil, fmt.Errorf("provider Device is not *wgpu.Device (got %T)", dev)
	}
	queue := wgpuDev.Queue()
	if queue == nil {
		return nil, fmt.Errorf("provider Queue is nil")
	}
	return &Device{
		Device: wgpuDev,
		Queue:  queue,
		Name:   provider.AdapterInfo().Name,
	}, nil
}

// Release frees the device if it was opened by Open.
func (d *Device) Release() {
	if d == nil || !d.owned {
		return
	}
	d.Device.Release()
	d.adapter.Release()
	d.instance.Release()
	d.owned = false
}
