package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// WGPU is the wgpu-native Platform.
type WGPU struct{}

var _ Platform = WGPU{}

func (WGPU) Connect(src SurfaceSource) (Connection, error) {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, ErrPlatformUnsupported
	}
	surface := instance.CreateSurface(src.SurfaceDescriptor())
	if surface == nil {
		instance.Release()
		return nil, fmt.Errorf("%w: surface creation failed", ErrPlatformUnsupported)
	}
	return &wgpuConnection{instance: instance, surface: surface}, nil
}

type wgpuConnection struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
}

func (c *wgpuConnection) RequestAdapter() (Adapter, error) {
	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, nil
	}
	return &wgpuAdapter{conn: c, adapter: adapter}, nil
}

func (c *wgpuConnection) Release() {
	c.surface.Release()
	c.instance.Release()
}

type wgpuAdapter struct {
	conn    *wgpuConnection
	adapter *wgpu.Adapter
}

func (a *wgpuAdapter) Limits() wgpu.Limits { return a.adapter.GetLimits().Limits }

func (a *wgpuAdapter) SurfaceCapabilities() wgpu.SurfaceCapabilities {
	return a.conn.surface.GetCapabilities(a.adapter)
}

func (a *wgpuAdapter) RequestDevice(required wgpu.Limits, config wgpu.SurfaceConfiguration) (Device, error) {
	d := &wgpuDevice{
		instance: a.conn.instance,
		surface:  a.conn.surface,
		adapter:  a.adapter,
		config:   &config,
	}
	device, err := a.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "Cube Device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: required},
		DeviceLostCallback: func(reason wgpu.DeviceLostReason, message string) {
			// Destroyed is our own Release.
			if reason != wgpu.DeviceLostReasonDestroyed {
				d.lost.Store(true)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	d.device = device
	d.queue = device.GetQueue()
	d.limits = Limits{
		MaxStorageBufferBindingSize: required.MaxStorageBufferBindingSize,
		MaxBufferSize:               required.MaxBufferSize,
	}
	d.ConfigureSurface(Size{Width: config.Width, Height: config.Height})
	return d, nil
}

func (a *wgpuAdapter) Release() { a.adapter.Release() }
