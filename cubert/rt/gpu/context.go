package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is the window-system side of a render surface.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	DrawableSize() Size
}

// Platform is the part of a GPU API used before a device exists.
type Platform interface {
	// Connect creates an instance and a presentable surface for src.
	Connect(src SurfaceSource) (Connection, error)
}

// Connection is an instance and surface waiting for an adapter.
type Connection interface {
	// RequestAdapter asks for a high-performance adapter compatible with the
	// surface. A nil adapter with a nil error means none was found.
	RequestAdapter() (Adapter, error)
	Release()
}

// Adapter is one physical GPU able to present to the connection's surface.
type Adapter interface {
	Limits() wgpu.Limits
	SurfaceCapabilities() wgpu.SurfaceCapabilities
	// RequestDevice opens a device with the required limits and configures
	// the surface with config unless its size is empty. On success the device
	// owns the adapter and the connection.
	RequestDevice(required wgpu.Limits, config wgpu.SurfaceConfiguration) (Device, error)
	Release()
}

// DeviceContext is the negotiated device, surface format and drawable size.
type DeviceContext struct {
	Device Device
	Format wgpu.TextureFormat
	Size   Size
}

// Initialize negotiates a device for src through wgpu-native.
func Initialize(src SurfaceSource) (*DeviceContext, error) {
	return Negotiate(WGPU{}, src)
}

// Negotiate connects to p, picks a high-performance adapter compatible with
// the surface, requests a device with the adapter's full storage buffer
// binding and buffer sizes, and configures the surface for presentation.
// Everything created along the way is released on failure.
func Negotiate(p Platform, src SurfaceSource) (*DeviceContext, error) {
	conn, err := p.Connect(src)
	if err != nil {
		if errors.Is(err, ErrPlatformUnsupported) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPlatformUnsupported, err)
	}
	if conn == nil {
		return nil, ErrPlatformUnsupported
	}

	adapter, err := conn.RequestAdapter()
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("%w: %w", ErrNoSuitableAdapter, err)
	}
	if adapter == nil {
		conn.Release()
		return nil, ErrNoSuitableAdapter
	}
	abandon := func() {
		adapter.Release()
		conn.Release()
	}

	caps := adapter.SurfaceCapabilities()
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		abandon()
		return nil, fmt.Errorf("%w: surface reports no formats", ErrNoSuitableAdapter)
	}

	// Limits vary by hardware, so ask for whatever the adapter supports
	// rather than a fixed ceiling.
	supported := adapter.Limits()
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = supported.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.MaxBufferSize

	size := src.DrawableSize()
	config := wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       size.Width,
		Height:      size.Height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	dev, err := adapter.RequestDevice(limits, config)
	if err != nil {
		abandon()
		return nil, fmt.Errorf("%w: %w", ErrDeviceRequestFailed, err)
	}

	return &DeviceContext{
		Device: dev,
		Format: config.Format,
		Size:   size,
	}, nil
}

// Resize reconfigures the surface. It reports false for empty or unchanged sizes.
func (c *DeviceContext) Resize(size Size) bool {
	if size.Empty() || size == c.Size {
		return false
	}
	c.Device.ConfigureSurface(size)
	c.Size = size
	return true
}

func (c *DeviceContext) Release() {
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
}
