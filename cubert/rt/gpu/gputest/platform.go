package gputest

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/gpu"
)

// Surface is a SurfaceSource with a fixed drawable size.
type Surface struct {
	Size gpu.Size
}

func (s Surface) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return &wgpu.SurfaceDescriptor{Label: "fake surface"}
}

func (s Surface) DrawableSize() gpu.Size { return s.Size }

// Platform is a scripted gpu.Platform. Each successful negotiation hands out
// a new Device. Set the failure fields to stop negotiation at that step.
type Platform struct {
	ConnectErr error
	// NoBackend makes Connect return neither a connection nor an error.
	NoBackend  bool
	AdapterErr error
	NoAdapter  bool
	DeviceErr  error

	AdapterLimits wgpu.Limits
	Capabilities  wgpu.SurfaceCapabilities

	Connections    []*Connection
	Adapters       []*Adapter
	Devices        []*Device
	RequiredLimits []wgpu.Limits
	// SurfaceConfigs holds the configuration passed with each device request.
	SurfaceConfigs []wgpu.SurfaceConfiguration
}

var _ gpu.Platform = &Platform{}

func NewPlatform() *Platform {
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = 1 << 30
	limits.MaxBufferSize = 1 << 31
	return &Platform{
		AdapterLimits: limits,
		Capabilities: wgpu.SurfaceCapabilities{
			Formats:      []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm},
			PresentModes: []wgpu.PresentMode{wgpu.PresentModeFifo},
			AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
		},
	}
}

func (p *Platform) Connect(src gpu.SurfaceSource) (gpu.Connection, error) {
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.NoBackend {
		return nil, nil
	}
	c := &Connection{p: p}
	p.Connections = append(p.Connections, c)
	return c, nil
}

type Connection struct {
	p        *Platform
	Released bool
}

func (c *Connection) RequestAdapter() (gpu.Adapter, error) {
	if c.p.AdapterErr != nil {
		return nil, c.p.AdapterErr
	}
	if c.p.NoAdapter {
		return nil, nil
	}
	a := &Adapter{p: c.p, conn: c}
	c.p.Adapters = append(c.p.Adapters, a)
	return a, nil
}

func (c *Connection) Release() { c.Released = true }

type Adapter struct {
	p        *Platform
	conn     *Connection
	Released bool
}

func (a *Adapter) Limits() wgpu.Limits { return a.p.AdapterLimits }

func (a *Adapter) SurfaceCapabilities() wgpu.SurfaceCapabilities { return a.p.Capabilities }

func (a *Adapter) RequestDevice(required wgpu.Limits, config wgpu.SurfaceConfiguration) (gpu.Device, error) {
	a.p.RequiredLimits = append(a.p.RequiredLimits, required)
	if a.p.DeviceErr != nil {
		return nil, a.p.DeviceErr
	}
	a.p.SurfaceConfigs = append(a.p.SurfaceConfigs, config)

	dev := NewDevice()
	dev.DeviceLimits = gpu.Limits{
		MaxStorageBufferBindingSize: required.MaxStorageBufferBindingSize,
		MaxBufferSize:               required.MaxBufferSize,
	}
	dev.onRelease = func() {
		a.Release()
		a.conn.Release()
	}
	a.p.Devices = append(a.p.Devices, dev)
	return dev, nil
}

func (a *Adapter) Release() { a.Released = true }
