package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuDevice struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	config   *wgpu.SurfaceConfiguration
	limits   Limits
	// lost is set from the device-lost callback, which may run on a driver thread.
	lost atomic.Bool
}

var _ Device = &wgpuDevice{}

type wgpuBuffer struct{ buf *wgpu.Buffer }

func (b *wgpuBuffer) Size() uint64 { return b.buf.GetSize() }

func (b *wgpuBuffer) Release() { b.buf.Release() }

type wgpuTexture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
}

type wgpuShaderModule struct{ mod *wgpu.ShaderModule }

func (m *wgpuShaderModule) Release() { m.mod.Release() }

type wgpuPipeline struct{ pipeline *wgpu.RenderPipeline }

func (p *wgpuPipeline) Release() { p.pipeline.Release() }

type wgpuBindGroup struct{ group *wgpu.BindGroup }

func (g *wgpuBindGroup) Release() { g.group.Release() }

type wgpuCommandBuffer struct{ cmd *wgpu.CommandBuffer }

func (c *wgpuCommandBuffer) Release() { c.cmd.Release() }

type wgpuEncoder struct{ enc *wgpu.CommandEncoder }

type wgpuRenderPass struct{ pass *wgpu.RenderPassEncoder }

func (d *wgpuDevice) Limits() Limits { return d.limits }

func (d *wgpuDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf}, nil
}

func (d *wgpuDevice) WriteBuffer(b Buffer, offset uint64, data []byte) error {
	if err := d.queue.WriteBuffer(b.(*wgpuBuffer).buf, offset, data); err != nil {
		return writeError(err, d.lost.Load())
	}
	return nil
}

// writeError reports a failed queue write as ErrDeviceLost only once the
// device-lost callback has fired. Anything else is a validation error, which
// rebuilding the session would not cure.
func writeError(err error, lost bool) error {
	if lost {
		return fmt.Errorf("%w: write buffer: %w", ErrDeviceLost, err)
	}
	return fmt.Errorf("write buffer: %w", err)
}

func (d *wgpuDevice) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: desc.Size.Width, Height: desc.Size.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{tex: tex, view: view}, nil
}

func (d *wgpuDevice) CreateShaderModule(label, wgsl string) (ShaderModule, error) {
	mod, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: wgsl},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{mod: mod}, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	// Layout is left nil: the bind group layouts are inferred from the shaders.
	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     desc.Vertex.(*wgpuShaderModule).mod,
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.Buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     desc.Fragment.(*wgpuShaderModule).mod,
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    desc.TargetFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive:    desc.Primitive,
		DepthStencil: desc.DepthStencil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipeline{pipeline: pipeline}, nil
}

func (d *wgpuDevice) CreateBindGroup(p RenderPipeline, group uint32, entries []BindGroupEntry) (BindGroup, error) {
	layout := p.(*wgpuPipeline).pipeline.GetBindGroupLayout(group)
	defer layout.Release()

	wgpuEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		wgpuEntries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  e.Buffer.(*wgpuBuffer).buf,
			Size:    wgpu.WholeSize,
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Cube BG",
		Layout:  layout,
		Entries: wgpuEntries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: bg}, nil
}

func (d *wgpuDevice) ConfigureSurface(size Size) {
	if size.Empty() {
		return
	}
	d.config.Width = size.Width
	d.config.Height = size.Height
	d.surface.Configure(d.adapter, d.device, d.config)
}

func (d *wgpuDevice) AcquireFrame() (SurfaceFrame, error) {
	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	return &wgpuTexture{tex: tex, view: view}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuEncoder{enc: enc}, nil
}

func (d *wgpuDevice) Submit(cmds ...CommandBuffer) {
	native := make([]*wgpu.CommandBuffer, len(cmds))
	for i, c := range cmds {
		native[i] = c.(*wgpuCommandBuffer).cmd
	}
	d.queue.Submit(native...)
}

func (d *wgpuDevice) Present() {
	d.surface.Present()
}

// Release frees the device and everything it was created from, newest first.
func (d *wgpuDevice) Release() {
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (e *wgpuEncoder) BeginRenderPass(desc *RenderPassDescriptor) RenderPass {
	rp := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       desc.Target.(*wgpuTexture).view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: desc.ClearColor,
		}},
	}
	if desc.Depth != nil {
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            desc.Depth.(*wgpuTexture).view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.DepthClear,
		}
	}
	return &wgpuRenderPass{pass: e.enc.BeginRenderPass(rp)}
}

func (e *wgpuEncoder) Finish() (CommandBuffer, error) {
	cmd, err := e.enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{cmd: cmd}, nil
}

func (e *wgpuEncoder) Release() { e.enc.Release() }

func (p *wgpuRenderPass) SetPipeline(pl RenderPipeline) {
	p.pass.SetPipeline(pl.(*wgpuPipeline).pipeline)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, b Buffer) {
	buf := b.(*wgpuBuffer).buf
	p.pass.SetVertexBuffer(slot, buf, 0, buf.GetSize())
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, g BindGroup) {
	p.pass.SetBindGroup(index, g.(*wgpuBindGroup).group, nil)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *wgpuRenderPass) End() error {
	err := p.pass.End()
	p.pass.Release()
	return err
}
