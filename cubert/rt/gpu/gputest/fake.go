// Package gputest provides a Device that records every call instead of
// talking to a GPU.
package gputest

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/gpu"
)

type Buffer struct {
	dev      *Device
	Label    string
	Usage    wgpu.BufferUsage
	Data     []byte
	Released bool
}

func (b *Buffer) Size() uint64 { return uint64(len(b.Data)) }

func (b *Buffer) Release() {
	b.Released = true
	b.dev.released(b.Label)
}

type Texture struct {
	dev      *Device
	Desc     gpu.TextureDescriptor
	Released bool
}

func (t *Texture) Release() {
	t.Released = true
	t.dev.released(t.Desc.Label)
}

type ShaderModule struct {
	dev      *Device
	Label    string
	Code     string
	Released bool
}

func (m *ShaderModule) Release() {
	m.Released = true
	m.dev.released(m.Label)
}

type Pipeline struct {
	dev      *Device
	Desc     gpu.RenderPipelineDescriptor
	Released bool
}

func (p *Pipeline) Release() {
	p.Released = true
	p.dev.released(p.Desc.Label)
}

type BindGroup struct {
	dev      *Device
	Pipeline gpu.RenderPipeline
	Group    uint32
	Entries  []gpu.BindGroupEntry
	Released bool
}

func (g *BindGroup) Release() {
	g.Released = true
	g.dev.released("BindGroup")
}

type Frame struct {
	dev      *Device
	Released bool
}

func (f *Frame) Release() {
	f.Released = true
	f.dev.released("Frame")
}

type CommandBuffer struct {
	dev      *Device
	Passes   []*Pass
	Released bool
}

func (c *CommandBuffer) Release() {
	c.Released = true
	c.dev.released("CommandBuffer")
}

// Call is one recorded render pass command.
type Call struct {
	Name string
	Args []any
}

type DrawCall struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

type Pass struct {
	Desc  gpu.RenderPassDescriptor
	Calls []Call
	Draws []DrawCall
	Ended bool
}

func (p *Pass) SetPipeline(pl gpu.RenderPipeline) {
	p.Calls = append(p.Calls, Call{Name: "SetPipeline", Args: []any{pl}})
}

func (p *Pass) SetVertexBuffer(slot uint32, b gpu.Buffer) {
	p.Calls = append(p.Calls, Call{Name: "SetVertexBuffer", Args: []any{slot, b}})
}

func (p *Pass) SetBindGroup(index uint32, g gpu.BindGroup) {
	p.Calls = append(p.Calls, Call{Name: "SetBindGroup", Args: []any{index, g}})
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Calls = append(p.Calls, Call{Name: "Draw", Args: []any{vertexCount, instanceCount, firstVertex, firstInstance}})
	p.Draws = append(p.Draws, DrawCall{vertexCount, instanceCount, firstVertex, firstInstance})
}

func (p *Pass) End() error {
	if p.Ended {
		return fmt.Errorf("render pass ended twice")
	}
	p.Ended = true
	return nil
}

type Encoder struct {
	dev      *Device
	Label    string
	Passes   []*Pass
	Finished bool
	Released bool
}

func (e *Encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) gpu.RenderPass {
	p := &Pass{Desc: *desc}
	e.Passes = append(e.Passes, p)
	return p
}

func (e *Encoder) Finish() (gpu.CommandBuffer, error) {
	for _, p := range e.Passes {
		if !p.Ended {
			return nil, fmt.Errorf("encoder finished with an open render pass")
		}
	}
	e.Finished = true
	return &CommandBuffer{dev: e.dev, Passes: e.Passes}, nil
}

func (e *Encoder) Release() {
	e.Released = true
	e.dev.released("Encoder")
}

// Write is one recorded queue write.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Device is a recording gpu.Device. Set the *Err fields to inject failures.
type Device struct {
	DeviceLimits gpu.Limits

	Buffers        []*Buffer
	Writes         []Write
	Textures       []*Texture
	ShaderModules  []*ShaderModule
	Pipelines      []*Pipeline
	BindGroups     []*BindGroup
	Frames         []*Frame
	Encoders       []*Encoder
	Submitted      []*CommandBuffer
	Presents       int
	SurfaceConfigs []gpu.Size
	// Releases lists labels in the order handles were released.
	Releases []string
	Released bool

	// ShaderErr is consulted for every shader module; a non-nil result fails it.
	ShaderErr   func(label, code string) error
	PipelineErr error
	BufferErr   error
	WriteErr    error
	AcquireErr  error

	// onRelease frees what the device owns, such as its adapter.
	onRelease func()
}

var _ gpu.Device = &Device{}

func NewDevice() *Device {
	return &Device{
		DeviceLimits: gpu.Limits{
			MaxStorageBufferBindingSize: 128 << 20,
			MaxBufferSize:               256 << 20,
		},
	}
}

func (d *Device) released(label string) { d.Releases = append(d.Releases, label) }

func (d *Device) Limits() gpu.Limits { return d.DeviceLimits }

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	if d.BufferErr != nil {
		return nil, d.BufferErr
	}
	b := &Buffer{dev: d, Label: desc.Label, Usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) WriteBuffer(b gpu.Buffer, offset uint64, data []byte) error {
	if d.WriteErr != nil {
		return d.WriteErr
	}
	buf := b.(*Buffer)
	if buf.Released {
		return fmt.Errorf("write to released buffer %q", buf.Label)
	}
	if offset+uint64(len(data)) > uint64(len(buf.Data)) {
		return fmt.Errorf("write of %d bytes at %d overflows %q (%d bytes)", len(data), offset, buf.Label, len(buf.Data))
	}
	copy(buf.Data[offset:], data)
	d.Writes = append(d.Writes, Write{Buffer: buf, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.Texture, error) {
	t := &Texture{dev: d, Desc: *desc}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateShaderModule(label, wgsl string) (gpu.ShaderModule, error) {
	if d.ShaderErr != nil {
		if err := d.ShaderErr(label, wgsl); err != nil {
			return nil, err
		}
	}
	m := &ShaderModule{dev: d, Label: label, Code: wgsl}
	d.ShaderModules = append(d.ShaderModules, m)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if d.PipelineErr != nil {
		return nil, d.PipelineErr
	}
	p := &Pipeline{dev: d, Desc: *desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) CreateBindGroup(p gpu.RenderPipeline, group uint32, entries []gpu.BindGroupEntry) (gpu.BindGroup, error) {
	for _, e := range entries {
		if e.Buffer.(*Buffer).Released {
			return nil, fmt.Errorf("bind group entry %d references a released buffer", e.Binding)
		}
	}
	g := &BindGroup{dev: d, Pipeline: p, Group: group, Entries: append([]gpu.BindGroupEntry(nil), entries...)}
	d.BindGroups = append(d.BindGroups, g)
	return g, nil
}

func (d *Device) ConfigureSurface(size gpu.Size) {
	d.SurfaceConfigs = append(d.SurfaceConfigs, size)
}

func (d *Device) AcquireFrame() (gpu.SurfaceFrame, error) {
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	f := &Frame{dev: d}
	d.Frames = append(d.Frames, f)
	return f, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	e := &Encoder{dev: d, Label: label}
	d.Encoders = append(d.Encoders, e)
	return e, nil
}

func (d *Device) Submit(cmds ...gpu.CommandBuffer) {
	for _, c := range cmds {
		d.Submitted = append(d.Submitted, c.(*CommandBuffer))
	}
}

func (d *Device) Present() { d.Presents++ }

func (d *Device) Release() {
	d.Released = true
	d.released("Device")
	if d.onRelease != nil {
		d.onRelease()
	}
}

// Draws returns every draw call from submitted command buffers.
func (d *Device) Draws() []DrawCall {
	var out []DrawCall
	for _, c := range d.Submitted {
		for _, p := range c.Passes {
			out = append(out, p.Draws...)
		}
	}
	return out
}

// WritesTo returns the writes that targeted the buffer with label.
func (d *Device) WritesTo(label string) []Write {
	var out []Write
	for _, w := range d.Writes {
		if w.Buffer.Label == label {
			out = append(out, w)
		}
	}
	return out
}

// Context wraps the device in a DeviceContext with the given size.
func (d *Device) Context(size gpu.Size) *gpu.DeviceContext {
	return &gpu.DeviceContext{Device: d, Format: wgpu.TextureFormatBGRA8Unorm, Size: size}
}
