package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Size is a drawable size in physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

func (s Size) Empty() bool { return s.Width == 0 || s.Height == 0 }

// Limits are the negotiated device limits the core cares about.
type Limits struct {
	MaxStorageBufferBindingSize uint64
	MaxBufferSize               uint64
}

type Buffer interface {
	Size() uint64
	Release()
}

type Texture interface {
	Release()
}

type ShaderModule interface {
	Release()
}

type RenderPipeline interface {
	Release()
}

type BindGroup interface {
	Release()
}

// SurfaceFrame is the presentable texture acquired for one frame.
type SurfaceFrame interface {
	Release()
}

type CommandBuffer interface {
	Release()
}

type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetVertexBuffer(slot uint32, b Buffer)
	SetBindGroup(index uint32, g BindGroup)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	End() error
}

type CommandEncoder interface {
	BeginRenderPass(desc *RenderPassDescriptor) RenderPass
	Finish() (CommandBuffer, error)
	Release()
}

type RenderPassDescriptor struct {
	Target     SurfaceFrame
	ClearColor wgpu.Color
	Depth      Texture
	DepthClear float32
}

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

type TextureDescriptor struct {
	Label  string
	Size   Size
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

type RenderPipelineDescriptor struct {
	Label         string
	Vertex        ShaderModule
	VertexEntry   string
	Fragment      ShaderModule
	FragmentEntry string
	Buffers       []wgpu.VertexBufferLayout
	TargetFormat  wgpu.TextureFormat
	Primitive     wgpu.PrimitiveState
	DepthStencil  *wgpu.DepthStencilState
}

type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
}

// Device is everything the renderer needs from a GPU backend. The wgpu
// implementation lives in wgpu_device.go; gputest provides a recording fake.
type Device interface {
	Limits() Limits

	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	WriteBuffer(b Buffer, offset uint64, data []byte) error
	CreateTexture(desc *TextureDescriptor) (Texture, error)
	CreateShaderModule(label, wgsl string) (ShaderModule, error)
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)
	// CreateBindGroup builds a bind group against the pipeline's inferred layout for group.
	CreateBindGroup(p RenderPipeline, group uint32, entries []BindGroupEntry) (BindGroup, error)

	ConfigureSurface(size Size)
	AcquireFrame() (SurfaceFrame, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)
	Submit(cmds ...CommandBuffer)
	Present()

	Release()
}
