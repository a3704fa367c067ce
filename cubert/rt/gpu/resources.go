package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	ColorBinding     = 0
	TransformBinding = 1
	colorSize        = 4 * 4
)

// ResourceSet owns every GPU object the cube pass draws with. It takes
// ownership of the pipeline and releases everything in reverse allocation
// order.
type ResourceSet struct {
	dev Device

	Pipeline     RenderPipeline
	VertexBuffer Buffer
	VertexCount  uint32

	ColorBuffer Buffer
	color       mgl32.Vec4

	TransformBuffer Buffer
	capacity        int

	DepthTexture Texture
	depthSize    Size

	BindGroup BindGroup

	scratch []byte
}

// Allocate creates the buffers, depth texture and bind group for up to
// capacity instances. The transform buffer contents are undefined until the
// first WriteTransforms. The pipeline is owned by the result, and released
// along with any partial allocation if Allocate fails.
//
// An empty size defers the depth texture to the first non-empty Resize.
func Allocate(dev Device, pipeline RenderPipeline, capacity int, size Size) (*ResourceSet, error) {
	rs := &ResourceSet{dev: dev, Pipeline: pipeline}
	if err := rs.allocate(capacity, size); err != nil {
		rs.Release()
		return nil, err
	}
	return rs, nil
}

func (rs *ResourceSet) allocate(capacity int, size Size) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}
	if err := checkCapacity(rs.dev, capacity); err != nil {
		return err
	}

	var err error
	vertices := core.VertexBytes()
	rs.VertexBuffer, err = rs.dev.CreateBuffer(&BufferDescriptor{
		Label: "Cube VB",
		Size:  uint64(len(vertices)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	rs.VertexCount = core.CubeVertexCount
	if err := rs.dev.WriteBuffer(rs.VertexBuffer, 0, vertices); err != nil {
		return fmt.Errorf("upload vertices: %w", err)
	}

	// Own buffer, so the 256 byte uniform offset alignment never applies.
	rs.ColorBuffer, err = rs.dev.CreateBuffer(&BufferDescriptor{
		Label: "Cube Color",
		Size:  colorSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create color buffer: %w", err)
	}
	rs.color = core.White
	if err := rs.dev.WriteBuffer(rs.ColorBuffer, 0, colorBytes(rs.color)); err != nil {
		return fmt.Errorf("upload color: %w", err)
	}

	rs.TransformBuffer, err = rs.createTransformBuffer(capacity)
	if err != nil {
		return err
	}
	rs.capacity = capacity

	if !size.Empty() {
		if err := rs.createDepth(size); err != nil {
			return err
		}
	}
	return rs.rebuildBindGroup()
}

func checkCapacity(dev Device, capacity int) error {
	bytes := uint64(capacity) * core.MatrixSize
	limits := dev.Limits()
	if limits.MaxStorageBufferBindingSize > 0 && bytes > limits.MaxStorageBufferBindingSize {
		return fmt.Errorf("%w: %d instances need %d bytes, storage binding limit is %d",
			ErrCapacityExceeded, capacity, bytes, limits.MaxStorageBufferBindingSize)
	}
	if limits.MaxBufferSize > 0 && bytes > limits.MaxBufferSize {
		return fmt.Errorf("%w: %d instances need %d bytes, buffer limit is %d",
			ErrCapacityExceeded, capacity, bytes, limits.MaxBufferSize)
	}
	return nil
}

func (rs *ResourceSet) createTransformBuffer(capacity int) (Buffer, error) {
	buf, err := rs.dev.CreateBuffer(&BufferDescriptor{
		Label: "Cube Transforms",
		Size:  uint64(capacity) * core.MatrixSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create transform buffer: %w", err)
	}
	return buf, nil
}

func (rs *ResourceSet) createDepth(size Size) error {
	tex, err := rs.dev.CreateTexture(&TextureDescriptor{
		Label:  "Cube Depth",
		Size:   size,
		Format: DepthFormat,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	rs.DepthTexture = tex
	rs.depthSize = size
	return nil
}

func (rs *ResourceSet) rebuildBindGroup() error {
	bg, err := rs.dev.CreateBindGroup(rs.Pipeline, 0, []BindGroupEntry{
		{Binding: ColorBinding, Buffer: rs.ColorBuffer},
		{Binding: TransformBinding, Buffer: rs.TransformBuffer},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	if rs.BindGroup != nil {
		rs.BindGroup.Release()
	}
	rs.BindGroup = bg
	return nil
}

// Resize recreates the depth texture only; buffers do not depend on the
// drawable size. Empty or unchanged sizes are ignored.
func (rs *ResourceSet) Resize(size Size) error {
	if size.Empty() || size == rs.depthSize {
		return nil
	}
	if rs.DepthTexture != nil {
		rs.DepthTexture.Release()
		rs.DepthTexture = nil
	}
	return rs.createDepth(size)
}

// UpdateColor uploads rgba to the color buffer if it differs from the cached value.
func (rs *ResourceSet) UpdateColor(rgba mgl32.Vec4) error {
	if rgba == rs.color {
		return nil
	}
	if err := rs.dev.WriteBuffer(rs.ColorBuffer, 0, colorBytes(rgba)); err != nil {
		return err
	}
	rs.color = rgba
	return nil
}

func (rs *ResourceSet) Color() mgl32.Vec4 { return rs.color }

// WriteTransforms uploads one matrix per instance starting at instance 0.
func (rs *ResourceSet) WriteTransforms(mats []mgl32.Mat4) error {
	if len(mats) == 0 {
		return nil
	}
	if len(mats) > rs.capacity {
		return fmt.Errorf("%w: %d transforms, capacity %d", ErrCapacityExceeded, len(mats), rs.capacity)
	}
	need := len(mats) * core.MatrixSize
	if cap(rs.scratch) < need {
		rs.scratch = make([]byte, rs.capacity*core.MatrixSize)
	}
	return rs.dev.WriteBuffer(rs.TransformBuffer, 0, core.PackMatrices(rs.scratch, mats))
}

// EnsureCapacity grows the transform buffer to hold n instances. Growing
// replaces the buffer, so the bind group is rebuilt against the new one.
// It reports whether a reallocation happened.
func (rs *ResourceSet) EnsureCapacity(n int) (bool, error) {
	if n <= rs.capacity {
		return false, nil
	}
	if err := checkCapacity(rs.dev, n); err != nil {
		return false, err
	}
	buf, err := rs.createTransformBuffer(n)
	if err != nil {
		return false, err
	}
	old := rs.TransformBuffer
	rs.TransformBuffer = buf
	if err := rs.rebuildBindGroup(); err != nil {
		rs.TransformBuffer = old
		buf.Release()
		return false, err
	}
	old.Release()
	rs.capacity = n
	rs.scratch = nil
	return true, nil
}

func (rs *ResourceSet) Capacity() int { return rs.capacity }

func (rs *ResourceSet) VertexBufferSize() uint64 { return sizeOf(rs.VertexBuffer) }

func (rs *ResourceSet) TransformBufferSize() uint64 { return sizeOf(rs.TransformBuffer) }

func (rs *ResourceSet) DepthSize() Size { return rs.depthSize }

// Release frees everything in reverse allocation order. Safe to call twice.
func (rs *ResourceSet) Release() {
	if rs.BindGroup != nil {
		rs.BindGroup.Release()
		rs.BindGroup = nil
	}
	if rs.DepthTexture != nil {
		rs.DepthTexture.Release()
		rs.DepthTexture = nil
	}
	if rs.TransformBuffer != nil {
		rs.TransformBuffer.Release()
		rs.TransformBuffer = nil
	}
	if rs.ColorBuffer != nil {
		rs.ColorBuffer.Release()
		rs.ColorBuffer = nil
	}
	if rs.VertexBuffer != nil {
		rs.VertexBuffer.Release()
		rs.VertexBuffer = nil
	}
	if rs.Pipeline != nil {
		rs.Pipeline.Release()
		rs.Pipeline = nil
	}
	rs.capacity = 0
}

func sizeOf(b Buffer) uint64 {
	if b == nil {
		return 0
	}
	return b.Size()
}

func colorBytes(c mgl32.Vec4) []byte {
	buf := make([]byte, colorSize)
	for i, v := range c {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
