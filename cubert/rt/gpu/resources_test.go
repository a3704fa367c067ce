package gpu_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/gekko3d/cubes/cubert/rt/gpu"
	"github.com/gekko3d/cubes/cubert/rt/gpu/gputest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocate(t *testing.T, dev *gputest.Device, capacity int) *gpu.ResourceSet {
	t.Helper()
	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)
	rs, err := gpu.Allocate(dev, p, capacity, gpu.Size{Width: 800, Height: 600})
	require.NoError(t, err)
	return rs
}

func floatsAt(b []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestAllocate_BufferSizes(t *testing.T) {
	for _, n := range []int{1, 7, 100, 4096} {
		dev := gputest.NewDevice()
		rs := allocate(t, dev, n)
		assert.Equal(t, uint64(64*n), rs.TransformBufferSize(), "capacity %d", n)
		assert.Equal(t, uint64(432), rs.VertexBufferSize())
		assert.Equal(t, uint64(rs.VertexCount)*3*4, rs.VertexBufferSize())
		assert.Equal(t, n, rs.Capacity())
	}
}

func TestAllocate_UsageAndUploads(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 100)

	vb := rs.VertexBuffer.(*gputest.Buffer)
	assert.Equal(t, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, vb.Usage)
	assert.Equal(t, core.VertexBytes(), vb.Data)

	cb := rs.ColorBuffer.(*gputest.Buffer)
	assert.Equal(t, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, cb.Usage)
	assert.Equal(t, []float32{1, 1, 1, 1}, floatsAt(cb.Data, 4))

	tb := rs.TransformBuffer.(*gputest.Buffer)
	assert.Equal(t, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, tb.Usage)
	assert.Empty(t, dev.WritesTo("Cube Transforms"), "transform buffer is not initialised at allocation")

	depth := rs.DepthTexture.(*gputest.Texture)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, depth.Desc.Format)
	assert.Equal(t, wgpu.TextureUsageRenderAttachment, depth.Desc.Usage)
	assert.Equal(t, gpu.Size{Width: 800, Height: 600}, depth.Desc.Size)

	bg := rs.BindGroup.(*gputest.BindGroup)
	assert.Equal(t, uint32(0), bg.Group)
	assert.Same(t, rs.Pipeline, bg.Pipeline)
	require.Len(t, bg.Entries, 2)
	assert.Equal(t, uint32(0), bg.Entries[0].Binding)
	assert.Same(t, rs.ColorBuffer, bg.Entries[0].Buffer)
	assert.Equal(t, uint32(1), bg.Entries[1].Binding)
	assert.Same(t, rs.TransformBuffer, bg.Entries[1].Buffer)
}

func TestAllocate_InvalidCapacity(t *testing.T) {
	for _, n := range []int{0, -1} {
		dev := gputest.NewDevice()
		p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
		require.NoError(t, err)

		rs, err := gpu.Allocate(dev, p, n, gpu.Size{Width: 1, Height: 1})
		assert.Nil(t, rs)
		assert.ErrorIs(t, err, gpu.ErrInvalidCapacity, "capacity %d", n)
		assert.True(t, dev.Pipelines[0].Released)
		assert.Empty(t, dev.Buffers)
	}

	_, err := gpu.Allocate(gputest.NewDevice(), nil, 0, gpu.Size{Width: 1, Height: 1})
	assert.ErrorIs(t, err, gpu.ErrInvalidCapacity)
}

func TestAllocate_BufferFailureReleasesPipeline(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)
	dev.BufferErr = errors.New("out of memory")

	_, err = gpu.Allocate(dev, p, 10, gpu.Size{Width: 1, Height: 1})
	assert.ErrorContains(t, err, "create vertex buffer")
	assert.True(t, dev.Pipelines[0].Released)
}

func TestAllocate_EmptySizeDefersDepth(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)

	rs, err := gpu.Allocate(dev, p, 10, gpu.Size{})
	require.NoError(t, err)
	assert.Nil(t, rs.DepthTexture)
	assert.Empty(t, dev.Textures)
	assert.NotNil(t, rs.BindGroup)

	require.NoError(t, rs.Resize(gpu.Size{Width: 640, Height: 480}))
	require.Len(t, dev.Textures, 1)
	assert.Equal(t, gpu.Size{Width: 640, Height: 480}, dev.Textures[0].Desc.Size)

	rs.Release()
	assert.Equal(t, "Cube Pipeline", dev.Releases[len(dev.Releases)-1])
}

func TestAllocate_CapacityAboveDeviceLimit(t *testing.T) {
	dev := gputest.NewDevice()
	dev.DeviceLimits.MaxStorageBufferBindingSize = 64 * 100

	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)

	_, err = gpu.Allocate(dev, p, 101, gpu.Size{Width: 1, Height: 1})
	assert.ErrorIs(t, err, gpu.ErrCapacityExceeded)
	assert.Empty(t, dev.Buffers)
	assert.True(t, dev.Pipelines[0].Released, "pipeline is released on failure")

	p, err = gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)
	rs, err := gpu.Allocate(dev, p, 100, gpu.Size{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(6400), rs.TransformBufferSize())
}

func TestAllocate_FailureReleasesPartialState(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)
	dev.WriteErr = gpu.ErrDeviceLost

	rs, err := gpu.Allocate(dev, p, 10, gpu.Size{Width: 1, Height: 1})
	assert.Nil(t, rs)
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.True(t, gpu.IsRecoverable(err))
	require.NotEmpty(t, dev.Buffers)
	for _, b := range dev.Buffers {
		assert.True(t, b.Released, b.Label)
	}
	assert.True(t, dev.Pipelines[0].Released)
}

func TestResourceSet_Resize(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 10)
	oldDepth := rs.DepthTexture.(*gputest.Texture)
	buffers := len(dev.Buffers)
	bindGroup := rs.BindGroup

	require.NoError(t, rs.Resize(gpu.Size{Width: 1024, Height: 768}))
	assert.True(t, oldDepth.Released)
	assert.Equal(t, gpu.Size{Width: 1024, Height: 768}, rs.DepthSize())
	assert.Equal(t, gpu.Size{Width: 1024, Height: 768}, rs.DepthTexture.(*gputest.Texture).Desc.Size)
	assert.Len(t, dev.Buffers, buffers, "resize must not touch buffers")
	assert.Same(t, bindGroup, rs.BindGroup)

	textures := len(dev.Textures)
	require.NoError(t, rs.Resize(gpu.Size{Width: 0, Height: 768}))
	require.NoError(t, rs.Resize(gpu.Size{Width: 1024, Height: 768}))
	assert.Len(t, dev.Textures, textures)
}

func TestResourceSet_UpdateColor(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 10)
	writes := len(dev.Writes)

	require.NoError(t, rs.UpdateColor(mgl32.Vec4{1, 0, 0, 1}))
	require.Len(t, dev.Writes, writes+1)
	w := dev.Writes[len(dev.Writes)-1]
	assert.Same(t, rs.ColorBuffer, w.Buffer)
	assert.Equal(t, []float32{1, 0, 0, 1}, floatsAt(w.Data, 4))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, rs.Color())

	require.NoError(t, rs.UpdateColor(mgl32.Vec4{1, 0, 0, 1}))
	assert.Len(t, dev.Writes, writes+1, "unchanged color is not re-uploaded")
}

func TestResourceSet_WriteTransforms(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 4)

	mats := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(1, 2, 3), mgl32.Scale3D(2, 2, 2)}
	require.NoError(t, rs.WriteTransforms(mats))

	writes := dev.WritesTo("Cube Transforms")
	require.Len(t, writes, 1)
	assert.Equal(t, uint64(0), writes[0].Offset)
	assert.Len(t, writes[0].Data, 3*64)
	got := floatsAt(writes[0].Data[64:], 16)
	assert.Equal(t, mats[1][:], got)

	err := rs.WriteTransforms(make([]mgl32.Mat4, 5))
	assert.ErrorIs(t, err, gpu.ErrCapacityExceeded)
}

func TestResourceSet_EnsureCapacityRebuildsBindGroup(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 10)
	oldBuf := rs.TransformBuffer.(*gputest.Buffer)
	oldBG := rs.BindGroup.(*gputest.BindGroup)

	grown, err := rs.EnsureCapacity(5)
	require.NoError(t, err)
	assert.False(t, grown)

	grown, err = rs.EnsureCapacity(250)
	require.NoError(t, err)
	assert.True(t, grown)
	assert.Equal(t, 250, rs.Capacity())
	assert.Equal(t, uint64(250*64), rs.TransformBufferSize())
	assert.True(t, oldBuf.Released)
	assert.True(t, oldBG.Released)

	bg := rs.BindGroup.(*gputest.BindGroup)
	assert.Same(t, rs.TransformBuffer, bg.Entries[1].Buffer)
	assert.Same(t, rs.ColorBuffer, bg.Entries[0].Buffer)

	require.NoError(t, rs.WriteTransforms(make([]mgl32.Mat4, 250)))
}

func TestResourceSet_EnsureCapacityRespectsLimit(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 10)
	dev.DeviceLimits.MaxStorageBufferBindingSize = 64 * 20

	_, err := rs.EnsureCapacity(21)
	assert.ErrorIs(t, err, gpu.ErrCapacityExceeded)
	assert.Equal(t, 10, rs.Capacity())
	assert.False(t, rs.TransformBuffer.(*gputest.Buffer).Released)
}

func TestResourceSet_ReleaseOrder(t *testing.T) {
	dev := gputest.NewDevice()
	rs := allocate(t, dev, 10)
	dev.Releases = nil

	rs.Release()
	assert.Equal(t, []string{
		"BindGroup",
		"Cube Depth",
		"Cube Transforms",
		"Cube Color",
		"Cube VB",
		"Cube Pipeline",
	}, dev.Releases)

	rs.Release()
	assert.Len(t, dev.Releases, 6, "second release is a no-op")
}
