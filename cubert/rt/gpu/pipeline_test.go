package gpu_test

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/gpu"
	"github.com/gekko3d/cubes/cubert/rt/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPipeline_FixedState(t *testing.T) {
	dev := gputest.NewDevice()
	p, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	require.NoError(t, err)
	require.Len(t, dev.Pipelines, 1)
	assert.Same(t, dev.Pipelines[0], p)

	desc := dev.Pipelines[0].Desc
	assert.Equal(t, "main", desc.VertexEntry)
	assert.Equal(t, "main", desc.FragmentEntry)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, desc.TargetFormat)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)

	require.Len(t, desc.Buffers, 1)
	assert.Equal(t, uint64(12), desc.Buffers[0].ArrayStride)
	require.Len(t, desc.Buffers[0].Attributes, 1)
	attr := desc.Buffers[0].Attributes[0]
	assert.Equal(t, uint32(0), attr.ShaderLocation)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, attr.Format)

	require.NotNil(t, desc.DepthStencil)
	assert.True(t, desc.DepthStencil.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionLess, desc.DepthStencil.DepthCompare)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, desc.DepthStencil.Format)

	// Shader modules are only needed while the pipeline is built.
	require.Len(t, dev.ShaderModules, 2)
	for _, m := range dev.ShaderModules {
		assert.True(t, m.Released, m.Label)
	}
}

func TestBuildPipeline_ShaderErrors(t *testing.T) {
	for _, stage := range []string{"vertex", "fragment"} {
		t.Run(stage, func(t *testing.T) {
			dev := gputest.NewDevice()
			diag := errors.New("error: expected ';'")
			src := gpu.DefaultShaders()
			bad := "fn main( {"
			if stage == "vertex" {
				src.Vertex = bad
			} else {
				src.Fragment = bad
			}
			dev.ShaderErr = func(label, code string) error {
				if code == bad {
					return diag
				}
				return nil
			}

			_, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, src)
			require.Error(t, err)
			assert.ErrorIs(t, err, gpu.ErrShaderCompilation)
			assert.ErrorIs(t, err, diag)

			var sce *gpu.ShaderCompilationError
			require.ErrorAs(t, err, &sce)
			assert.Equal(t, stage, sce.Stage)
			assert.Contains(t, err.Error(), "expected ';'")
			assert.Empty(t, dev.Pipelines)
			for _, m := range dev.ShaderModules {
				assert.True(t, m.Released)
			}
		})
	}
}

func TestBuildPipeline_PipelineError(t *testing.T) {
	dev := gputest.NewDevice()
	dev.PipelineErr = errors.New("vertex attribute mismatch")

	_, err := gpu.BuildPipeline(dev, wgpu.TextureFormatBGRA8Unorm, gpu.DefaultShaders())
	assert.ErrorIs(t, err, gpu.ErrPipelineCreation)
	assert.NotErrorIs(t, err, gpu.ErrShaderCompilation)
	assert.Contains(t, err.Error(), "vertex attribute mismatch")
}
