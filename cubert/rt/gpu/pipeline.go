package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/cubes/cubert/rt/core"
	"github.com/gekko3d/cubes/cubert/rt/shaders"
)

// DepthFormat is the 24-bit depth attachment format shared by the pipeline
// and the depth texture.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// ShaderSource is a vertex and a fragment WGSL program, both with entry point main.
type ShaderSource struct {
	Vertex   string
	Fragment string
}

func DefaultShaders() ShaderSource {
	return ShaderSource{Vertex: shaders.CubeVertexWGSL, Fragment: shaders.CubeFragmentWGSL}
}

// CubeVertexLayout is one float32x3 attribute at location 0 with a 12 byte stride.
var CubeVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: core.VertexStride,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{
			Format:         wgpu.VertexFormatFloat32x3,
			Offset:         0,
			ShaderLocation: 0,
		},
	},
}

// BuildPipeline compiles both stages and creates the cube pipeline. The bind
// group layout is inferred from the shaders, so a change to the shader
// interface only needs both to be rebuilt together.
func BuildPipeline(dev Device, format wgpu.TextureFormat, src ShaderSource) (RenderPipeline, error) {
	vs, err := dev.CreateShaderModule("Cube VS", src.Vertex)
	if err != nil {
		return nil, &ShaderCompilationError{Stage: "vertex", Err: err}
	}
	defer vs.Release()

	fs, err := dev.CreateShaderModule("Cube FS", src.Fragment)
	if err != nil {
		return nil, &ShaderCompilationError{Stage: "fragment", Err: err}
	}
	defer fs.Release()

	pipeline, err := dev.CreateRenderPipeline(&RenderPipelineDescriptor{
		Label:         "Cube Pipeline",
		Vertex:        vs,
		VertexEntry:   shaders.EntryPoint,
		Fragment:      fs,
		FragmentEntry: shaders.EntryPoint,
		Buffers:       []wgpu.VertexBufferLayout{CubeVertexLayout},
		TargetFormat:  format,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineCreation, err)
	}
	return pipeline, nil
}
