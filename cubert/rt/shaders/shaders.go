package shaders

import (
	_ "embed"
)

// Both stages use the entry point "main". Bind group 0: binding 0 is the
// color uniform, binding 1 the per-instance MVP storage array.

//go:embed cube.vert.wgsl
var CubeVertexWGSL string

//go:embed cube.frag.wgsl
var CubeFragmentWGSL string

const EntryPoint = "main"
