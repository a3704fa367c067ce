package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShaderInterface(t *testing.T) {
	assert.Contains(t, CubeVertexWGSL, "fn main(")
	assert.Contains(t, CubeFragmentWGSL, "fn main(")

	assert.Contains(t, CubeVertexWGSL, "@location(0) position : vec3<f32>")
	assert.Contains(t, CubeVertexWGSL, "@group(0) @binding(1) var<storage, read> mvpMatrix : array<mat4x4<f32>>")
	assert.Contains(t, CubeVertexWGSL, "mvpMatrix[index]")
	assert.Contains(t, CubeFragmentWGSL, "@group(0) @binding(0) var<uniform> color : vec4<f32>")

	assert.Equal(t, 1, strings.Count(CubeFragmentWGSL, "@location(0) vec4<f32>"))
}
