package core

import (
	"encoding/binary"
	"math"
)

const (
	// CubeVertexCount is the number of vertices drawn per instance.
	CubeVertexCount = 36
	// VertexStride is the byte size of one packed position (3 x float32).
	VertexStride = 3 * 4
)

// Vertex is a packed object-space position.
type Vertex [3]float32

// CubeVertices is a triangle list covering the six faces of the cube spanning
// [-1, 1] on every axis. There is no index buffer.
var CubeVertices = [CubeVertexCount]Vertex{
	// -Y
	{+1, -1, +1}, {-1, -1, +1}, {-1, -1, -1},
	{+1, -1, -1}, {+1, -1, +1}, {-1, -1, -1},
	// +X
	{+1, +1, +1}, {+1, -1, +1}, {+1, -1, -1},
	{+1, +1, -1}, {+1, +1, +1}, {+1, -1, -1},
	// +Y
	{-1, +1, +1}, {+1, +1, +1}, {+1, +1, -1},
	{-1, +1, -1}, {-1, +1, +1}, {+1, +1, -1},
	// -X
	{-1, -1, +1}, {-1, +1, +1}, {-1, +1, -1},
	{-1, -1, -1}, {-1, -1, +1}, {-1, +1, -1},
	// +Z
	{+1, +1, +1}, {-1, +1, +1}, {-1, -1, +1},
	{-1, -1, +1}, {+1, -1, +1}, {+1, +1, +1},
	// -Z
	{+1, -1, -1}, {-1, -1, -1}, {-1, +1, -1},
	{+1, +1, -1}, {+1, -1, -1}, {-1, +1, -1},
}

// VertexBytes packs CubeVertices little-endian, ready for a vertex buffer upload.
func VertexBytes() []byte {
	buf := make([]byte, len(CubeVertices)*VertexStride)
	for i, v := range CubeVertices {
		off := i * VertexStride
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	return buf
}
