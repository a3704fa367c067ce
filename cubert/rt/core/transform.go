package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FovY is the vertical field of view in radians.
	FovY  float32 = math.Pi / 2
	Near  float32 = 0.1
	Far   float32 = 100
	// MatrixSize is the byte size of one mat4x4<f32>.
	MatrixSize = 16 * 4
)

// Transform places one instance. Rotation holds Euler angles in radians,
// applied X then Y then Z.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Model returns T * Rx * Ry * Rz * S.
func (t Transform) Model() mgl32.Mat4 {
	return ModelMatrix(t.Position, t.Rotation, t.Scale)
}

func (t Transform) MVP(aspect float32) mgl32.Mat4 {
	return ComputeMVP(t.Position, t.Rotation, t.Scale, aspect)
}

func ModelMatrix(position, rotation, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(mgl32.HomogRotate3DX(rotation.X())).
		Mul4(mgl32.HomogRotate3DY(rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(rotation.Z())).
		Mul4(mgl32.Scale3D(scale.X(), scale.Y(), scale.Z()))
}

// Projection is a GL-style perspective (clip z in [-w, w]) with FovY, Near and Far.
func Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(FovY, aspect, Near, Far)
}

// ComputeMVP returns Projection * Model. Matrices are column-major and act on
// column vectors, so the shader computes mvp * vec4(position, 1.0).
// It has no shared state and may be called from any goroutine.
func ComputeMVP(position, rotation, scale mgl32.Vec3, aspect float32) mgl32.Mat4 {
	return Projection(aspect).Mul4(ModelMatrix(position, rotation, scale))
}

// Aspect returns width/height, or 1 for a degenerate size.
func Aspect(width, height uint32) float32 {
	if width == 0 || height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// PackMatrices writes mats little-endian and column-major into dst, which must
// hold len(mats)*MatrixSize bytes. It returns the written prefix.
func PackMatrices(dst []byte, mats []mgl32.Mat4) []byte {
	n := len(mats) * MatrixSize
	dst = dst[:n]
	for i, m := range mats {
		off := i * MatrixSize
		for j, v := range m {
			binary.LittleEndian.PutUint32(dst[off+j*4:], math.Float32bits(v))
		}
	}
	return dst
}
