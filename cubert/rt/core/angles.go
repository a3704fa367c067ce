package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultInstanceCount = 100
	DefaultTargetFPS     = 165
)

// AngularSpeed is the per-axis rotation rate in radians per frame at 50 fps.
var AngularSpeed = mgl32.Vec3{0.008, 0.016, 0.012}

// WrapAngle maps a into [-π, π). Non-finite inputs map to 0.
func WrapAngle(a float32) float32 {
	if math32.IsNaN(a) || math32.IsInf(a, 0) {
		return 0
	}
	if a >= -math32.Pi && a < math32.Pi {
		return a
	}
	const twoPi = 2 * math32.Pi
	w := a - twoPi*math32.Floor((a+math32.Pi)/twoPi)
	// Rounding can land exactly on +π for inputs just below an odd multiple of π.
	if w >= math32.Pi {
		w -= twoPi
	}
	if w < -math32.Pi {
		w = -math32.Pi
	}
	return w
}

func WrapAngles(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{WrapAngle(v[0]), WrapAngle(v[1]), WrapAngle(v[2])}
}

// FrameStep is the per-frame increment normalized to targetFPS.
func FrameStep(targetFPS float32) mgl32.Vec3 {
	if targetFPS <= 0 {
		targetFPS = DefaultTargetFPS
	}
	return AngularSpeed.Mul(50 / targetFPS)
}

// Advance steps angles by one frame and wraps the result.
func Advance(angles mgl32.Vec3, targetFPS float32) mgl32.Vec3 {
	return WrapAngles(angles.Add(FrameStep(targetFPS)))
}
