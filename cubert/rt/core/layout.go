package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	gridSpacing = 2.5
	// gridDepth is how far in front of the camera a single cube sits.
	gridDepth = 3
)

// GridLayout spreads n instances over a centred square grid facing the camera.
// A single instance lands at (0, 0, -3); larger grids are pushed back so the
// whole grid stays inside the π/2 field of view.
func GridLayout(n int) []Transform {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	half := float32(cols-1) * gridSpacing / 2
	halfY := float32(rows-1) * gridSpacing / 2
	z := -(gridDepth + 2*max(half, halfY))

	out := make([]Transform, n)
	for i := range out {
		col, row := i%cols, i/cols
		t := NewTransform()
		t.Position = mgl32.Vec3{
			float32(col)*gridSpacing - half,
			halfY - float32(row)*gridSpacing,
			z,
		}
		out[i] = t
	}
	return out
}
