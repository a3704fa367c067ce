package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

var ClearColor = wgpu.Color{R: 0, G: 0, B: 0, A: 1}

const DepthClearValue = 1.0

// RenderFrame records one pass that clears color and depth and draws every
// instance with a single call, then submits and presents. Submission is
// fire-and-forget; queue ordering guarantees earlier buffer writes land first.
//
// A failed surface acquire is reported as ErrSurfaceLost: the frame is dropped
// and the caller is expected to rebuild the session. While the drawable is
// empty (no depth texture yet) nothing is drawn and no error is returned.
func RenderFrame(dev Device, res *ResourceSet, instanceCount int) error {
	if instanceCount < 0 || instanceCount > res.Capacity() {
		return fmt.Errorf("%w: draw %d instances, capacity %d", ErrCapacityExceeded, instanceCount, res.Capacity())
	}
	if res.DepthTexture == nil {
		return nil
	}

	frame, err := dev.AcquireFrame()
	if err != nil {
		if IsRecoverable(err) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	}
	defer frame.Release()

	encoder, err := dev.CreateCommandEncoder("Cube Frame")
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&RenderPassDescriptor{
		Target:     frame,
		ClearColor: ClearColor,
		Depth:      res.DepthTexture,
		DepthClear: DepthClearValue,
	})
	pass.SetPipeline(res.Pipeline)
	pass.SetVertexBuffer(0, res.VertexBuffer)
	pass.SetBindGroup(0, res.BindGroup)
	if instanceCount > 0 {
		pass.Draw(res.VertexCount, uint32(instanceCount), 0, 0)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()

	dev.Submit(cmd)
	dev.Present()
	return nil
}
