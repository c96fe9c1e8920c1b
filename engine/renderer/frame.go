package renderer

import (
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/render_pass"
	"github.com/gogpu/gputypes"
)

// Frame is one frame being recorded. Everything recorded into Encoder is submitted by
// Renderer.EndFrame.
type Frame struct {
	Device  gpu.Device
	Encoder gpu.CommandEncoder
	Width   uint32
	Height  uint32
	Index   uint64

	target  gpu.TextureView
	resolve gpu.TextureView
	depth   gpu.TextureView
}

// Target returns the view draws go to. With MSAA on this is the multisampled texture.
func (f *Frame) Target() gpu.TextureView { return f.target }

// Depth returns the depth view, or nil when the renderer has no depth attachment.
func (f *Frame) Depth() gpu.TextureView { return f.depth }

// Pass returns a render pass builder that clears the frame to clear, resolves the multisampled
// target when MSAA is on and clears the depth attachment.
//
// Parameters:
//   - clear: the clear color
//
// Returns:
//   - *render_pass.Builder: the builder, ready to Begin on f.Encoder
func (f *Frame) Pass(clear gputypes.Color) *render_pass.Builder {
	b := render_pass.Output(f.target, clear).ResolveTo(f.resolve)
	if f.depth != nil {
		b.WithDepth(f.depth)
	}
	return b
}
