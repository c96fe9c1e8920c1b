package render_pass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/pipeline"
	"github.com/gogpu/gputypes"
)

// Builder describes the attachments of one render pass.
type Builder struct {
	label  string
	colors []gpu.ColorAttachment
	depth  *gpu.DepthAttachment
}

// Output starts a pass that clears view to clear before drawing.
//
// Parameters:
//   - view: the color target
//   - clear: the clear color
//
// Returns:
//   - *Builder: the pass builder
func Output(view gpu.TextureView, clear gputypes.Color) *Builder {
	return (&Builder{}).Output(view, clear)
}

// OutputLoad starts a pass that draws over the existing contents of view.
func OutputLoad(view gpu.TextureView) *Builder {
	return &Builder{colors: []gpu.ColorAttachment{{
		View:    view,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}}}
}

// Output adds another cleared color target.
func (b *Builder) Output(view gpu.TextureView, clear gputypes.Color) *Builder {
	b.colors = append(b.colors, gpu.ColorAttachment{
		View:       view,
		LoadOp:     gputypes.LoadOpClear,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: clear,
	})
	return b
}

// ResolveTo resolves the most recently added color target into view at the end of the pass. The
// multisampled contents are discarded once resolved.
//
// Parameters:
//   - view: the single-sample target receiving the resolved image
//
// Returns:
//   - *Builder: the builder for chaining
func (b *Builder) ResolveTo(view gpu.TextureView) *Builder {
	if len(b.colors) == 0 || view == nil {
		return b
	}
	last := &b.colors[len(b.colors)-1]
	last.ResolveTarget = view
	last.StoreOp = gputypes.StoreOpDiscard
	return b
}

// WithDepth attaches view as the depth target, cleared to 1.0 at the start of the pass.
//
// Parameters:
//   - view: the depth target
//
// Returns:
//   - *Builder: the builder for chaining
func (b *Builder) WithDepth(view gpu.TextureView) *Builder {
	b.depth = &gpu.DepthAttachment{
		View:            view,
		DepthLoadOp:     gputypes.LoadOpClear,
		DepthStoreOp:    gputypes.StoreOpStore,
		DepthClearValue: 1,
	}
	return b
}

// Label sets the debug label of the pass.
func (b *Builder) Label(label string) *Builder {
	b.label = label
	return b
}

// Begin records the start of the pass into encoder. The caller must End the returned pass before
// finishing the encoder.
//
// Parameters:
//   - encoder: the command encoder to record into
//
// Returns:
//   - gpu.RenderPass: the open pass
//   - error: an error if the pass has no color target or the encoder rejects it
func (b *Builder) Begin(encoder gpu.CommandEncoder) (gpu.RenderPass, error) {
	if len(b.colors) == 0 {
		return nil, fmt.Errorf("render_pass: %q has no color target", b.label)
	}
	pass, err := encoder.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label:                  b.label,
		ColorAttachments:       b.colors,
		DepthStencilAttachment: b.depth,
	})
	if err != nil {
		return nil, fmt.Errorf("render_pass: %q: %w", b.label, err)
	}
	return pass, nil
}

// UseShading sets p as the pass pipeline and binds groups starting at group 0.
//
// Parameters:
//   - pass: the open render pass
//   - p: the pipeline to draw with
//   - groups: the bind groups, one per layout of p
func UseShading(pass gpu.RenderPass, p *pipeline.Pipeline, groups ...gpu.BindGroup) {
	pass.SetPipeline(p.Handle())
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g)
	}
}
