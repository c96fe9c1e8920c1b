//go:build webgpu

package webgpu

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

type buffer struct {
	buf      *wgpu.Buffer
	label    string
	size     uint64
	usage    gputypes.BufferUsage
	released sync.Once
}

func (b *buffer) Size() uint64                { return b.size }
func (b *buffer) Usage() gputypes.BufferUsage { return b.usage }
func (b *buffer) Label() string               { return b.label }
func (b *buffer) Release()                    { b.released.Do(b.buf.Release) }

type texture struct {
	tex      *wgpu.Texture
	desc     gputypes.TextureDescriptor
	released sync.Once
}

func (t *texture) Width() uint32                  { return t.desc.Size.Width }
func (t *texture) Height() uint32                 { return t.desc.Size.Height }
func (t *texture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *texture) Usage() gputypes.TextureUsage   { return t.desc.Usage }
func (t *texture) Release()                       { t.released.Do(t.tex.Release) }

func (t *texture) CreateView() (gpu.TextureView, error) {
	v, err := t.tex.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &textureView{view: v}, nil
}

type textureView struct {
	view     *wgpu.TextureView
	released sync.Once
}

func (v *textureView) Release() { v.released.Do(v.view.Release) }

type sampler struct {
	sampler  *wgpu.Sampler
	released sync.Once
}

func (s *sampler) Release() { s.released.Do(s.sampler.Release) }

type shaderModule struct {
	module   *wgpu.ShaderModule
	released sync.Once
}

func (m *shaderModule) Release() { m.released.Do(m.module.Release) }

type bindGroupLayout struct {
	layout   *wgpu.BindGroupLayout
	entries  []gputypes.BindGroupLayoutEntry
	released sync.Once
}

func (l *bindGroupLayout) Entries() []gputypes.BindGroupLayoutEntry { return l.entries }
func (l *bindGroupLayout) Release()                                 { l.released.Do(l.layout.Release) }

type bindGroup struct {
	group    *wgpu.BindGroup
	released sync.Once
}

func (g *bindGroup) Release() { g.released.Do(g.group.Release) }

type pipelineLayout struct {
	layout   *wgpu.PipelineLayout
	released sync.Once
}

func (l *pipelineLayout) Release() { l.released.Do(l.layout.Release) }

type renderPipeline struct {
	pipeline *wgpu.RenderPipeline
	released sync.Once
}

func (p *renderPipeline) Release() { p.released.Do(p.pipeline.Release) }

type commandBuffer struct {
	cb       *wgpu.CommandBuffer
	releases []gpu.Releaser
	released sync.Once
}

func (c *commandBuffer) Release() { c.released.Do(c.cb.Release) }

type encoder struct {
	enc      *wgpu.CommandEncoder
	releases gpu.ReleaseList
}

// Release drops the native encoder. Resources still deferred on it belonged to work that will
// never be submitted, so they go with it.
func (e *encoder) Release() {
	e.enc.Release()
	e.releases.ReleaseAll()
}

func (e *encoder) DeferRelease(r gpu.Releaser) { e.releases.Add(r) }

func (e *encoder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	s, ok := src.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	d, ok := dst.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	if srcOffset+size > s.size || dstOffset+size > d.size {
		return gpu.ErrBufferTooSmall
	}
	return e.enc.CopyBufferToBuffer(s.buf, srcOffset, d.buf, dstOffset, size)
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, ca := range desc.ColorAttachments {
		view, ok := ca.View.(*textureView)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		att := wgpu.RenderPassColorAttachment{
			View:    view.view,
			LoadOp:  loadOp(ca.LoadOp),
			StoreOp: storeOp(ca.StoreOp),
			ClearValue: wgpu.Color{
				R: ca.ClearValue.R, G: ca.ClearValue.G, B: ca.ClearValue.B, A: ca.ClearValue.A,
			},
		}
		if ca.ResolveTarget != nil {
			resolve, ok := ca.ResolveTarget.(*textureView)
			if !ok {
				return nil, gpu.ErrUnknownHandle
			}
			att.ResolveTarget = resolve.view
		}
		rp.ColorAttachments = append(rp.ColorAttachments, att)
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		view, ok := ds.View.(*textureView)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view.view,
			DepthLoadOp:     loadOp(ds.DepthLoadOp),
			DepthStoreOp:    storeOp(ds.DepthStoreOp),
			DepthClearValue: ds.DepthClearValue,
		}
	}
	return &renderPass{pass: e.enc.BeginRenderPass(rp)}, nil
}

func (e *encoder) Finish() (gpu.CommandBuffer, error) {
	cb, err := e.enc.Finish(nil)
	if err != nil {
		e.releases.ReleaseAll()
		return nil, err
	}
	return &commandBuffer{cb: cb, releases: e.releases.Take()}, nil
}

type renderPass struct {
	pass  *wgpu.RenderPassEncoder
	ended bool
}

func (p *renderPass) SetPipeline(rp gpu.RenderPipeline) {
	p.pass.SetPipeline(rp.(*renderPipeline).pipeline)
}

func (p *renderPass) SetBindGroup(index uint32, g gpu.BindGroup) {
	p.pass.SetBindGroup(index, g.(*bindGroup).group, nil)
}

func (p *renderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*buffer).buf, 0, wgpu.WholeSize)
}

func (p *renderPass) SetIndexBuffer(buf gpu.Buffer, format gputypes.IndexFormat) {
	p.pass.SetIndexBuffer(buf.(*buffer).buf, indexFormat(format), 0, wgpu.WholeSize)
}

func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *renderPass) End() error {
	if p.ended {
		return nil
	}
	p.ended = true
	err := p.pass.End()
	p.pass.Release()
	return err
}
