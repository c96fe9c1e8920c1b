//go:build gogpu

package gogpu

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

type buffer struct {
	buf      *wgpu.Buffer
	released sync.Once
}

func (b *buffer) Size() uint64                { return b.buf.Size() }
func (b *buffer) Usage() gputypes.BufferUsage { return b.buf.Usage() }
func (b *buffer) Label() string               { return b.buf.Label() }
func (b *buffer) Release()                    { b.released.Do(b.buf.Release) }

type texture struct {
	device   *Device
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
	v, err := t.device.device.CreateTextureView(t.tex, nil)
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

// releaseDeferred drops the resources the encoder was asked to keep alive, then the buffer itself.
func (c *commandBuffer) releaseDeferred() {
	for _, r := range c.releases {
		r.Release()
	}
	c.releases = nil
	c.Release()
}

type encoder struct {
	enc      *wgpu.CommandEncoder
	releases gpu.ReleaseList
	finished bool
}

// Release discards an encoder that was never finished along with the resources deferred on it.
// After Finish the command buffer owns both.
func (e *encoder) Release() {
	if e.finished {
		return
	}
	e.finished = true
	e.enc.DiscardEncoding()
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
	if srcOffset+size > s.Size() || dstOffset+size > d.Size() {
		return gpu.ErrBufferTooSmall
	}
	e.enc.CopyBufferToBuffer(s.buf, srcOffset, d.buf, dstOffset, size)
	return nil
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for _, ca := range desc.ColorAttachments {
		view, ok := ca.View.(*textureView)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		att := wgpu.RenderPassColorAttachment{
			View:       view.view,
			LoadOp:     ca.LoadOp,
			StoreOp:    ca.StoreOp,
			ClearValue: ca.ClearValue,
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
			DepthLoadOp:     ds.DepthLoadOp,
			DepthStoreOp:    ds.DepthStoreOp,
			DepthClearValue: ds.DepthClearValue,
		}
	}
	pass, err := e.enc.BeginRenderPass(rp)
	if err != nil {
		return nil, err
	}
	return &renderPass{pass: pass}, nil
}

func (e *encoder) Finish() (gpu.CommandBuffer, error) {
	cb, err := e.enc.Finish()
	e.finished = true
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
	p.pass.SetVertexBuffer(slot, buf.(*buffer).buf, 0)
}

func (p *renderPass) SetIndexBuffer(buf gpu.Buffer, format gputypes.IndexFormat) {
	p.pass.SetIndexBuffer(buf.(*buffer).buf, format, 0)
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
	return p.pass.End()
}
