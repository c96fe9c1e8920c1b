package headless

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/slot_allocator"
	"github.com/gogpu/gputypes"
)

type buffer struct {
	device   *Device
	handle   slot_allocator.Handle
	label    string
	usage    gputypes.BufferUsage
	data     []byte
	released bool
}

func (b *buffer) Size() uint64                { return uint64(len(b.data)) }
func (b *buffer) Usage() gputypes.BufferUsage { return b.usage }
func (b *buffer) Label() string               { return b.label }

func (b *buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.device.untrack(b.handle, func(s *Stats) { s.LiveBuffers-- })
}

type texture struct {
	device   *Device
	handle   slot_allocator.Handle
	desc     gputypes.TextureDescriptor
	bpp      uint32
	data     []byte
	released bool
}

func (t *texture) Width() uint32                   { return t.desc.Size.Width }
func (t *texture) Height() uint32                  { return t.desc.Size.Height }
func (t *texture) Format() gputypes.TextureFormat  { return t.desc.Format }
func (t *texture) Usage() gputypes.TextureUsage    { return t.desc.Usage }
func (t *texture) CreateView() (gpu.TextureView, error) {
	if t.released {
		return nil, fmt.Errorf("headless: view of released texture %q", t.desc.Label)
	}
	return &textureView{texture: t}, nil
}

func (t *texture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.device.untrack(t.handle, func(s *Stats) { s.LiveTextures-- })
}

type textureView struct {
	texture *texture
}

func (v *textureView) Release() {}

type sampler struct {
	desc gputypes.SamplerDescriptor
}

func (s *sampler) Release() {}

type shaderModule struct {
	label  string
	source string
}

func (m *shaderModule) Release() {}

type bindGroupLayout struct {
	label   string
	entries []gputypes.BindGroupLayoutEntry
}

func (l *bindGroupLayout) Entries() []gputypes.BindGroupLayoutEntry { return l.entries }
func (l *bindGroupLayout) Release()                                 {}

type bindGroup struct {
	layout  *bindGroupLayout
	entries []gpu.BindGroupEntry
}

func (g *bindGroup) Release() {}

type pipelineLayout struct {
	layouts []*bindGroupLayout
}

func (l *pipelineLayout) Release() {}

type renderPipeline struct {
	label         string
	layout        *pipelineLayout
	vertexBuffers int
}

func (p *renderPipeline) Release() {}

type encoder struct {
	device   *Device
	label    string
	commands []func() error
	releases gpu.ReleaseList
	inPass   bool
	finished bool
}

func (e *encoder) CopyBufferToBuffer(s gpu.Buffer, srcOffset uint64, d gpu.Buffer, dstOffset uint64, size uint64) error {
	if e.finished || e.inPass {
		return fmt.Errorf("headless: encoder %q is not recording", e.label)
	}
	src, ok := s.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	dst, ok := d.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	if src.usage&gputypes.BufferUsageCopySrc == 0 {
		return fmt.Errorf("headless: copy from %q: %w (copy src)", src.label, gpu.ErrMissingUsage)
	}
	if dst.usage&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("headless: copy to %q: %w (copy dst)", dst.label, gpu.ErrMissingUsage)
	}
	if size%gpu.CopyAlignment != 0 || srcOffset%gpu.CopyAlignment != 0 || dstOffset%gpu.CopyAlignment != 0 {
		return fmt.Errorf("headless: copy %q -> %q: size %d not %d-byte aligned", src.label, dst.label, size, gpu.CopyAlignment)
	}
	if srcOffset+size > src.Size() || dstOffset+size > dst.Size() {
		return fmt.Errorf("headless: copy %q -> %q: %w", src.label, dst.label, gpu.ErrBufferTooSmall)
	}
	e.commands = append(e.commands, func() error {
		if src.released || dst.released {
			return fmt.Errorf("copy %q -> %q: buffer released before submission", src.label, dst.label)
		}
		e.device.mu.Lock()
		copy(dst.data[dstOffset:dstOffset+size], src.data[srcOffset:srcOffset+size])
		e.device.stats.Copies++
		e.device.stats.BytesCopied += size
		e.device.mu.Unlock()
		return nil
	})
	return nil
}

func (e *encoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if e.finished || e.inPass {
		return nil, fmt.Errorf("headless: encoder %q is not recording", e.label)
	}
	if desc == nil || len(desc.ColorAttachments) == 0 {
		return nil, fmt.Errorf("headless: render pass needs at least one color attachment")
	}
	for i, ca := range desc.ColorAttachments {
		if _, ok := ca.View.(*textureView); !ok {
			return nil, fmt.Errorf("headless: color attachment %d: %w", i, gpu.ErrUnknownHandle)
		}
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		v, ok := ds.View.(*textureView)
		if !ok {
			return nil, fmt.Errorf("headless: depth attachment: %w", gpu.ErrUnknownHandle)
		}
		if !v.texture.desc.Format.IsDepthStencil() {
			return nil, fmt.Errorf("headless: depth attachment has color format %v", v.texture.desc.Format)
		}
	}
	e.inPass = true
	return &renderPass{encoder: e}, nil
}

func (e *encoder) DeferRelease(r gpu.Releaser) { e.releases.Add(r) }

func (e *encoder) Finish() (gpu.CommandBuffer, error) {
	if e.inPass {
		return nil, fmt.Errorf("headless: encoder %q finished inside a render pass", e.label)
	}
	if e.finished {
		return nil, fmt.Errorf("headless: encoder %q finished twice", e.label)
	}
	e.finished = true
	cb := &commandBuffer{label: e.label, commands: e.commands}
	for _, r := range e.releases.Take() {
		cb.releases.Add(r)
	}
	e.commands = nil
	return cb, nil
}

// Release drops recorded commands. Deferred resources are released too since they will never be submitted.
func (e *encoder) Release() {
	e.commands = nil
	if !e.finished {
		e.releases.ReleaseAll()
	}
}

type commandBuffer struct {
	label     string
	commands  []func() error
	releases  gpu.ReleaseList
	submitted bool
}

func (c *commandBuffer) Release() {}

type renderPass struct {
	encoder     *encoder
	pipeline    *renderPipeline
	bindGroups  map[uint32]*bindGroup
	vertexSlots map[uint32]*buffer
	index       *buffer
	indexFormat gputypes.IndexFormat
	err         error
}

func (p *renderPass) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *renderPass) SetPipeline(rp gpu.RenderPipeline) {
	pl, ok := rp.(*renderPipeline)
	if !ok {
		p.fail(gpu.ErrUnknownHandle)
		return
	}
	p.pipeline = pl
}

func (p *renderPass) SetBindGroup(index uint32, g gpu.BindGroup) {
	bg, ok := g.(*bindGroup)
	if !ok {
		p.fail(gpu.ErrUnknownHandle)
		return
	}
	if p.bindGroups == nil {
		p.bindGroups = make(map[uint32]*bindGroup)
	}
	p.bindGroups[index] = bg
}

func (p *renderPass) SetVertexBuffer(slot uint32, b gpu.Buffer) {
	buf, ok := b.(*buffer)
	if !ok {
		p.fail(gpu.ErrUnknownHandle)
		return
	}
	if buf.usage&gputypes.BufferUsageVertex == 0 {
		p.fail(fmt.Errorf("vertex buffer %q: %w (vertex)", buf.label, gpu.ErrMissingUsage))
		return
	}
	if p.vertexSlots == nil {
		p.vertexSlots = make(map[uint32]*buffer)
	}
	p.vertexSlots[slot] = buf
}

func (p *renderPass) SetIndexBuffer(b gpu.Buffer, format gputypes.IndexFormat) {
	buf, ok := b.(*buffer)
	if !ok {
		p.fail(gpu.ErrUnknownHandle)
		return
	}
	if buf.usage&gputypes.BufferUsageIndex == 0 {
		p.fail(fmt.Errorf("index buffer %q: %w (index)", buf.label, gpu.ErrMissingUsage))
		return
	}
	p.index = buf
	p.indexFormat = format
}

func (p *renderPass) checkDraw() bool {
	if p.pipeline == nil {
		p.fail(fmt.Errorf("draw without a pipeline"))
		return false
	}
	for i, l := range p.pipeline.layout.layouts {
		bg, ok := p.bindGroups[uint32(i)]
		if !ok {
			p.fail(fmt.Errorf("draw with pipeline %q: bind group %d not set", p.pipeline.label, i))
			return false
		}
		if bg.layout != l {
			p.fail(fmt.Errorf("draw with pipeline %q: bind group %d built for a different layout", p.pipeline.label, i))
			return false
		}
	}
	if len(p.vertexSlots) < p.pipeline.vertexBuffers {
		p.fail(fmt.Errorf("draw with pipeline %q: %d vertex buffers bound, %d required",
			p.pipeline.label, len(p.vertexSlots), p.pipeline.vertexBuffers))
		return false
	}
	return true
}

func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	if !p.checkDraw() {
		return
	}
	p.recordDraw()
}

func (p *renderPass) DrawIndexed(indexCount, instanceCount uint32) {
	if !p.checkDraw() {
		return
	}
	if p.index == nil {
		p.fail(fmt.Errorf("indexed draw without an index buffer"))
		return
	}
	width := uint64(2)
	if p.indexFormat == gputypes.IndexFormatUint32 {
		width = 4
	}
	if uint64(indexCount)*width > p.index.Size() {
		p.fail(fmt.Errorf("indexed draw of %d indices overruns %q", indexCount, p.index.label))
		return
	}
	p.recordDraw()
}

func (p *renderPass) recordDraw() {
	d := p.encoder.device
	p.encoder.commands = append(p.encoder.commands, func() error {
		d.count(func(s *Stats) { s.Draws++ })
		return nil
	})
}

func (p *renderPass) End() error {
	p.encoder.inPass = false
	if p.err != nil {
		return fmt.Errorf("headless: render pass: %w", p.err)
	}
	return nil
}

type resourceKind int

const (
	kindNone resourceKind = iota
	kindBuffer
	kindTexture
	kindSampler
)

func kindOf(e gputypes.BindGroupLayoutEntry) resourceKind {
	switch {
	case e.Buffer != nil:
		return kindBuffer
	case e.Texture != nil, e.StorageTexture != nil:
		return kindTexture
	case e.Sampler != nil:
		return kindSampler
	}
	return kindNone
}
