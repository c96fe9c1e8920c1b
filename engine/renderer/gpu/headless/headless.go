// Package headless provides an in-memory gpu.Device. Buffers and textures are host byte slices,
// command encoders record closures that run in order on Submit, and draws are counted rather
// than rasterized. It backs the test suite and the headless renderer mode.
package headless

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/slot_allocator"
	"github.com/gogpu/gputypes"
)

// Stats counts the work a Device has performed.
type Stats struct {
	Buffers         int
	LiveBuffers     int
	Textures        int
	LiveTextures    int
	Samplers        int
	ShaderModules   int
	BindGroups      int
	RenderPipelines int
	Submits         int
	Copies          int
	Draws           int
	BytesWritten    uint64
	BytesCopied     uint64
}

// Device is an in-memory gpu.Device.
type Device struct {
	mu    sync.Mutex
	stats Stats
	queue *queue

	// live holds a description of every unreleased buffer and texture.
	live *slot_allocator.Allocator[string]
}

var _ gpu.Device = (*Device)(nil)

// New creates an empty headless device.
func New() *Device {
	d := &Device{live: slot_allocator.New[string]()}
	d.queue = &queue{device: d}
	return d
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Texels returns a copy of the texel bytes of a texture created by this device.
func (d *Device) Texels(t gpu.Texture) ([]byte, error) {
	tex, ok := t.(*texture)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out, nil
}

func (d *Device) count(f func(s *Stats)) {
	d.mu.Lock()
	f(&d.stats)
	d.mu.Unlock()
}

// Live lists the unreleased buffers and textures, oldest slot first.
func (d *Device) Live() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, d.live.Len())
	d.live.Each(func(_ slot_allocator.Handle, v *string) {
		out = append(out, *v)
	})
	return out
}

// track registers a live resource and updates the counters under the same lock.
func (d *Device) track(desc string, f func(s *Stats)) slot_allocator.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(&d.stats)
	return d.live.Insert(desc)
}

func (d *Device) untrack(h slot_allocator.Handle, f func(s *Stats)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(&d.stats)
	d.live.Remove(h)
}

func (d *Device) Release() {}

func (d *Device) Queue() gpu.Queue { return d.queue }

func (d *Device) CreateBuffer(desc *gputypes.BufferDescriptor) (gpu.Buffer, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("headless: buffer %q has zero size", labelOf(desc))
	}
	if desc.Usage == 0 {
		return nil, fmt.Errorf("headless: buffer %q has no usage", desc.Label)
	}
	h := d.track(fmt.Sprintf("buffer %q", desc.Label), func(s *Stats) {
		s.Buffers++
		s.LiveBuffers++
	})
	return &buffer{
		device: d,
		handle: h,
		label:  desc.Label,
		usage:  desc.Usage,
		data:   make([]byte, desc.Size),
	}, nil
}

func (d *Device) CreateTexture(desc *gputypes.TextureDescriptor) (gpu.Texture, error) {
	if desc == nil || desc.Size.Width == 0 || desc.Size.Height == 0 {
		return nil, fmt.Errorf("headless: texture has zero extent")
	}
	bpp, ok := bytesPerTexel(desc.Format)
	if !ok {
		return nil, fmt.Errorf("headless: texture %q: unsupported format %v", desc.Label, desc.Format)
	}
	layers := max(desc.Size.DepthOrArrayLayers, 1)
	h := d.track(fmt.Sprintf("texture %q", desc.Label), func(s *Stats) {
		s.Textures++
		s.LiveTextures++
	})
	return &texture{
		device: d,
		handle: h,
		desc:   *desc,
		bpp:    bpp,
		data:   make([]byte, uint64(desc.Size.Width)*uint64(desc.Size.Height)*uint64(layers)*uint64(bpp)),
	}, nil
}

func (d *Device) CreateSampler(desc *gputypes.SamplerDescriptor) (gpu.Sampler, error) {
	if desc == nil {
		return nil, fmt.Errorf("headless: nil sampler descriptor")
	}
	d.count(func(s *Stats) { s.Samplers++ })
	return &sampler{desc: *desc}, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	if desc == nil || desc.WGSL == "" {
		return nil, fmt.Errorf("headless: shader module has no source")
	}
	d.count(func(s *Stats) { s.ShaderModules++ })
	return &shaderModule{label: desc.Label, source: desc.WGSL}, nil
}

func (d *Device) CreateBindGroupLayout(desc *gputypes.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	if desc == nil {
		return nil, fmt.Errorf("headless: nil bind group layout descriptor")
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("headless: bind group layout %q: duplicate binding %d", desc.Label, e.Binding)
		}
		seen[e.Binding] = true
		if kindOf(e) == kindNone {
			return nil, fmt.Errorf("headless: bind group layout %q: binding %d has no resource type", desc.Label, e.Binding)
		}
	}
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	copy(entries, desc.Entries)
	return &bindGroupLayout{label: desc.Label, entries: entries}, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	if desc == nil {
		return nil, fmt.Errorf("headless: nil bind group descriptor")
	}
	layout, ok := desc.Layout.(*bindGroupLayout)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	if len(desc.Entries) != len(layout.entries) {
		return nil, fmt.Errorf("headless: bind group %q has %d entries, layout %q declares %d",
			desc.Label, len(desc.Entries), layout.label, len(layout.entries))
	}
	for i, e := range desc.Entries {
		le := layout.entries[i]
		if e.Binding != le.Binding {
			return nil, fmt.Errorf("headless: bind group %q entry %d binds slot %d, layout expects %d",
				desc.Label, i, e.Binding, le.Binding)
		}
		switch kindOf(le) {
		case kindBuffer:
			buf, ok := e.Buffer.(*buffer)
			if !ok {
				return nil, fmt.Errorf("headless: bind group %q slot %d expects a buffer", desc.Label, e.Binding)
			}
			if le.Buffer.Type == gputypes.BufferBindingTypeUniform && buf.usage&gputypes.BufferUsageUniform == 0 {
				return nil, fmt.Errorf("headless: bind group %q slot %d: %w (uniform)", desc.Label, e.Binding, gpu.ErrMissingUsage)
			}
		case kindTexture:
			if _, ok := e.TextureView.(*textureView); !ok {
				return nil, fmt.Errorf("headless: bind group %q slot %d expects a texture view", desc.Label, e.Binding)
			}
		case kindSampler:
			if _, ok := e.Sampler.(*sampler); !ok {
				return nil, fmt.Errorf("headless: bind group %q slot %d expects a sampler", desc.Label, e.Binding)
			}
		}
	}
	d.count(func(s *Stats) { s.BindGroups++ })
	entries := make([]gpu.BindGroupEntry, len(desc.Entries))
	copy(entries, desc.Entries)
	return &bindGroup{layout: layout, entries: entries}, nil
}

func (d *Device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.PipelineLayout, error) {
	if desc == nil {
		return nil, fmt.Errorf("headless: nil pipeline layout descriptor")
	}
	layouts := make([]*bindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		bgl, ok := l.(*bindGroupLayout)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		layouts[i] = bgl
	}
	return &pipelineLayout{layouts: layouts}, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	if desc == nil {
		return nil, fmt.Errorf("headless: nil render pipeline descriptor")
	}
	layout, ok := desc.Layout.(*pipelineLayout)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	if _, ok := desc.Vertex.Module.(*shaderModule); !ok {
		return nil, fmt.Errorf("headless: render pipeline %q has no vertex module", desc.Label)
	}
	if desc.Vertex.EntryPoint == "" {
		return nil, fmt.Errorf("headless: render pipeline %q has no vertex entry point", desc.Label)
	}
	if desc.Fragment != nil {
		if _, ok := desc.Fragment.Module.(*shaderModule); !ok {
			return nil, fmt.Errorf("headless: render pipeline %q has no fragment module", desc.Label)
		}
		if len(desc.Fragment.Targets) == 0 {
			return nil, fmt.Errorf("headless: render pipeline %q has no color targets", desc.Label)
		}
	}
	d.count(func(s *Stats) { s.RenderPipelines++ })
	return &renderPipeline{label: desc.Label, layout: layout, vertexBuffers: len(desc.Vertex.Buffers)}, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	return &encoder{device: d, label: label}, nil
}

// queue executes writes immediately and command buffers on Submit, which matches the WebGPU
// ordering guarantee that queue writes land before later submissions.
type queue struct {
	device *Device
}

func (q *queue) WriteBuffer(b gpu.Buffer, offset uint64, data []byte) error {
	buf, ok := b.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	if buf.usage&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("headless: write to %q: %w (copy dst)", buf.label, gpu.ErrMissingUsage)
	}
	if offset%gpu.CopyAlignment != 0 || uint64(len(data))%gpu.CopyAlignment != 0 {
		return fmt.Errorf("headless: write to %q: offset %d size %d not %d-byte aligned",
			buf.label, offset, len(data), gpu.CopyAlignment)
	}
	if offset+uint64(len(data)) > uint64(len(buf.data)) {
		return fmt.Errorf("headless: write to %q: %w", buf.label, gpu.ErrBufferTooSmall)
	}
	q.device.mu.Lock()
	copy(buf.data[offset:], data)
	q.device.stats.BytesWritten += uint64(len(data))
	q.device.mu.Unlock()
	return nil
}

func (q *queue) WriteTexture(t gpu.Texture, data []byte, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error {
	tex, ok := t.(*texture)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	if tex.desc.Usage&gputypes.TextureUsageCopyDst == 0 {
		return fmt.Errorf("headless: write to texture %q: %w (copy dst)", tex.desc.Label, gpu.ErrMissingUsage)
	}
	if size.Width > tex.desc.Size.Width || size.Height > tex.desc.Size.Height {
		return fmt.Errorf("headless: write to texture %q: extent %dx%d exceeds %dx%d", tex.desc.Label,
			size.Width, size.Height, tex.desc.Size.Width, tex.desc.Size.Height)
	}
	rowBytes := uint64(size.Width) * uint64(tex.bpp)
	stride := uint64(layout.BytesPerRow)
	if stride == 0 {
		stride = rowBytes
	}
	if stride < rowBytes {
		return fmt.Errorf("headless: write to texture %q: bytes per row %d below row size %d", tex.desc.Label, stride, rowBytes)
	}
	need := layout.Offset + stride*uint64(size.Height-1) + rowBytes
	if size.Height > 0 && uint64(len(data)) < need {
		return fmt.Errorf("headless: write to texture %q: %d bytes supplied, %d needed", tex.desc.Label, len(data), need)
	}
	dstStride := uint64(tex.desc.Size.Width) * uint64(tex.bpp)
	q.device.mu.Lock()
	defer q.device.mu.Unlock()
	for row := range uint64(size.Height) {
		src := data[layout.Offset+row*stride : layout.Offset+row*stride+rowBytes]
		copy(tex.data[row*dstStride:], src)
	}
	q.device.stats.BytesWritten += rowBytes * uint64(size.Height)
	return nil
}

func (q *queue) Submit(cbs ...gpu.CommandBuffer) error {
	for _, c := range cbs {
		cb, ok := c.(*commandBuffer)
		if !ok {
			return gpu.ErrUnknownHandle
		}
		if cb.submitted {
			return fmt.Errorf("headless: command buffer %q submitted twice", cb.label)
		}
		cb.submitted = true
		for _, cmd := range cb.commands {
			if err := cmd(); err != nil {
				return fmt.Errorf("headless: execute %q: %w", cb.label, err)
			}
		}
		cb.releases.ReleaseAll()
	}
	q.device.count(func(s *Stats) { s.Submits++ })
	return nil
}

func (q *queue) ReadBuffer(ctx context.Context, b gpu.Buffer, offset, size uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, ok := b.(*buffer)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	if buf.usage&(gputypes.BufferUsageCopySrc|gputypes.BufferUsageMapRead) == 0 {
		return nil, fmt.Errorf("headless: read %q: %w (copy src)", buf.label, gpu.ErrMissingUsage)
	}
	if offset+size > uint64(len(buf.data)) {
		return nil, fmt.Errorf("headless: read %q: %w", buf.label, gpu.ErrBufferTooSmall)
	}
	q.device.mu.Lock()
	defer q.device.mu.Unlock()
	out := make([]byte, size)
	copy(out, buf.data[offset:offset+size])
	return out, nil
}

func labelOf(desc *gputypes.BufferDescriptor) string {
	if desc == nil {
		return ""
	}
	return desc.Label
}

func bytesPerTexel(f gputypes.TextureFormat) (uint32, bool) {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1, true
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4, true
	case gputypes.TextureFormatDepth16Unorm:
		return 2, true
	case gputypes.TextureFormatRGBA16Float:
		return 8, true
	case gputypes.TextureFormatRGBA32Float:
		return 16, true
	}
	return 0, false
}
