//go:build webgpu

package webgpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// pollInterval is how often ReadBuffer polls the device while a map is pending.
const pollInterval = time.Millisecond

// Device is a gpu.Device backed by a wgpu-native device.
type Device struct {
	device *wgpu.Device
	queue  *queue
}

var _ gpu.Device = (*Device)(nil)

// Wrap adapts an existing wgpu-native device. The returned Device takes ownership of d.
//
// Parameters:
//   - d: the wgpu-native device
//
// Returns:
//   - *Device: the wrapped device
func Wrap(d *wgpu.Device) *Device {
	dev := &Device{device: d}
	dev.queue = &queue{device: dev, queue: d.GetQueue()}
	return dev
}

// Native returns the underlying wgpu-native device.
func (d *Device) Native() *wgpu.Device { return d.device }

func (d *Device) Queue() gpu.Queue { return d.queue }

func (d *Device) Release() {
	d.queue.queue.Release()
	d.device.Release()
}

func (d *Device) CreateBuffer(desc *gputypes.BufferDescriptor) (gpu.Buffer, error) {
	b, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Usage:            wgpu.BufferUsage(desc.Usage),
		Size:             desc.Size,
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create buffer %q: %w", desc.Label, err)
	}
	return &buffer{buf: b, label: desc.Label, size: desc.Size, usage: desc.Usage}, nil
}

func (d *Device) CreateTexture(desc *gputypes.TextureDescriptor) (gpu.Texture, error) {
	format, err := textureFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	t, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     wgpu.TextureUsage(desc.Usage),
		Dimension: textureDimension(desc.Dimension),
		Size: wgpu.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: max(desc.Size.DepthOrArrayLayers, 1),
		},
		Format:        format,
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create texture %q: %w", desc.Label, err)
	}
	return &texture{tex: t, desc: *desc}, nil
}

func (d *Device) CreateSampler(desc *gputypes.SamplerDescriptor) (gpu.Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  addressMode(desc.AddressModeU),
		AddressModeV:  addressMode(desc.AddressModeV),
		AddressModeW:  addressMode(desc.AddressModeW),
		MagFilter:     filterMode(desc.MagFilter),
		MinFilter:     filterMode(desc.MinFilter),
		MipmapFilter:  mipmapFilterMode(desc.MipmapFilter),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   desc.LodMaxClamp,
		Compare:       compareFunction(desc.Compare),
		MaxAnisotropy: max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create sampler %q: %w", desc.Label, err)
	}
	return &sampler{sampler: s}, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.WGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create shader module %q: %w", desc.Label, err)
	}
	return &shaderModule{module: m}, nil
}

func (d *Device) CreateBindGroupLayout(desc *gputypes.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		out, err := bindGroupLayoutEntry(e)
		if err != nil {
			return nil, fmt.Errorf("webgpu: bind group layout %q: %w", desc.Label, err)
		}
		entries[i] = out
	}
	l, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create bind group layout %q: %w", desc.Label, err)
	}
	kept := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	copy(kept, desc.Entries)
	return &bindGroupLayout{layout: l, entries: kept}, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	layout, ok := desc.Layout.(*bindGroupLayout)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		out := wgpu.BindGroupEntry{Binding: e.Binding, Offset: e.Offset, Size: e.Size}
		switch {
		case e.Buffer != nil:
			b, ok := e.Buffer.(*buffer)
			if !ok {
				return nil, gpu.ErrUnknownHandle
			}
			out.Buffer = b.buf
			if out.Size == 0 {
				out.Size = b.size - e.Offset
			}
		case e.TextureView != nil:
			v, ok := e.TextureView.(*textureView)
			if !ok {
				return nil, gpu.ErrUnknownHandle
			}
			out.TextureView = v.view
		case e.Sampler != nil:
			s, ok := e.Sampler.(*sampler)
			if !ok {
				return nil, gpu.ErrUnknownHandle
			}
			out.Sampler = s.sampler
		}
		entries[i] = out
	}
	g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create bind group %q: %w", desc.Label, err)
	}
	return &bindGroup{group: g}, nil
}

func (d *Device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		bgl, ok := l.(*bindGroupLayout)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		layouts[i] = bgl.layout
	}
	l, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create pipeline layout %q: %w", desc.Label, err)
	}
	return &pipelineLayout{layout: l}, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	layout, ok := desc.Layout.(*pipelineLayout)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	vs, ok := desc.Vertex.Module.(*shaderModule)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	depth, err := depthStencilState(desc.DepthStencil)
	if err != nil {
		return nil, err
	}
	rp := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    vertexBufferLayouts(desc.Vertex.Buffers),
		},
		Primitive:    primitiveState(desc.Primitive),
		DepthStencil: depth,
		Multisample:  multisampleState(desc.Multisample),
	}
	if desc.Fragment != nil {
		fs, ok := desc.Fragment.Module.(*shaderModule)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		targets, err := colorTargets(desc.Fragment.Targets)
		if err != nil {
			return nil, err
		}
		rp.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    targets,
		}
	}
	p, err := d.device.CreateRenderPipeline(rp)
	if err != nil {
		return nil, fmt.Errorf("webgpu: create render pipeline %q: %w", desc.Label, err)
	}
	return &renderPipeline{pipeline: p}, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("webgpu: create command encoder %q: %w", label, err)
	}
	return &encoder{enc: enc}, nil
}

type queue struct {
	device *Device
	queue  *wgpu.Queue
}

func (q *queue) WriteBuffer(b gpu.Buffer, offset uint64, data []byte) error {
	buf, ok := b.(*buffer)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("webgpu: write to %q: %w", buf.label, gpu.ErrBufferTooSmall)
	}
	return q.queue.WriteBuffer(buf.buf, offset, data)
}

func (q *queue) WriteTexture(t gpu.Texture, data []byte, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error {
	tex, ok := t.(*texture)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	return q.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex.tex, Aspect: wgpu.TextureAspectAll},
		data,
		&wgpu.TextureDataLayout{
			Offset:       layout.Offset,
			BytesPerRow:  layout.BytesPerRow,
			RowsPerImage: layout.RowsPerImage,
		},
		&wgpu.Extent3D{Width: size.Width, Height: size.Height, DepthOrArrayLayers: max(size.DepthOrArrayLayers, 1)},
	)
}

func (q *queue) Submit(cbs ...gpu.CommandBuffer) error {
	native := make([]*wgpu.CommandBuffer, len(cbs))
	for i, c := range cbs {
		cb, ok := c.(*commandBuffer)
		if !ok {
			return gpu.ErrUnknownHandle
		}
		native[i] = cb.cb
	}
	q.queue.Submit(native...)
	for _, c := range cbs {
		cb := c.(*commandBuffer)
		for _, r := range cb.releases {
			r.Release()
		}
		cb.releases = nil
		cb.Release()
	}
	return nil
}

// ReadBuffer copies the range into a MapRead staging buffer and polls the device until the map resolves.
func (q *queue) ReadBuffer(ctx context.Context, b gpu.Buffer, offset, size uint64) ([]byte, error) {
	buf, ok := b.(*buffer)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	if buf.usage&gputypes.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("webgpu: read %q: %w (copy src)", buf.label, gpu.ErrMissingUsage)
	}
	if offset+size > buf.size {
		return nil, fmt.Errorf("webgpu: read %q: %w", buf.label, gpu.ErrBufferTooSmall)
	}
	aligned := gpu.AlignCopySize(size)
	staging, err := q.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.label + " readback",
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  aligned,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: read %q: %w", buf.label, err)
	}
	defer staging.Release()

	enc, err := q.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Release()
	if err := enc.CopyBufferToBuffer(buf.buf, offset, staging, 0, aligned); err != nil {
		return nil, err
	}
	cb, err := enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	q.queue.Submit(cb)
	cb.Release()

	status := make(chan wgpu.BufferMapAsyncStatus, 1)
	if err := staging.MapAsync(wgpu.MapModeRead, 0, aligned, func(s wgpu.BufferMapAsyncStatus) {
		status <- s
	}); err != nil {
		return nil, err
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		q.device.device.Poll(false, nil)
		select {
		case s := <-status:
			if s != wgpu.BufferMapAsyncStatusSuccess {
				return nil, fmt.Errorf("webgpu: map %q: status %d", buf.label, s)
			}
			out := make([]byte, size)
			copy(out, staging.GetMappedRange(0, uint(aligned)))
			if err := staging.Unmap(); err != nil {
				return nil, err
			}
			return out, nil
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), fmt.Errorf("webgpu: map %q did not resolve", buf.label))
		case <-ticker.C:
		}
	}
}
