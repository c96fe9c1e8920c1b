//go:build gogpu

package gogpu

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

// Device is a gpu.Device backed by a gogpu/wgpu device.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *queue
}

var _ gpu.Device = (*Device)(nil)

// New creates an instance, picks an adapter and opens a device on it.
//
// Parameters:
//   - forceFallbackAdapter: true to request the software adapter
//   - logger: receives the stack's diagnostics; nil keeps the library default
//
// Returns:
//   - *Device: the opened device
//   - error: an error if no adapter or device is available
func New(forceFallbackAdapter bool, logger *slog.Logger) (*Device, error) {
	if logger != nil {
		wgpu.SetLogger(logger)
	} else {
		logger = slog.Default()
	}
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("gogpu: create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("gogpu: request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "Main Device",
		RequiredLimits: wgpu.DefaultLimits(),
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gogpu: request device: %w", err)
	}
	info := adapter.Info()
	logger.Info("gogpu: device ready", "adapter", info.Name, "backend", info.Backend)

	d := &Device{instance: instance, adapter: adapter, device: device}
	d.queue = &queue{device: d, queue: device.Queue()}
	return d, nil
}

func (d *Device) Queue() gpu.Queue { return d.queue }

func (d *Device) Release() {
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

func (d *Device) CreateBuffer(desc *gputypes.BufferDescriptor) (gpu.Buffer, error) {
	b, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: desc.MappedAtCreation,
	})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create buffer %q: %w", desc.Label, err)
	}
	return &buffer{buf: b}, nil
}

func (d *Device) CreateTexture(desc *gputypes.TextureDescriptor) (gpu.Texture, error) {
	t, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: max(desc.Size.DepthOrArrayLayers, 1),
		},
		MipLevelCount: max(desc.MipLevelCount, 1),
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create texture %q: %w", desc.Label, err)
	}
	return &texture{device: d, tex: t, desc: *desc}, nil
}

func (d *Device) CreateSampler(desc *gputypes.SamplerDescriptor) (gpu.Sampler, error) {
	s, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressModeU,
		AddressModeV: desc.AddressModeV,
		AddressModeW: desc.AddressModeW,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: gputypes.FilterMode(desc.MipmapFilter),
		LodMinClamp:  desc.LodMinClamp,
		LodMaxClamp:  desc.LodMaxClamp,
		Compare:      desc.Compare,
		Anisotropy:   max(desc.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create sampler %q: %w", desc.Label, err)
	}
	return &sampler{sampler: s}, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{Label: desc.Label, WGSL: desc.WGSL})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create shader module %q: %w", desc.Label, err)
	}
	return &shaderModule{module: m}, nil
}

func (d *Device) CreateBindGroupLayout(desc *gputypes.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	copy(entries, desc.Entries)
	l, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create bind group layout %q: %w", desc.Label, err)
	}
	return &bindGroupLayout{layout: l, entries: entries}, nil
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
		return nil, fmt.Errorf("gogpu: create bind group %q: %w", desc.Label, err)
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
		return nil, fmt.Errorf("gogpu: create pipeline layout %q: %w", desc.Label, err)
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
	rp := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:    desc.Primitive,
		DepthStencil: depthStencilState(desc.DepthStencil),
		Multisample:  desc.Multisample,
	}
	if rp.Multisample.Count == 0 {
		rp.Multisample.Count = 1
	}
	if rp.Multisample.Mask == 0 {
		rp.Multisample.Mask = gputypes.DefaultMultisampleState().Mask
	}
	if desc.Fragment != nil {
		fs, ok := desc.Fragment.Module.(*shaderModule)
		if !ok {
			return nil, gpu.ErrUnknownHandle
		}
		rp.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}
	p, err := d.device.CreateRenderPipeline(rp)
	if err != nil {
		return nil, fmt.Errorf("gogpu: create render pipeline %q: %w", desc.Label, err)
	}
	return &renderPipeline{pipeline: p}, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("gogpu: create command encoder %q: %w", label, err)
	}
	return &encoder{enc: enc}, nil
}

// stencilOperation shifts past gputypes' Undefined; an unset operation keeps.
func stencilOperation(op gputypes.StencilOperation) wgpu.StencilOperation {
	if op == gputypes.StencilOperationUndefined {
		return wgpu.StencilOperationKeep
	}
	return wgpu.StencilOperation(op - 1)
}

func stencilFace(s gputypes.StencilFaceState) wgpu.StencilFaceState {
	compare := s.Compare
	if compare == gputypes.CompareFunctionUndefined {
		compare = gputypes.CompareFunctionAlways
	}
	return wgpu.StencilFaceState{
		Compare:     compare,
		FailOp:      stencilOperation(s.FailOp),
		DepthFailOp: stencilOperation(s.DepthFailOp),
		PassOp:      stencilOperation(s.PassOp),
	}
}

func depthStencilState(ds *gputypes.DepthStencilState) *wgpu.DepthStencilState {
	if ds == nil {
		return nil
	}
	return &wgpu.DepthStencilState{
		Format:              ds.Format,
		DepthWriteEnabled:   ds.DepthWriteEnabled,
		DepthCompare:        ds.DepthCompare,
		StencilFront:        stencilFace(ds.StencilFront),
		StencilBack:         stencilFace(ds.StencilBack),
		StencilReadMask:     ds.StencilReadMask,
		StencilWriteMask:    ds.StencilWriteMask,
		DepthBias:           ds.DepthBias,
		DepthBiasSlopeScale: ds.DepthBiasSlopeScale,
		DepthBiasClamp:      ds.DepthBiasClamp,
	}
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
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("gogpu: write to %q: %w", buf.Label(), gpu.ErrBufferTooSmall)
	}
	return q.queue.WriteBuffer(buf.buf, offset, data)
}

func (q *queue) WriteTexture(t gpu.Texture, data []byte, layout gputypes.TextureDataLayout, size gputypes.Extent3D) error {
	tex, ok := t.(*texture)
	if !ok {
		return gpu.ErrUnknownHandle
	}
	return q.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&wgpu.ImageDataLayout{Offset: layout.Offset, BytesPerRow: layout.BytesPerRow, RowsPerImage: layout.RowsPerImage},
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
	if _, err := q.queue.Submit(native...); err != nil {
		return fmt.Errorf("gogpu: submit: %w", err)
	}
	for _, c := range cbs {
		c.(*commandBuffer).releaseDeferred()
	}
	return nil
}

// ReadBuffer copies the range into a MapRead staging buffer and maps it; Map drives device polling itself.
func (q *queue) ReadBuffer(ctx context.Context, b gpu.Buffer, offset, size uint64) ([]byte, error) {
	buf, ok := b.(*buffer)
	if !ok {
		return nil, gpu.ErrUnknownHandle
	}
	if buf.Usage()&gputypes.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("gogpu: read %q: %w (copy src)", buf.Label(), gpu.ErrMissingUsage)
	}
	if offset+size > buf.Size() {
		return nil, fmt.Errorf("gogpu: read %q: %w", buf.Label(), gpu.ErrBufferTooSmall)
	}
	aligned := gpu.AlignCopySize(size)
	staging, err := q.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: buf.Label() + " readback",
		Size:  aligned,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gogpu: read %q: %w", buf.Label(), err)
	}
	defer staging.Release()

	enc, err := q.device.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: buf.Label() + " readback"})
	if err != nil {
		return nil, err
	}
	enc.CopyBufferToBuffer(buf.buf, offset, staging, 0, aligned)
	cb, err := enc.Finish()
	if err != nil {
		return nil, err
	}
	if _, err := q.queue.Submit(cb); err != nil {
		return nil, err
	}

	if err := staging.Map(ctx, wgpu.MapModeRead, 0, aligned); err != nil {
		return nil, fmt.Errorf("gogpu: map %q: %w", buf.Label(), err)
	}
	defer staging.Unmap()
	rng, err := staging.MappedRange(0, aligned)
	if err != nil {
		return nil, err
	}
	defer rng.Release()
	out := make([]byte, size)
	copy(out, rng.Bytes())
	return out, nil
}
