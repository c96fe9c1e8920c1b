package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/geometry"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// Pipeline is a render pipeline together with the bind group layouts it was created with.
// It is immutable once built.
type Pipeline struct {
	key              string
	handle           gpu.RenderPipeline
	layout           gpu.PipelineLayout
	bindGroupLayouts []gpu.BindGroupLayout
	modules          []gpu.ShaderModule
	vertexShader     shader.Shader
	fragmentShader   shader.Shader
	depthFormat      gputypes.TextureFormat
	sampleCount      uint32
}

// Build validates the builder's shaders against its declared bind groups and V's vertex layout,
// then creates the device objects. Every check runs before anything is allocated on device.
//
// Parameters:
//   - b: the configured builder
//   - device: the device to create the pipeline on
//   - outputFormat: the format of the color target the pipeline renders into
//
// Returns:
//   - *Pipeline: the created pipeline
//   - error: shader.ErrValidation, shader.ErrBindingMismatch or shader.ErrVertexLayoutMismatch when
//     the shaders disagree with the declarations, or a device error
func Build[V geometry.Vertex](b *Builder, device gpu.Device, outputFormat gputypes.TextureFormat) (*Pipeline, error) {
	if b.vertexSource == "" {
		return nil, fmt.Errorf("pipeline %q: no vertex source", b.key)
	}
	vs, err := shader.NewShader(b.key+".vert", shader.ShaderTypeVertex, b.vertexSource)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", b.key, err)
	}
	var fs shader.Shader
	if b.fragmentSource != "" {
		if fs, err = shader.NewShader(b.key+".frag", shader.ShaderTypeFragment, b.fragmentSource); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", b.key, err)
		}
	}

	groups := b.Groups()
	for _, s := range []shader.Shader{vs, fs} {
		if s == nil {
			continue
		}
		if err := shader.CheckBindings(s, groups); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", b.key, err)
		}
	}
	vertexLayout := geometry.LayoutOf[V]()
	if err := shader.CheckVertexLayout(vs, []gputypes.VertexBufferLayout{vertexLayout}); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", b.key, err)
	}

	p := &Pipeline{
		key:            b.key,
		vertexShader:   vs,
		fragmentShader: fs,
		depthFormat:    b.depthFormat,
		sampleCount:    b.sampleCount,
	}
	if err := p.create(b, device, vertexLayout, outputFormat); err != nil {
		p.Release()
		return nil, fmt.Errorf("pipeline %q: %w", b.key, err)
	}
	return p, nil
}

func (p *Pipeline) create(b *Builder, device gpu.Device, vertexLayout gputypes.VertexBufferLayout, outputFormat gputypes.TextureFormat) error {
	for i, entries := range b.Groups() {
		l, err := device.CreateBindGroupLayout(&gputypes.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", b.key, i),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", i, err)
		}
		p.bindGroupLayouts = append(p.bindGroupLayouts, l)
	}

	layout, err := device.CreatePipelineLayout(&gpu.PipelineLayoutDescriptor{
		Label:            b.key,
		BindGroupLayouts: p.bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}
	p.layout = layout

	vm, err := device.CreateShaderModule(p.vertexShader.Module())
	if err != nil {
		return fmt.Errorf("vertex module: %w", err)
	}
	p.modules = append(p.modules, vm)

	desc := &gpu.RenderPipelineDescriptor{
		Label:  b.key,
		Layout: layout,
		Vertex: gpu.VertexState{
			Module:     vm,
			EntryPoint: entryPoint(b.vertexEntry, p.vertexShader),
			Buffers:    []gputypes.VertexBufferLayout{vertexLayout},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  b.topology,
			FrontFace: b.frontFace,
			CullMode:  b.cullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: b.sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil(b),
	}

	if p.fragmentShader != nil {
		fm, err := device.CreateShaderModule(p.fragmentShader.Module())
		if err != nil {
			return fmt.Errorf("fragment module: %w", err)
		}
		p.modules = append(p.modules, fm)

		target := gputypes.ColorTargetState{Format: outputFormat, WriteMask: b.writeMask}
		if b.blendEnabled {
			blend := b.blendState
			target.Blend = &blend
		}
		desc.Fragment = &gpu.FragmentState{
			Module:     fm,
			EntryPoint: entryPoint(b.fragmentEntry, p.fragmentShader),
			Targets:    []gputypes.ColorTargetState{target},
		}
	}

	handle, err := device.CreateRenderPipeline(desc)
	if err != nil {
		return fmt.Errorf("render pipeline: %w", err)
	}
	p.handle = handle
	return nil
}

func entryPoint(override string, s shader.Shader) string {
	if override != "" {
		return override
	}
	return s.EntryPoint()
}

// depthStencil returns nil when the builder has no depth format. With depth testing disabled the
// comparison always passes so the attachment can still be written.
func depthStencil(b *Builder) *gputypes.DepthStencilState {
	if b.depthFormat == gputypes.TextureFormatUndefined {
		return nil
	}
	state := gputypes.DefaultDepthStencilState(b.depthFormat)
	state.DepthWriteEnabled = b.depthWriteEnabled
	if !b.depthTestEnabled {
		state.DepthCompare = gputypes.CompareFunctionAlways
	}
	state.DepthBias = b.depthBias
	state.DepthBiasSlopeScale = b.depthBiasSlopeScale
	return &state
}

// Key returns the unique key the pipeline was built with.
func (p *Pipeline) Key() string { return p.key }

// Handle returns the device render pipeline.
func (p *Pipeline) Handle() gpu.RenderPipeline { return p.handle }

// BindGroupLayouts returns the created bind group layouts, indexed by group.
func (p *Pipeline) BindGroupLayouts() []gpu.BindGroupLayout { return p.bindGroupLayouts }

// BindGroupLayout returns the layout of group i.
func (p *Pipeline) BindGroupLayout(i int) gpu.BindGroupLayout { return p.bindGroupLayouts[i] }

// Shader returns the shader of the given stage, or nil if the pipeline has none.
func (p *Pipeline) Shader(t shader.ShaderType) shader.Shader {
	switch t {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	}
	return nil
}

// DepthFormat returns the depth attachment format the pipeline expects, or
// gputypes.TextureFormatUndefined when it has no depth state.
func (p *Pipeline) DepthFormat() gputypes.TextureFormat { return p.depthFormat }

// SampleCount returns the multisample count of the pipeline's targets.
func (p *Pipeline) SampleCount() uint32 { return p.sampleCount }

// Release frees every device object the pipeline created.
func (p *Pipeline) Release() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
	for _, m := range p.modules {
		m.Release()
	}
	p.modules = nil
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, l := range p.bindGroupLayouts {
		l.Release()
	}
	p.bindGroupLayouts = nil
}
