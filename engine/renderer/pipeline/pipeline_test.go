package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/geometry"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/shader"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

const vertexSource = `
struct Camera {
    view_proj: mat4x4<f32>,
};

@group(0) @binding(0) var<uniform> camera: Camera;

struct VertexInput {
    @location(0) position: vec4<f32>,
    @location(1) tex_coord: vec2<f32>,
};

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) tex_coord: vec2<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = camera.view_proj * in.position;
    out.tex_coord = in.tex_coord;
    return out;
}
`

const fragmentSource = `
@group(0) @binding(1) var diffuse: texture_2d<f32>;
@group(0) @binding(2) var diffuse_sampler: sampler;

@fragment
fn fs_main(@location(0) tex_coord: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(diffuse, diffuse_sampler, tex_coord);
}
`

// positionOnly has a single vec3 attribute, which StandardVertex does not provide.
type positionOnly struct {
	Position [3]float32
}

func (positionOnly) VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: 12,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		},
	}
}

func texturedGroup() *BindGroupLayoutBuilder {
	return NewBindGroupLayoutBuilder().
		UniformBuffer(0, gputypes.ShaderStageVertex).
		SampledTexture(1, gputypes.ShaderStageFragment).
		Sampler(2, gputypes.ShaderStageFragment)
}

func texturedBuilder(opts ...PipelineBuilderOption) *Builder {
	return NewPipelineBuilder("textured",
		WithVertexSource(vertexSource),
		WithFragmentSource(fragmentSource),
		WithBindGroupLayout(texturedGroup()),
	).With(opts...)
}

func TestBuildTexturedPipeline(t *testing.T) {
	dev := headless.New()
	p, err := Build[geometry.StandardVertex](texturedBuilder(), dev, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Release()

	if p.Key() != "textured" {
		t.Errorf("Key = %q", p.Key())
	}
	if n := len(p.BindGroupLayouts()); n != 1 {
		t.Fatalf("bind group layouts = %d, want 1", n)
	}
	if diff := cmp.Diff(texturedGroup().Entries(), p.BindGroupLayout(0).Entries()); diff != "" {
		t.Errorf("layout entries mismatch (-want +got):\n%s", diff)
	}
	if p.Shader(shader.ShaderTypeVertex).EntryPoint() != "vs_main" {
		t.Errorf("vertex entry = %q", p.Shader(shader.ShaderTypeVertex).EntryPoint())
	}
	if p.Shader(shader.ShaderTypeFragment).EntryPoint() != "fs_main" {
		t.Errorf("fragment entry = %q", p.Shader(shader.ShaderTypeFragment).EntryPoint())
	}
	if p.DepthFormat() != gputypes.TextureFormatDepth32Float || p.SampleCount() != 1 {
		t.Errorf("depth format %v, sample count %d", p.DepthFormat(), p.SampleCount())
	}

	stats := dev.Stats()
	if stats.RenderPipelines != 1 || stats.ShaderModules != 2 {
		t.Errorf("stats = %+v, want 1 pipeline and 2 modules", stats)
	}
}

func TestBuildRejectsMismatchBeforeAllocating(t *testing.T) {
	tests := []struct {
		name  string
		build func(dev *headless.Device) error
		want  error
	}{
		{
			name: "uniform hidden from vertex stage",
			build: func(dev *headless.Device) error {
				b := NewPipelineBuilder("textured",
					WithVertexSource(vertexSource),
					WithFragmentSource(fragmentSource),
					WithBindGroupLayout(NewBindGroupLayoutBuilder().
						UniformBuffer(0, gputypes.ShaderStageFragment).
						SampledTexture(1, gputypes.ShaderStageFragment).
						Sampler(2, gputypes.ShaderStageFragment)),
				)
				_, err := Build[geometry.StandardVertex](b, dev, gputypes.TextureFormatBGRA8Unorm)
				return err
			},
			want: shader.ErrBindingMismatch,
		},
		{
			name: "texture declared as sampler",
			build: func(dev *headless.Device) error {
				b := NewPipelineBuilder("textured",
					WithVertexSource(vertexSource),
					WithFragmentSource(fragmentSource),
					WithBindGroupLayout(NewBindGroupLayoutBuilder().
						UniformBuffer(0, gputypes.ShaderStageVertex).
						Sampler(1, gputypes.ShaderStageFragment).
						Sampler(2, gputypes.ShaderStageFragment)),
				)
				_, err := Build[geometry.StandardVertex](b, dev, gputypes.TextureFormatBGRA8Unorm)
				return err
			},
			want: shader.ErrBindingMismatch,
		},
		{
			name: "missing group",
			build: func(dev *headless.Device) error {
				b := NewPipelineBuilder("textured", WithVertexSource(vertexSource), WithFragmentSource(fragmentSource))
				_, err := Build[geometry.StandardVertex](b, dev, gputypes.TextureFormatBGRA8Unorm)
				return err
			},
			want: shader.ErrBindingMismatch,
		},
		{
			name: "vertex type lacks tex coord",
			build: func(dev *headless.Device) error {
				_, err := Build[positionOnly](texturedBuilder(), dev, gputypes.TextureFormatBGRA8Unorm)
				return err
			},
			want: shader.ErrVertexLayoutMismatch,
		},
		{
			name: "invalid wgsl",
			build: func(dev *headless.Device) error {
				b := texturedBuilder(WithFragmentSource("@fragment fn fs_main( -> {"))
				_, err := Build[geometry.StandardVertex](b, dev, gputypes.TextureFormatBGRA8Unorm)
				return err
			},
			want: shader.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := headless.New()
			err := tt.build(dev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
			if diff := cmp.Diff(headless.Stats{}, dev.Stats()); diff != "" {
				t.Errorf("device touched on mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRequiresVertexSource(t *testing.T) {
	_, err := Build[geometry.StandardVertex](NewPipelineBuilder("empty"), headless.New(), gputypes.TextureFormatBGRA8Unorm)
	if err == nil {
		t.Fatal("Build without a vertex source returned nil error")
	}
}

func TestUnusedLayoutSlotIsAllowed(t *testing.T) {
	b := NewPipelineBuilder("textured",
		WithVertexSource(vertexSource),
		WithFragmentSource(fragmentSource),
		WithBindGroupLayout(texturedGroup().StorageBuffer(5, gputypes.ShaderStageFragment, true)),
	)
	p, err := Build[geometry.StandardVertex](b, headless.New(), gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p.Release()
}

func TestDuplicateSlotPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("declaring slot 0 twice did not panic")
		}
	}()
	NewBindGroupLayoutBuilder().UniformBuffer(0, gputypes.ShaderStageVertex).Sampler(0, gputypes.ShaderStageFragment)
}

func TestEntriesSortedBySlot(t *testing.T) {
	entries := NewBindGroupLayoutBuilder().
		Sampler(2, gputypes.ShaderStageFragment).
		UniformBuffer(0, gputypes.ShaderStageVertex).
		SampledTexture(1, gputypes.ShaderStageFragment).
		Entries()
	var got []uint32
	for _, e := range entries {
		got = append(got, e.Binding)
	}
	if diff := cmp.Diff([]uint32{0, 1, 2}, got); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestDepthStencil(t *testing.T) {
	if ds := depthStencil(NewPipelineBuilder("p", WithDepthFormat(gputypes.TextureFormatUndefined))); ds != nil {
		t.Errorf("depthStencil without a format = %+v, want nil", ds)
	}

	ds := depthStencil(NewPipelineBuilder("p", WithDepthTestEnabled(false), WithDepthWriteEnabled(false), WithDepthBias(2, 1.5)))
	if ds == nil {
		t.Fatal("depthStencil = nil")
	}
	if ds.DepthCompare != gputypes.CompareFunctionAlways || ds.DepthWriteEnabled {
		t.Errorf("compare %v, write %v", ds.DepthCompare, ds.DepthWriteEnabled)
	}
	if ds.DepthBias != 2 || ds.DepthBiasSlopeScale != 1.5 {
		t.Errorf("bias %d, slope %v", ds.DepthBias, ds.DepthBiasSlopeScale)
	}
	if ds.Format != gputypes.TextureFormatDepth32Float {
		t.Errorf("format = %v", ds.Format)
	}
}

func TestDepthOnlyPipeline(t *testing.T) {
	b := NewPipelineBuilder("shadow",
		WithVertexSource(vertexSource),
		WithBindGroupLayout(NewBindGroupLayoutBuilder().UniformBuffer(0, gputypes.ShaderStageVertex)),
	)
	dev := headless.New()
	p, err := Build[geometry.StandardVertex](b, dev, gputypes.TextureFormatUndefined)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Release()
	if p.Shader(shader.ShaderTypeFragment) != nil {
		t.Error("depth-only pipeline has a fragment shader")
	}
	if n := dev.Stats().ShaderModules; n != 1 {
		t.Errorf("shader modules = %d, want 1", n)
	}
}
