package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

const texturedVertex = `
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

const texturedFragment = `
@group(0) @binding(1) var diffuse: texture_2d<f32>;
// @group(0) @binding(3) var unused: texture_2d<f32>;
@group(0) @binding(2) var diffuse_sampler: sampler;

@fragment
fn fs_main(@location(0) tex_coord: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(diffuse, diffuse_sampler, tex_coord);
}
`

func texturedLayout() [][]gputypes.BindGroupLayoutEntry {
	return [][]gputypes.BindGroupLayoutEntry{{
		{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}},
		{Binding: 2, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
	}}
}

func mustShader(t *testing.T, key string, st ShaderType, src string) Shader {
	t.Helper()
	s, err := NewShader(key, st, src)
	if err != nil {
		t.Fatalf("NewShader(%s): %v", key, err)
	}
	return s
}

func TestNewShaderReflectsVertexShader(t *testing.T) {
	s := mustShader(t, "textured.vert", ShaderTypeVertex, texturedVertex)

	if s.EntryPoint() != "vs_main" {
		t.Errorf("EntryPoint = %q, want vs_main", s.EntryPoint())
	}
	want := []Binding{{
		Group: 0,
		Name:  "camera",
		Entry: gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: 64},
		},
	}}
	if diff := cmp.Diff(want, s.Bindings()); diff != "" {
		t.Errorf("Bindings mismatch (-want +got):\n%s", diff)
	}
	wantInputs := []VertexInput{
		{Location: 0, Name: "position", TypeName: "vec4<f32>"},
		{Location: 1, Name: "tex_coord", TypeName: "vec2<f32>"},
	}
	if diff := cmp.Diff(wantInputs, s.VertexInputs()); diff != "" {
		t.Errorf("VertexInputs mismatch (-want +got):\n%s", diff)
	}
	if got := s.Module(); got.Label != "textured.vert" || got.WGSL != texturedVertex {
		t.Errorf("Module = %+v", got)
	}
}

func TestNewShaderReflectsFragmentShader(t *testing.T) {
	s := mustShader(t, "textured.frag", ShaderTypeFragment, texturedFragment)

	if s.EntryPoint() != "fs_main" {
		t.Errorf("EntryPoint = %q, want fs_main", s.EntryPoint())
	}
	if s.VertexInputs() != nil {
		t.Errorf("fragment shader reported vertex inputs %v", s.VertexInputs())
	}
	if got := s.BindGroupVarName(0, 2); got != "diffuse_sampler" {
		t.Errorf("BindGroupVarName(0, 2) = %q", got)
	}
	if got := s.BindGroupVarName(0, 3); got != "" {
		t.Errorf("commented-out binding was reflected as %q", got)
	}
	descs := s.BindGroupLayoutDescriptors()
	if len(descs) != 1 || len(descs[0].Entries) != 2 {
		t.Fatalf("BindGroupLayoutDescriptors = %+v", descs)
	}
	if descs[0].Entries[0].Binding != 1 || descs[0].Entries[0].Texture == nil {
		t.Errorf("first entry = %+v, want texture at binding 1", descs[0].Entries[0])
	}
}

func TestNewShaderRejectsInvalidSource(t *testing.T) {
	_, err := NewShader("broken", ShaderTypeVertex, "@vertex fn vs_main( -> {")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestNewShaderRequiresEntryPointForStage(t *testing.T) {
	_, err := NewShader("no-compute", ShaderTypeCompute, texturedVertex)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCheckBindings(t *testing.T) {
	vert := mustShader(t, "textured.vert", ShaderTypeVertex, texturedVertex)
	frag := mustShader(t, "textured.frag", ShaderTypeFragment, texturedFragment)

	for _, s := range []Shader{vert, frag} {
		if err := CheckBindings(s, texturedLayout()); err != nil {
			t.Errorf("CheckBindings(%s): %v", s.Key(), err)
		}
	}

	tests := []struct {
		name   string
		shader Shader
		edit   func([][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry
	}{
		{"no groups", vert, func([][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry { return nil }},
		{"visibility excludes stage", vert, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0][0].Visibility = gputypes.ShaderStageFragment
			return g
		}},
		{"buffer declared as storage", vert, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0][0].Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
			return g
		}},
		{"buffer too small", vert, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0][0].Buffer.MinBindingSize = 16
			return g
		}},
		{"texture declared as sampler", frag, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0][1].Texture = nil
			g[0][1].Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
			return g
		}},
		{"binding missing", frag, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0] = g[0][:2]
			return g
		}},
		{"comparison sampler", frag, func(g [][]gputypes.BindGroupLayoutEntry) [][]gputypes.BindGroupLayoutEntry {
			g[0][2].Sampler.Type = gputypes.SamplerBindingTypeComparison
			return g
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBindings(tt.shader, tt.edit(texturedLayout()))
			if !errors.Is(err, ErrBindingMismatch) {
				t.Errorf("err = %v, want ErrBindingMismatch", err)
			}
		})
	}
}

func TestBindingAttributeOrder(t *testing.T) {
	const src = `
struct Params {
    scale: vec4<f32>,
};

@binding(0) @group(0) var<uniform> params: Params;
@binding(1)
@group(1)
var<storage, read> counts: array<u32>;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return params.scale * f32(counts[0]);
}
`
	s := mustShader(t, "reordered", ShaderTypeFragment, src)

	want := []Binding{
		{Group: 0, Name: "params", Entry: gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: 16},
		}},
		{Group: 1, Name: "counts", Entry: gputypes.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage, MinBindingSize: 4},
		}},
	}
	if diff := cmp.Diff(want, s.Bindings()); diff != "" {
		t.Errorf("Bindings() mismatch (-want +got):\n%s", diff)
	}
	if err := CheckBindings(s, nil); !errors.Is(err, ErrBindingMismatch) {
		t.Errorf("CheckBindings(nil groups) = %v, want ErrBindingMismatch", err)
	}
}

func TestCheckVertexLayout(t *testing.T) {
	vert := mustShader(t, "textured.vert", ShaderTypeVertex, texturedVertex)
	layout := func() []gputypes.VertexBufferLayout {
		return []gputypes.VertexBufferLayout{{
			ArrayStride: 24,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 16, ShaderLocation: 1},
			},
		}}
	}

	if err := CheckVertexLayout(vert, layout()); err != nil {
		t.Fatalf("CheckVertexLayout: %v", err)
	}

	missing := layout()
	missing[0].Attributes = missing[0].Attributes[:1]
	if err := CheckVertexLayout(vert, missing); !errors.Is(err, ErrVertexLayoutMismatch) {
		t.Errorf("missing location: err = %v", err)
	}

	wrongKind := layout()
	wrongKind[0].Attributes[1].Format = gputypes.VertexFormatUint32x2
	if err := CheckVertexLayout(vert, wrongKind); !errors.Is(err, ErrVertexLayoutMismatch) {
		t.Errorf("wrong kind: err = %v", err)
	}

	wrongCount := layout()
	wrongCount[0].Attributes[0].Format = gputypes.VertexFormatFloat32x3
	if err := CheckVertexLayout(vert, wrongCount); !errors.Is(err, ErrVertexLayoutMismatch) {
		t.Errorf("wrong count: err = %v", err)
	}

	normalized := layout()
	normalized[0].Attributes[0].Format = gputypes.VertexFormatUnorm8x4
	if err := CheckVertexLayout(vert, normalized); err != nil {
		t.Errorf("unorm8x4 for vec4<f32>: %v", err)
	}
}

func TestVertexInputsFromParameters(t *testing.T) {
	src := `
@vertex
fn main(@location(0) pos: vec3<f32>, @builtin(vertex_index) idx: u32, @location(2) id: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}
`
	got := reflectVertexInputs(src, "main")
	want := []VertexInput{
		{Location: 0, Name: "pos", TypeName: "vec3<f32>"},
		{Location: 2, Name: "id", TypeName: "u32"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reflectVertexInputs mismatch (-want +got):\n%s", diff)
	}
}

func TestStructLayouts(t *testing.T) {
	src := `
struct Light {
    position: vec3<f32>,
    intensity: f32,
    color: vec4<f32>,
};
struct Lights {
    items: array<Light, 4>,
    count: u32,
};
`
	got := structLayouts(parseStructs(stripComments(src)))
	want := map[string]typeLayout{
		"Light":  {size: 32, align: 16},
		"Lights": {size: 144, align: 16},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(typeLayout{})); diff != "" {
		t.Errorf("structLayouts mismatch (-want +got):\n%s", diff)
	}
}

func TestStripComments(t *testing.T) {
	src := "a /* b /* nested */ c */ d // tail\ne"
	if got := stripComments(src); got != "a  d \ne" {
		t.Errorf("stripComments = %q", got)
	}
}
