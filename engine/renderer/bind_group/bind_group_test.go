package bind_group

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/gogpu/gputypes"
)

type fixture struct {
	dev     *headless.Device
	layout  gpu.BindGroupLayout
	uniform gpu.Buffer
	view    gpu.TextureView
	sampler gpu.Sampler
}

func newFixture(t *testing.T, uniformUsage gputypes.BufferUsage) *fixture {
	t.Helper()
	dev := headless.New()
	layout, err := dev.CreateBindGroupLayout(&gputypes.BindGroupLayoutDescriptor{
		Label: "textured",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
		},
	})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout: %v", err)
	}
	uniform, err := dev.CreateBuffer(&gputypes.BufferDescriptor{Label: "camera", Size: 64, Usage: uniformUsage})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	tex, err := dev.CreateTexture(&gputypes.TextureDescriptor{
		Label:  "diffuse",
		Size:   gputypes.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	view, err := tex.CreateView()
	if err != nil {
		t.Fatalf("CreateView: %v", err)
	}
	desc := gputypes.DefaultSamplerDescriptor()
	s, err := dev.CreateSampler(&desc)
	if err != nil {
		t.Fatalf("CreateSampler: %v", err)
	}
	return &fixture{dev: dev, layout: layout, uniform: uniform, view: view, sampler: s}
}

func TestBuild(t *testing.T) {
	f := newFixture(t, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	group, err := NewBuilder().Label("textured").Buffer(f.uniform).Texture(f.view).Sampler(f.sampler).Build(f.dev, f.layout)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if group == nil {
		t.Fatal("Build returned nil group")
	}
	if n := f.dev.Stats().BindGroups; n != 1 {
		t.Errorf("bind groups = %d, want 1", n)
	}
}

func TestBuildRejectsBufferWithoutUniformUsage(t *testing.T) {
	f := newFixture(t, gputypes.BufferUsageStorage)
	_, err := NewBuilder().Buffer(f.uniform).Texture(f.view).Sampler(f.sampler).Build(f.dev, f.layout)
	if !errors.Is(err, gpu.ErrMissingUsage) {
		t.Fatalf("Build error = %v, want %v", err, gpu.ErrMissingUsage)
	}
}

func TestBuildPanicsOnWrongOrder(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *fixture) *Builder
	}{
		{
			name:  "too few resources",
			build: func(f *fixture) *Builder { return NewBuilder().Buffer(f.uniform).Texture(f.view) },
		},
		{
			name: "too many resources",
			build: func(f *fixture) *Builder {
				return NewBuilder().Buffer(f.uniform).Texture(f.view).Sampler(f.sampler).Sampler(f.sampler)
			},
		},
		{
			name:  "sampler and texture swapped",
			build: func(f *fixture) *Builder { return NewBuilder().Buffer(f.uniform).Sampler(f.sampler).Texture(f.view) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, gputypes.BufferUsageUniform)
			defer func() {
				if recover() == nil {
					t.Error("Build did not panic")
				}
				if n := f.dev.Stats().BindGroups; n != 0 {
					t.Errorf("bind groups = %d, want 0", n)
				}
			}()
			tt.build(f).Build(f.dev, f.layout)
		})
	}
}

func TestResourceKindString(t *testing.T) {
	for kind, want := range map[resourceKind]string{kindBuffer: "buffer", kindTexture: "texture", kindSampler: "sampler", 0: "unknown"} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
