package renderer

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/geometry"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-mirror/engine/texture"
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

func newHeadless(t *testing.T, options ...RendererBuilderOption) Renderer {
	t.Helper()
	r, err := NewRenderer(BackendTypeHeadless, nil, append([]RendererBuilderOption{WithSize(64, 32)}, options...)...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func texturedBuilder(key string) *pipeline.Builder {
	return pipeline.NewPipelineBuilder(key,
		pipeline.WithVertexSource(vertexSource),
		pipeline.WithFragmentSource(fragmentSource),
		pipeline.WithBindGroupLayout(pipeline.NewBindGroupLayoutBuilder().
			UniformBuffer(0, gputypes.ShaderStageVertex).
			SampledTexture(1, gputypes.ShaderStageFragment).
			Sampler(2, gputypes.ShaderStageFragment)),
	)
}

func TestNewHeadlessRenderer(t *testing.T) {
	r := newHeadless(t, WithMSAA(MSAAOff))

	if w, h := r.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}
	if r.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v", r.Format())
	}
	if r.SampleCount() != 1 {
		t.Errorf("SampleCount() = %d, want 1", r.SampleCount())
	}
	if r.DepthFormat() != gputypes.TextureFormatDepth32Float {
		t.Errorf("DepthFormat() = %v", r.DepthFormat())
	}
	if r.BackendType() != BackendTypeHeadless {
		t.Errorf("BackendType() = %v", r.BackendType())
	}
}

func TestWebGPUNeedsWindow(t *testing.T) {
	if _, err := NewRenderer(BackendTypeWGPU, nil); err == nil {
		t.Error("NewRenderer(webgpu, nil window) returned nil error")
	}
}

func TestNativeBackendsNeedBuildTag(t *testing.T) {
	for _, bt := range []RendererBackendType{BackendTypeWGPU, BackendTypeGoGPU} {
		if _, ok := backends[bt]; ok {
			continue
		}
		_, err := NewRenderer(bt, nil)
		if err == nil || !strings.Contains(err.Error(), "-tags "+bt.String()) {
			t.Errorf("NewRenderer(%v) error = %v, want a hint to build with -tags %v", bt, err, bt)
		}
	}
	if _, err := NewRenderer(RendererBackendType(42), nil); err == nil {
		t.Error("NewRenderer with an unknown backend returned nil error")
	}
}

func TestUnsupportedMSAA(t *testing.T) {
	if _, err := NewRenderer(BackendTypeHeadless, nil, WithMSAA(3)); err == nil {
		t.Error("NewRenderer with 3 samples returned nil error")
	}
}

func TestFrameLifecycle(t *testing.T) {
	r := newHeadless(t)
	dev := r.Device().(*headless.Device)

	f, err := r.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := r.BeginFrame(); !errors.Is(err, ErrFrameInFlight) {
		t.Errorf("second BeginFrame error = %v, want ErrFrameInFlight", err)
	}
	if f.resolve == nil {
		t.Error("MSAA frame has no resolve target")
	}
	if f.Depth() == nil {
		t.Error("frame has no depth view")
	}

	pass, err := f.Pass(gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}).Begin(f.Encoder)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := r.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if err := r.EndFrame(f); err == nil {
		t.Error("EndFrame on an ended frame returned nil error")
	}
	if r.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", r.Frames())
	}
	if n := dev.Stats().Submits; n != 1 {
		t.Errorf("submits = %d, want 1", n)
	}

	f, err = r.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after EndFrame: %v", err)
	}
	if f.Index != 1 {
		t.Errorf("Index = %d, want 1", f.Index)
	}
	if err := r.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

func TestFailedFrameReleasesDeferredResources(t *testing.T) {
	r := newHeadless(t, WithMSAA(MSAAOff))
	dev := r.Device().(*headless.Device)

	uniform, err := device_buffer.New(dev, "uniform", make([]float32, 16), gputypes.BufferUsageUniform)
	if err != nil {
		t.Fatalf("device_buffer.New: %v", err)
	}
	defer uniform.Release()
	before := dev.Stats().LiveBuffers

	f, err := r.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := uniform.Update(f.Encoder, make([]float32, 16)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// An open render pass makes Finish fail.
	if _, err := f.Pass(gputypes.Color{A: 1}).Begin(f.Encoder); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := r.EndFrame(f); err == nil {
		t.Fatal("EndFrame with an open render pass returned nil error")
	}
	if live := dev.Stats().LiveBuffers; live != before {
		t.Errorf("live buffers after failed frame = %d, want %d", live, before)
	}
	if n := dev.Stats().Submits; n != 0 {
		t.Errorf("submits = %d, want 0", n)
	}
}

func TestDrawCubeThroughFrame(t *testing.T) {
	r := newHeadless(t)
	dev := r.Device().(*headless.Device)

	p, err := BuildPipeline[geometry.StandardVertex](r, texturedBuilder("textured"))
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if p.SampleCount() != r.SampleCount() {
		t.Errorf("pipeline samples = %d, renderer = %d", p.SampleCount(), r.SampleCount())
	}
	again, err := BuildPipeline[geometry.StandardVertex](r, texturedBuilder("textured"))
	if err != nil {
		t.Fatalf("BuildPipeline (cached): %v", err)
	}
	if again != p {
		t.Error("second BuildPipeline did not return the cached pipeline")
	}
	if n := dev.Stats().RenderPipelines; n != 1 {
		t.Errorf("render pipelines = %d, want 1", n)
	}

	camera, err := dev.CreateBuffer(&gputypes.BufferDescriptor{
		Label: "camera",
		Size:  64,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("camera buffer: %v", err)
	}
	defer camera.Release()
	img := texture.NewMirror("checker", texture.NewTexels(8))
	diffuse, err := img.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("texture: %v", err)
	}
	defer img.Release()
	sampler, err := texture.NewSampler(dev, "diffuse")
	if err != nil {
		t.Fatalf("sampler: %v", err)
	}
	group, err := bind_group.NewBuilder().Buffer(camera).Texture(diffuse.View()).Sampler(sampler).Build(dev, p.BindGroupLayout(0))
	if err != nil {
		t.Fatalf("bind group: %v", err)
	}
	cube := geometry.NewCube("cube")
	if err := cube.Upload(dev); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	defer cube.Release()

	for range 3 {
		f, err := r.BeginFrame()
		if err != nil {
			t.Fatalf("BeginFrame: %v", err)
		}
		pass, err := f.Pass(gputypes.Color{A: 1}).Begin(f.Encoder)
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		render_pass.UseShading(pass, p, group)
		if err := cube.Render(pass); err != nil {
			t.Fatalf("Render: %v", err)
		}
		if err := pass.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		if err := r.EndFrame(f); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
	}
	if n := dev.Stats().Draws; n != 3 {
		t.Errorf("draws = %d, want 3", n)
	}
}

func TestResize(t *testing.T) {
	r := newHeadless(t, WithMSAA(MSAAOff))
	if err := r.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) returned nil error")
	}
	if err := r.Resize(128, 96); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := r.Size(); w != 128 || h != 96 {
		t.Errorf("Size() = %dx%d, want 128x96", w, h)
	}
	f, err := r.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if f.Width != 128 || f.Height != 96 {
		t.Errorf("frame size = %dx%d", f.Width, f.Height)
	}
	if err := r.EndFrame(f); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

func TestWithoutDepth(t *testing.T) {
	r := newHeadless(t, WithDepthFormat(gputypes.TextureFormatUndefined), WithMSAA(MSAAOff))
	f, err := r.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer r.EndFrame(f)
	if f.Depth() != nil {
		t.Error("frame has a depth view without a depth format")
	}
}

func TestPipelineCache(t *testing.T) {
	r := newHeadless(t)
	a, err := pipeline.Build[geometry.StandardVertex](texturedBuilder("a").With(pipeline.WithSampleCount(r.SampleCount())), r.Device(), r.Format())
	if err != nil {
		t.Fatalf("Build a: %v", err)
	}
	b, err := pipeline.Build[geometry.StandardVertex](texturedBuilder("b").With(pipeline.WithSampleCount(r.SampleCount())), r.Device(), r.Format())
	if err != nil {
		t.Fatalf("Build b: %v", err)
	}
	if n := r.RegisterPipelines(a, b, a, nil); n != 2 {
		t.Errorf("RegisterPipelines added %d, want 2", n)
	}
	if r.Pipeline("a") != a || r.Pipeline("missing") != nil {
		t.Error("Pipeline lookup mismatch")
	}

	var keys []string
	for k := range r.Pipelines() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if diff := cmp.Diff([]string{"a", "b"}, keys); diff != "" {
		t.Errorf("pipeline keys (-want +got):\n%s", diff)
	}
}

func TestParseBackendType(t *testing.T) {
	cases := map[string]RendererBackendType{
		"webgpu":   BackendTypeWGPU,
		"WGPU":     BackendTypeWGPU,
		"":         BackendTypeWGPU,
		"gogpu":    BackendTypeGoGPU,
		"Headless": BackendTypeHeadless,
	}
	for name, want := range cases {
		got, err := ParseBackendType(name)
		if err != nil || got != want {
			t.Errorf("ParseBackendType(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseBackendType("vulkan"); err == nil {
		t.Error("ParseBackendType(vulkan) returned nil error")
	}
	if BackendTypeGoGPU.String() != "gogpu" {
		t.Errorf("String() = %q", BackendTypeGoGPU.String())
	}
}

func TestParseMSAAAndPresentMode(t *testing.T) {
	for in, want := range map[int]MSAASampleCount{0: MSAAOff, 1: MSAAOff, 4: MSAA4x, 8: MSAA8x, 16: MSAA16x} {
		if got, err := ParseMSAA(in); err != nil || got != want {
			t.Errorf("ParseMSAA(%d) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMSAA(2); err == nil {
		t.Error("ParseMSAA(2) returned nil error")
	}
	if m, err := ParsePresentMode("uncapped"); err != nil || m != PresentModeUncapped {
		t.Errorf("ParsePresentMode(uncapped) = %v, %v", m, err)
	}
	if _, err := ParsePresentMode("triple"); err == nil {
		t.Error("ParsePresentMode(triple) returned nil error")
	}
}
