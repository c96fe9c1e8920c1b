package main

import (
	_ "embed"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/camera"
	"github.com/Carmen-Shannon/oxy-mirror/engine/config"
	"github.com/Carmen-Shannon/oxy-mirror/engine/geometry"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/mirror"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/oxy-mirror/engine/texture"
	"github.com/gogpu/gputypes"
)

var (
	//go:embed cube_vert.wgsl
	vertexShader string

	//go:embed cube_frag.wgsl
	fragmentShader string
)

var clearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1}

// orbit is the camera's distance from the Y axis and its height; (5, 5, 5) lies on it.
var (
	orbitRadius = float32(5 * math.Sqrt2)
	orbitHeight = float32(5)
	orbitStart  = math.Pi / 4
)

// radiansPerSecond is how fast the camera circles the cube.
const radiansPerSecond = 0.5

// cubeApp draws a textured cube seen from a camera circling it.
type cubeApp struct {
	texture config.TextureConfig

	angle float64

	cam      *mirror.Mirror[camera.Camera, *device_buffer.Buffer[float32]]
	diffuse  *mirror.Mirror[texture.ImageData, *texture.GPUTexture]
	sampler  gpu.Sampler
	group    gpu.BindGroup
	cube     *geometry.Geometry[geometry.StandardVertex]
	pipeline *pipeline.Pipeline

	releaseOnce sync.Once
}

func newCubeApp(cfg config.TextureConfig) *cubeApp {
	return &cubeApp{texture: cfg, angle: orbitStart}
}

// texels returns the configured image, or the generated fractal when no path is set.
func (a *cubeApp) texels() (texture.ImageData, error) {
	if a.texture.Path != "" {
		img, err := texture.LoadImage(a.texture.Path)
		if err != nil {
			return texture.ImageData{}, err
		}
		return img.Resized(a.texture.Size, a.texture.Size), nil
	}
	return texture.NewGenerator(a.texture.Workers).Texels(a.texture.Size), nil
}

func (a *cubeApp) Init(r renderer.Renderer) error {
	device := r.Device()
	w, h := r.Size()

	a.cam = camera.NewMirror("camera", camera.NewCamera(
		camera.WithLookAt(a.eye(), [3]float32{0, 0, 0}, [3]float32{0, 1, 0}),
		camera.WithSize(w, h),
	))
	buf, err := a.cam.EnsureGPU(device)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	img, err := a.texels()
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	a.diffuse = texture.NewMirror("diffuse", img)
	tex, err := a.diffuse.EnsureGPU(device)
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	a.sampler, err = texture.NewSampler(device, "diffuse",
		texture.WithAddressMode(gputypes.AddressModeRepeat),
		texture.WithFilter(gputypes.FilterModeLinear, gputypes.FilterModeLinear))
	if err != nil {
		return err
	}

	a.pipeline, err = renderer.BuildPipeline[geometry.StandardVertex](r, pipeline.NewPipelineBuilder("textured_cube",
		pipeline.WithVertexSource(vertexShader),
		pipeline.WithFragmentSource(fragmentShader),
		pipeline.WithBindGroupLayout(pipeline.NewBindGroupLayoutBuilder().
			UniformBuffer(0, gputypes.ShaderStageVertex).
			SampledTexture(1, gputypes.ShaderStageFragment).
			Sampler(2, gputypes.ShaderStageFragment)),
	))
	if err != nil {
		return err
	}

	a.group, err = bind_group.NewBuilder().
		Label("textured_cube").
		Buffer(buf.GPU()).
		Texture(tex.View()).
		Sampler(a.sampler).
		Build(device, a.pipeline.BindGroupLayout(0))
	if err != nil {
		return err
	}

	a.cube = geometry.NewCube("cube")
	return a.cube.Upload(device)
}

func (a *cubeApp) eye() [3]float32 {
	s, c := math.Sincos(a.angle)
	return [3]float32{orbitRadius * float32(c), orbitHeight, orbitRadius * float32(s)}
}

func (a *cubeApp) Update(dt float32) {
	a.angle = math.Mod(a.angle+radiansPerSecond*float64(dt), 2*math.Pi)
	if a.cam != nil {
		(*a.cam.Logical()).LookAt(a.eye(), [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	}
}

func (a *cubeApp) Resize(width, height uint32) {
	if a.cam != nil {
		(*a.cam.Logical()).Resize(width, height)
	}
}

func (a *cubeApp) Render(f *renderer.Frame) error {
	if _, err := a.cam.GetUpdateGPU(f.Device, f.Encoder); err != nil {
		return err
	}
	pass, err := f.Pass(clearColor).Label("cube").Begin(f.Encoder)
	if err != nil {
		return err
	}
	render_pass.UseShading(pass, a.pipeline, a.group)
	if err := a.cube.Render(pass); err != nil {
		_ = pass.End()
		return err
	}
	return pass.End()
}

// Release frees the GPU resources created by Init. The pipeline belongs to the renderer's cache.
func (a *cubeApp) Release() {
	a.releaseOnce.Do(func() {
		if a.cube != nil {
			a.cube.Release()
		}
		if a.group != nil {
			a.group.Release()
		}
		if a.sampler != nil {
			a.sampler.Release()
		}
		if a.diffuse != nil {
			a.diffuse.Release()
		}
		if a.cam != nil {
			a.cam.Release()
		}
	})
}
