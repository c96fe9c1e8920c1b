package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/geometry"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-mirror/engine/texture"
	"github.com/Carmen-Shannon/oxy-mirror/engine/window"
	"github.com/gogpu/gputypes"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]*pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	depthFormat          gputypes.TextureFormat
	width, height        uint32
	logger               *slog.Logger

	msaa         MSAASampleCount
	msaaTexture  gpu.Texture
	msaaView     gpu.TextureView
	depth        *texture.DepthAttachment
	frame        *Frame
	frameCounter uint64
}

// Renderer owns the device and the render target, and hands out one Frame at a time.
//
// The Renderer manages a cache of built pipelines keyed by pipeline key, the multisampled color
// target and the depth attachment. Resources created through Device are owned by the caller.
type Renderer interface {
	// Device returns the device of the active backend.
	//
	// Returns:
	//   - gpu.Device: the device all resources must be created on
	Device() gpu.Device

	// BackendType returns the backend the renderer was created with.
	BackendType() RendererBackendType

	// Format returns the color format pipelines must target.
	Format() gputypes.TextureFormat

	// DepthFormat returns the format of the depth attachment, or TextureFormatUndefined when the
	// renderer was built without one.
	DepthFormat() gputypes.TextureFormat

	// SampleCount returns the MSAA sample count pipelines must be built with.
	SampleCount() uint32

	// Size returns the current target size in pixels.
	Size() (width, height uint32)

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - *pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) *pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	Pipelines() map[string]*pipeline.Pipeline

	// RegisterPipelines caches built pipelines by their key. Pipelines whose keys are already
	// registered are skipped; the caller keeps ownership of a skipped pipeline.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - int: the number of pipelines added to the cache
	RegisterPipelines(pipelines ...*pipeline.Pipeline) int

	// SetPipeline adds or replaces a Pipeline in the cache. A replaced pipeline is released.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline
	//   - p: the Pipeline to cache
	SetPipeline(key string, p *pipeline.Pipeline)

	// Resize reconfigures the target and reallocates the multisample and depth attachments.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the size is zero or an attachment cannot be created
	Resize(width, height int) error

	// SetPresentMode sets the present mode and reconfigures the surface at its current size.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode) error

	// BeginFrame acquires the next target image and opens a command encoder for it.
	// Must be paired with EndFrame.
	//
	// Returns:
	//   - *Frame: the frame to record into
	//   - error: ErrFrameInFlight, or an error if the target or encoder could not be acquired
	BeginFrame() (*Frame, error)

	// EndFrame finishes the frame encoder, submits it and presents the target image. The target
	// image is presented even when submission fails.
	//
	// Parameters:
	//   - f: the frame returned by BeginFrame
	//
	// Returns:
	//   - error: an error if f is not the open frame or the encoder could not be submitted
	EndFrame(f *Frame) error

	// Frames returns the number of frames ended so far.
	Frames() uint64

	// Release frees every cached pipeline, the attachments and the backend.
	Release()
}

var _ Renderer = &renderer{}

// backendConstructor opens a backend for r. win is nil when rendering offscreen.
type backendConstructor func(r *renderer, win window.Window) (RendererBackend, error)

// backends holds the constructors compiled into this build. The native backends register
// themselves from files guarded by the webgpu and gogpu build tags.
var backends = map[RendererBackendType]backendConstructor{
	BackendTypeHeadless: func(*renderer, window.Window) (RendererBackend, error) {
		d := headless.New()
		return newOffscreenRendererBackend(d, d.Release), nil
	},
}

// NewRenderer creates a Renderer on the selected backend. BackendTypeWGPU needs win for its
// surface; the offscreen backends take their size from win when given, otherwise from WithSize.
// The headless backend is always available; BackendTypeWGPU and BackendTypeGoGPU need the webgpu
// and gogpu build tags.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window to present to, may be nil for the offscreen backends
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: an error if the backend or one of the attachments cannot be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]*pipeline.Pipeline),
		backendType:   backendType,
		depthFormat:   gputypes.TextureFormatDepth32Float,
		width:         1280,
		height:        720,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}
	if win != nil {
		r.width, r.height = uint32(win.Width()), uint32(win.Height())
	}

	r.msaa = MSAA4x
	if r.pendingMSAA != nil {
		r.msaa = *r.pendingMSAA
	}
	if _, err := ParseMSAA(int(r.msaa)); err != nil {
		return nil, err
	}

	newBackend, ok := backends[backendType]
	if !ok {
		switch backendType {
		case BackendTypeWGPU, BackendTypeGoGPU:
			return nil, fmt.Errorf("renderer: %v backend not built (build with -tags %v)", backendType, backendType)
		default:
			return nil, fmt.Errorf("renderer: unknown backend %v", backendType)
		}
	}
	b, err := newBackend(r, win)
	if err != nil {
		return nil, err
	}
	r.backend = b

	if r.pendingPresentMode != nil {
		r.backend.SetVSync(*r.pendingPresentMode == PresentModeVSync)
	}

	if err := r.configure(r.width, r.height); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// configure sizes the backend target and the attachments that must match it.
func (r *renderer) configure(width, height uint32) error {
	if err := r.backend.Configure(width, height); err != nil {
		return err
	}
	device := r.backend.Device()

	if r.msaa > MSAAOff {
		tex, err := device.CreateTexture(&gputypes.TextureDescriptor{
			Label:         "msaa color",
			Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   uint32(r.msaa),
			Dimension:     gputypes.TextureDimension2D,
			Format:        r.backend.Format(),
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("renderer: msaa color target: %w", err)
		}
		view, err := tex.CreateView()
		if err != nil {
			tex.Release()
			return fmt.Errorf("renderer: msaa color view: %w", err)
		}
		r.releaseMSAA()
		r.msaaTexture, r.msaaView = tex, view
	}

	if r.depthFormat != gputypes.TextureFormatUndefined {
		if r.depth == nil {
			d, err := texture.NewMultisampleDepthAttachment(device, r.depthFormat, width, height, uint32(r.msaa))
			if err != nil {
				return fmt.Errorf("renderer: %w", err)
			}
			r.depth = d
		} else if err := r.depth.Resize(device, width, height); err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
	}

	r.width, r.height = width, height
	return nil
}

func (r *renderer) releaseMSAA() {
	if r.msaaView != nil {
		r.msaaView.Release()
		r.msaaView = nil
	}
	if r.msaaTexture != nil {
		r.msaaTexture.Release()
		r.msaaTexture = nil
	}
}

func (r *renderer) Device() gpu.Device { return r.backend.Device() }

func (r *renderer) BackendType() RendererBackendType { return r.backendType }

func (r *renderer) Format() gputypes.TextureFormat { return r.backend.Format() }

func (r *renderer) DepthFormat() gputypes.TextureFormat { return r.depthFormat }

func (r *renderer) SampleCount() uint32 { return uint32(r.msaa) }

func (r *renderer) Size() (uint32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("renderer: cannot resize to %dx%d", width, height)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configure(uint32(width), uint32(height))
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetVSync(mode == PresentModeVSync)
	return r.backend.Configure(r.width, r.height)
}

func (r *renderer) Pipeline(key string) *pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]*pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...*pipeline.Pipeline) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, p := range pipelines {
		if p == nil {
			continue
		}
		if _, exists := r.pipelineCache[p.Key()]; exists {
			continue
		}
		r.pipelineCache[p.Key()] = p
		added++
	}
	return added
}

func (r *renderer) SetPipeline(key string, p *pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.pipelineCache[key]; ok && old != p {
		old.Release()
	}
	r.pipelineCache[key] = p
}

func (r *renderer) BeginFrame() (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frame != nil {
		return nil, ErrFrameInFlight
	}
	view, err := r.backend.AcquireFrame()
	if err != nil {
		return nil, fmt.Errorf("renderer: acquire frame: %w", err)
	}
	encoder, err := r.backend.Device().CreateCommandEncoder("frame")
	if err != nil {
		r.backend.Present()
		return nil, fmt.Errorf("renderer: frame encoder: %w", err)
	}

	f := &Frame{
		Device:  r.backend.Device(),
		Encoder: encoder,
		Width:   r.width,
		Height:  r.height,
		Index:   r.frameCounter,
		target:  view,
	}
	if r.msaaView != nil {
		f.target, f.resolve = r.msaaView, view
	}
	if r.depth != nil {
		f.depth = r.depth.View()
	}
	r.frame = f
	return f, nil
}

func (r *renderer) EndFrame(f *Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f == nil || f != r.frame {
		return errors.New("renderer: EndFrame called with a frame that is not open")
	}
	r.frame = nil
	r.frameCounter++
	defer r.backend.Present()
	// A finished encoder hands its deferred releases to the command buffer; an unfinished one drops them.
	defer f.Encoder.Release()

	cb, err := f.Encoder.Finish()
	if err != nil {
		return fmt.Errorf("renderer: finish frame %d: %w", f.Index, err)
	}
	if err := r.backend.Device().Queue().Submit(cb); err != nil {
		return fmt.Errorf("renderer: submit frame %d: %w", f.Index, err)
	}
	return nil
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameCounter
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, k)
	}
	r.releaseMSAA()
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
}

// BuildPipeline builds b against the renderer's color format, depth format and sample count, then
// caches it. When a pipeline with the same key is already cached it is returned without building.
//
// Parameters:
//   - r: the renderer to build for
//   - b: the pipeline description
//
// Returns:
//   - *pipeline.Pipeline: the cached pipeline
//   - error: an error if building fails
func BuildPipeline[V geometry.Vertex](r Renderer, b *pipeline.Builder) (*pipeline.Pipeline, error) {
	if p := r.Pipeline(b.Key()); p != nil {
		return p, nil
	}
	b.With(
		pipeline.WithSampleCount(r.SampleCount()),
		pipeline.WithDepthFormat(r.DepthFormat()),
	)
	p, err := pipeline.Build[V](b, r.Device(), r.Format())
	if err != nil {
		return nil, err
	}
	r.RegisterPipelines(p)
	return p, nil
}
