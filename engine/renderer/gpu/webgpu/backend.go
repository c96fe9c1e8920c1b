//go:build webgpu

package webgpu

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// ErrFrameInFlight is returned by AcquireFrame while the previous frame has not been presented.
var ErrFrameInFlight = errors.New("webgpu: previous frame surface not yet presented")

// Backend owns the wgpu-native instance, adapter and window surface, and the Device created on them.
type Backend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *Device

	surfaceFormat wgpu.TextureFormat
	format        gputypes.TextureFormat
	presentMode   wgpu.PresentMode

	frameSurface *wgpu.Texture
	frameView    *textureView
}

// New creates a Backend rendering into the surface described by surfaceDescriptor. The calling
// goroutine is locked to its OS thread, as the window system requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, typically from window.Window.SurfaceDescriptor
//   - forceFallbackAdapter: true to request a software adapter
//
// Returns:
//   - *Backend: the backend, with an unconfigured surface
//   - error: an error if no adapter or device could be obtained
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*Backend, error) {
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("webgpu: nil surface descriptor")
	}
	runtime.LockOSThread()
	b := &Backend{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.surface.Release()
		b.instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		b.surface.Release()
		b.instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	b.device = Wrap(d)

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		b.Release()
		return nil, fmt.Errorf("webgpu: surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]
	format, ok := fromTextureFormat(b.surfaceFormat)
	if !ok {
		log.Printf("webgpu: surface format %v has no gputypes equivalent, using BGRA8Unorm", b.surfaceFormat)
		b.surfaceFormat = wgpu.TextureFormatBGRA8Unorm
		format = gputypes.TextureFormatBGRA8Unorm
	}
	b.format = format
	return b, nil
}

// Device returns the gpu.Device of the backend.
func (b *Backend) Device() gpu.Device { return b.device }

// Format returns the texture format of the surface.
func (b *Backend) Format() gputypes.TextureFormat { return b.format }

// SetVSync selects Fifo presentation when on and Immediate when off. It takes effect on the next Configure.
func (b *Backend) SetVSync(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.presentMode = wgpu.PresentModeFifo
	} else {
		b.presentMode = wgpu.PresentModeImmediate
	}
}

// Configure (re)configures the surface for a new size. It must be called before the first
// AcquireFrame and after every window resize.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - error: an error if either dimension is zero
func (b *Backend) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("webgpu: cannot configure a %dx%d surface", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	alpha := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alpha = capabilities.AlphaModes[0]
	}
	b.surface.Configure(b.adapter, b.device.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: b.presentMode,
		AlphaMode:   alpha,
	})
	return nil
}

// AcquireFrame returns a view of the next swapchain image. It must be followed by Present.
//
// Returns:
//   - gpu.TextureView: the swapchain view for this frame
//   - error: ErrFrameInFlight, or an error if the surface image could not be acquired
func (b *Backend) AcquireFrame() (gpu.TextureView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return nil, ErrFrameInFlight
	}
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	b.frameSurface = surfaceTexture
	b.frameView = &textureView{view: view}
	return b.frameView, nil
}

// Present shows the acquired frame and releases the swapchain image. It is a no-op when no frame is held.
func (b *Backend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

// Release frees the device, surface, adapter and instance.
func (b *Backend) Release() {
	b.Present()
	if b.device != nil {
		b.device.Release()
	}
	b.surface.Release()
	if b.adapter != nil {
		b.adapter.Release()
	}
	b.instance.Release()
}
