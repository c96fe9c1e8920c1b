package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// offscreenRendererBackend renders into a device texture instead of a window surface.
type offscreenRendererBackend struct {
	device  gpu.Device
	release func()

	target   gpu.Texture
	view     gpu.TextureView
	acquired bool
	frames   uint64
}

var _ RendererBackend = &offscreenRendererBackend{}

func newOffscreenRendererBackend(device gpu.Device, release func()) *offscreenRendererBackend {
	return &offscreenRendererBackend{device: device, release: release}
}

func (b *offscreenRendererBackend) Device() gpu.Device { return b.device }

func (b *offscreenRendererBackend) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

func (b *offscreenRendererBackend) SetVSync(bool) {}

func (b *offscreenRendererBackend) Configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("renderer: cannot configure a %dx%d target", width, height)
	}
	if b.target != nil && b.target.Width() == width && b.target.Height() == height {
		return nil
	}
	tex, err := b.device.CreateTexture(&gputypes.TextureDescriptor{
		Label:         "offscreen target",
		Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.Format(),
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("renderer: offscreen target: %w", err)
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Release()
		return fmt.Errorf("renderer: offscreen target view: %w", err)
	}
	b.releaseTarget()
	b.target, b.view = tex, view
	return nil
}

func (b *offscreenRendererBackend) AcquireFrame() (gpu.TextureView, error) {
	if b.view == nil {
		return nil, fmt.Errorf("renderer: offscreen target is not configured")
	}
	if b.acquired {
		return nil, ErrFrameInFlight
	}
	b.acquired = true
	return b.view, nil
}

func (b *offscreenRendererBackend) Present() {
	if b.acquired {
		b.acquired = false
		b.frames++
	}
}

// Target returns the texture frames are rendered into.
func (b *offscreenRendererBackend) Target() gpu.Texture { return b.target }

func (b *offscreenRendererBackend) releaseTarget() {
	if b.view != nil {
		b.view.Release()
		b.view = nil
	}
	if b.target != nil {
		b.target.Release()
		b.target = nil
	}
}

func (b *offscreenRendererBackend) Release() {
	b.releaseTarget()
	if b.release != nil {
		b.release()
	}
}
