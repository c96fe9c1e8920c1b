package renderer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// ErrFrameInFlight is returned by BeginFrame while the previous frame has not been ended.
var ErrFrameInFlight = errors.New("renderer: previous frame has not ended")

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects wgpu-native through cogentcore/webgpu, presenting to a window surface.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeGoGPU selects the pure-Go gogpu/wgpu stack, rendering to an offscreen target.
	BackendTypeGoGPU

	// BackendTypeHeadless selects the in-memory device. Nothing is rasterized; it is meant for
	// tests and CI.
	BackendTypeHeadless
)

// String returns the configuration name of the backend.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "webgpu"
	case BackendTypeGoGPU:
		return "gogpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType maps a configuration name onto a RendererBackendType. Matching ignores case.
//
// Parameters:
//   - name: one of "webgpu" (or "wgpu"), "gogpu", "headless"
//
// Returns:
//   - RendererBackendType: the backend type
//   - error: an error if name is not a known backend
func ParseBackendType(name string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "webgpu", "wgpu", "":
		return BackendTypeWGPU, nil
	case "gogpu":
		return BackendTypeGoGPU, nil
	case "headless":
		return BackendTypeHeadless, nil
	default:
		return 0, fmt.Errorf("renderer: unknown backend %q", name)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps "vsync" or "uncapped" onto a PresentMode. An empty name is VSync.
func ParsePresentMode(name string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vsync", "":
		return PresentModeVSync, nil
	case "uncapped", "immediate":
		return PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("renderer: unknown present mode %q", name)
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// ParseMSAA converts a sample count into an MSAASampleCount. Zero means off.
func ParseMSAA(samples int) (MSAASampleCount, error) {
	switch samples {
	case 0, 1:
		return MSAAOff, nil
	case 4:
		return MSAA4x, nil
	case 8:
		return MSAA8x, nil
	case 16:
		return MSAA16x, nil
	default:
		return 0, fmt.Errorf("renderer: unsupported msaa sample count %d", samples)
	}
}

// RendererBackend is the render target the Renderer draws into. The wgpu-native backend presents
// to a window surface; the gogpu and headless backends render offscreen.
type RendererBackend interface {
	// Device returns the device resources are created on.
	Device() gpu.Device

	// Format returns the color format of the frames handed out by AcquireFrame.
	Format() gputypes.TextureFormat

	// SetVSync selects synchronized presentation. It takes effect on the next Configure.
	SetVSync(on bool)

	// Configure (re)sizes the target.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - error: an error if the size is zero or the target cannot be created
	Configure(width, height uint32) error

	// AcquireFrame returns the view to draw the next frame into.
	AcquireFrame() (gpu.TextureView, error)

	// Present shows the acquired frame.
	Present()

	// Release frees the target and the device.
	Release()
}
