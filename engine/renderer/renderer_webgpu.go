//go:build webgpu

package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// surfaceWindow is a window the webgpu backend can create a surface on.
type surfaceWindow interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
}

func init() {
	backends[BackendTypeWGPU] = newWebGPUBackend
}

func newWebGPUBackend(r *renderer, win window.Window) (RendererBackend, error) {
	if win == nil {
		return nil, errors.New("renderer: the webgpu backend needs a window")
	}
	sw, ok := win.(surfaceWindow)
	if !ok {
		return nil, errors.New("renderer: window cannot provide a webgpu surface")
	}
	b, err := webgpu.New(sw.SurfaceDescriptor(), r.forceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	return b, nil
}
