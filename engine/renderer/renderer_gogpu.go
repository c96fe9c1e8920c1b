//go:build gogpu

package renderer

import (
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/gogpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/window"
)

func init() {
	backends[BackendTypeGoGPU] = newGoGPUBackend
}

// newGoGPUBackend renders offscreen; win only supplies the initial size.
func newGoGPUBackend(r *renderer, _ window.Window) (RendererBackend, error) {
	d, err := gogpu.New(r.forceFallbackAdapter, r.logger)
	if err != nil {
		return nil, err
	}
	return newOffscreenRendererBackend(d, d.Release), nil
}
