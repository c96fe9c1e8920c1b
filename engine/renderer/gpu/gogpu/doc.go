// Package gogpu implements gpu.Device on the pure-Go gogpu/wgpu stack. It renders offscreen and
// falls back to the software rasterizer when no Vulkan or GL driver is available, so it runs on
// machines without a window system.
//
// The stack loads its drivers without cgo: build with -tags gogpu and CGO_ENABLED=0.
package gogpu
