// Package webgpu implements gpu.Device on top of wgpu-native through the cogentcore bindings.
// Backend owns the instance, adapter and window surface; Device wraps the logical device and
// converts gputypes descriptors into their wgpu-native form.
//
// The bindings need cgo, so the package is only built with -tags webgpu.
package webgpu
