package camera

import (
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/mirror"
	"github.com/gogpu/gputypes"
)

// UniformSource is the WGSL declaration matching the camera uniform buffer. Shaders bind it with
// `var<uniform> camera: CameraUniform;`.
const UniformSource = `
struct CameraUniform {
    view_proj: mat4x4<f32>,
};
`

// UniformFloats is the number of float32 values in the camera uniform.
const UniformFloats = 16

// UniformData returns the contents of the camera uniform buffer: the column-major
// view-projection matrix.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - []float32: UniformFloats values
func UniformData(c Camera) []float32 {
	m := c.ViewProjectionMatrix()
	return m[:]
}

// Uniform mirrors a Camera into a uniform buffer of UniformFloats values.
type Uniform struct {
	Label string
}

var _ mirror.GPUItem[Camera, *device_buffer.Buffer[float32]] = Uniform{}

// NewMirror wraps c in a Mirror whose device side is its uniform buffer.
//
// Parameters:
//   - label: the debug label of the uniform buffer
//   - c: the camera to mirror
//
// Returns:
//   - *mirror.Mirror[Camera, *device_buffer.Buffer[float32]]: the camera mirror
func NewMirror(label string, c Camera) *mirror.Mirror[Camera, *device_buffer.Buffer[float32]] {
	return mirror.New[Camera, *device_buffer.Buffer[float32]](c, Uniform{Label: label})
}

func (u Uniform) CreateGPU(logical *Camera, device gpu.Device) (*device_buffer.Buffer[float32], error) {
	return device_buffer.New(device, u.Label, UniformData(*logical), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
}

func (u Uniform) UpdateGPU(g **device_buffer.Buffer[float32], logical *Camera, _ gpu.Device, encoder gpu.CommandEncoder) error {
	return (*g).Update(encoder, UniformData(*logical))
}
