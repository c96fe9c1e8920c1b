package mirror

import (
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// SliceBuffer mirrors a slice of plain values into a device buffer with a fixed element count.
type SliceBuffer[T any] struct {
	Label string
	Usage gputypes.BufferUsage
}

var _ GPUItem[[]float32, *device_buffer.Buffer[float32]] = SliceBuffer[float32]{}

// NewSliceBuffer wraps values in a Mirror backed by a device buffer with the given usage.
//
// Parameters:
//   - label: the debug label of the device buffer
//   - values: the logical slice
//   - usage: the buffer usage flags
//
// Returns:
//   - *Mirror[[]T, *device_buffer.Buffer[T]]: the mirror
func NewSliceBuffer[T any](label string, values []T, usage gputypes.BufferUsage) *Mirror[[]T, *device_buffer.Buffer[T]] {
	return New[[]T, *device_buffer.Buffer[T]](values, SliceBuffer[T]{Label: label, Usage: usage})
}

func (s SliceBuffer[T]) CreateGPU(logical *[]T, device gpu.Device) (*device_buffer.Buffer[T], error) {
	return device_buffer.New(device, s.Label, *logical, s.Usage)
}

func (s SliceBuffer[T]) UpdateGPU(g **device_buffer.Buffer[T], logical *[]T, _ gpu.Device, encoder gpu.CommandEncoder) error {
	return (*g).Update(encoder, *logical)
}
