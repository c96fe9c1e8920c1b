package device_buffer

import (
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-mirror/common"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// Buffer is a fixed-size block of device memory holding count elements of T.
// The element count and stride are fixed at creation; Update replaces the contents through a
// staging copy recorded into the caller's command encoder.
type Buffer[T any] struct {
	label  string
	count  int
	stride uint64
	usage  gputypes.BufferUsage
	device gpu.Device
	buf    gpu.Buffer
}

// New allocates a buffer sized for data and uploads data into it.
// gputypes.BufferUsageCopyDst is always added to usage since Update copies into the buffer.
//
// Parameters:
//   - device: the device to allocate on
//   - label: the debug label of the buffer
//   - data: the initial contents, which also fix the element count
//   - usage: the buffer usage flags
//
// Returns:
//   - *Buffer[T]: the created buffer
//   - error: an error if data is empty or the device fails to allocate or upload
func New[T any](device gpu.Device, label string, data []T, usage gputypes.BufferUsage) (*Buffer[T], error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("device_buffer: %q created with no elements", label)
	}
	var zero T
	b := &Buffer[T]{
		label:  label,
		count:  len(data),
		stride: uint64(unsafe.Sizeof(zero)),
		usage:  usage | gputypes.BufferUsageCopyDst,
		device: device,
	}

	buf, err := device.CreateBuffer(&gputypes.BufferDescriptor{
		Label: label,
		Size:  b.allocSize(),
		Usage: b.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("device_buffer: create %q: %w", label, err)
	}
	if err := device.Queue().WriteBuffer(buf, 0, padded(common.SliceToBytes(data))); err != nil {
		buf.Release()
		return nil, fmt.Errorf("device_buffer: upload %q: %w", label, err)
	}
	b.buf = buf
	return b, nil
}

// Update replaces the buffer contents with data. It allocates a transient staging buffer holding
// data and records a copy from it into this buffer, so the write lands in command order and never
// touches memory an earlier submission may still be reading. The staging buffer is released once
// the encoder's command buffer has been submitted.
//
// Update panics if len(data) differs from the element count the buffer was created with.
//
// Parameters:
//   - encoder: the command encoder to record the copy into
//   - data: the new contents
//
// Returns:
//   - error: an error if the staging buffer cannot be created or the copy cannot be recorded
func (b *Buffer[T]) Update(encoder gpu.CommandEncoder, data []T) error {
	if len(data) != b.count {
		panic(fmt.Sprintf("device_buffer: update of %q with %d elements, buffer holds %d", b.label, len(data), b.count))
	}
	size := b.allocSize()
	staging, err := b.device.CreateBuffer(&gputypes.BufferDescriptor{
		Label: b.label + " staging",
		Size:  size,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("device_buffer: staging for %q: %w", b.label, err)
	}
	if err := b.device.Queue().WriteBuffer(staging, 0, padded(common.SliceToBytes(data))); err != nil {
		staging.Release()
		return fmt.Errorf("device_buffer: fill staging for %q: %w", b.label, err)
	}
	if err := encoder.CopyBufferToBuffer(staging, 0, b.buf, 0, size); err != nil {
		staging.Release()
		return fmt.Errorf("device_buffer: copy into %q: %w", b.label, err)
	}
	encoder.DeferRelease(staging)
	return nil
}

// ByteLength returns count * stride. This is the logical size; the allocation may be padded
// up to gpu.CopyAlignment.
func (b *Buffer[T]) ByteLength() uint64 { return uint64(b.count) * b.stride }

// Usage returns the usage flags of the buffer.
func (b *Buffer[T]) Usage() gputypes.BufferUsage { return b.usage }

// Len returns the element count.
func (b *Buffer[T]) Len() int { return b.count }

// Stride returns the size of one element in bytes.
func (b *Buffer[T]) Stride() uint64 { return b.stride }

// Label returns the debug label.
func (b *Buffer[T]) Label() string { return b.label }

// GPU returns the underlying device buffer for binding.
func (b *Buffer[T]) GPU() gpu.Buffer { return b.buf }

// Release frees the device buffer.
func (b *Buffer[T]) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

func (b *Buffer[T]) allocSize() uint64 {
	return gpu.AlignCopySize(b.ByteLength())
}

// padded returns raw extended with zeros to gpu.CopyAlignment. The input is never modified.
func padded(raw []byte) []byte {
	size := gpu.AlignCopySize(uint64(len(raw)))
	if size == uint64(len(raw)) {
		return raw
	}
	out := make([]byte, size)
	copy(out, raw)
	return out
}
