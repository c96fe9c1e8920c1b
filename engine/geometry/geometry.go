package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/mirror"
	"github.com/gogpu/gputypes"
)

// Geometry is an indexed triangle mesh of V. Vertices and indices are each mirrored into a device
// buffer; the vertex count and index count are fixed once the geometry is uploaded.
type Geometry[V Vertex] struct {
	label    string
	vertices *mirror.Mirror[[]V, *device_buffer.Buffer[V]]
	indices  *mirror.Mirror[[]uint16, *device_buffer.Buffer[uint16]]
}

// New wraps vertices and indices. Nothing is allocated on a device until Upload.
//
// Parameters:
//   - label: the debug label prefix of the device buffers
//   - vertices: the vertex data
//   - indices: the triangle list indices into vertices
//
// Returns:
//   - *Geometry[V]: the geometry
func New[V Vertex](label string, vertices []V, indices []uint16) *Geometry[V] {
	return &Geometry[V]{
		label:    label,
		vertices: mirror.NewSliceBuffer(label+" vertices", vertices, gputypes.BufferUsageVertex),
		indices:  mirror.NewSliceBuffer(label+" indices", indices, gputypes.BufferUsageIndex),
	}
}

// Upload materializes the vertex and index buffers on device if they are not already.
//
// Parameters:
//   - device: the device to allocate on
//
// Returns:
//   - error: an error if either buffer cannot be created
func (g *Geometry[V]) Upload(device gpu.Device) error {
	if _, err := g.vertices.EnsureGPU(device); err != nil {
		return fmt.Errorf("geometry %q: %w", g.label, err)
	}
	if _, err := g.indices.EnsureGPU(device); err != nil {
		return fmt.Errorf("geometry %q: %w", g.label, err)
	}
	return nil
}

// Update records a copy of the current vertex data into encoder. Indices are static.
//
// Parameters:
//   - device: the device that owns the buffers
//   - encoder: the command encoder to record the copy into
//
// Returns:
//   - error: an error if the copy cannot be recorded
func (g *Geometry[V]) Update(device gpu.Device, encoder gpu.CommandEncoder) error {
	if _, err := g.vertices.GetUpdateGPU(device, encoder); err != nil {
		return fmt.Errorf("geometry %q: %w", g.label, err)
	}
	return nil
}

// Vertices returns the logical vertex slice. Changes reach the device on the next Update and must
// keep the slice length.
func (g *Geometry[V]) Vertices() *[]V { return g.vertices.Logical() }

// Indices returns the index data.
func (g *Geometry[V]) Indices() []uint16 { return *g.indices.Logical() }

// Render binds the vertex buffer to slot 0 and the index buffer, then draws every index once.
// The geometry must have been uploaded.
//
// Parameters:
//   - pass: the render pass to record into
//
// Returns:
//   - error: an error if the geometry has not been uploaded
func (g *Geometry[V]) Render(pass gpu.RenderPass) error {
	vb, ok := g.vertices.GPU()
	if !ok {
		return fmt.Errorf("geometry %q: render before upload", g.label)
	}
	ib, ok := g.indices.GPU()
	if !ok {
		return fmt.Errorf("geometry %q: render before upload", g.label)
	}
	pass.SetVertexBuffer(0, vb.GPU())
	pass.SetIndexBuffer(ib.GPU(), gputypes.IndexFormatUint16)
	pass.DrawIndexed(uint32(ib.Len()), 1)
	return nil
}

// Release frees both device buffers.
func (g *Geometry[V]) Release() {
	g.vertices.Release()
	g.indices.Release()
}
