package geometry

import (
	"unsafe"

	"github.com/gogpu/gputypes"
)

// Vertex is implemented by every vertex struct that can be stored in a Geometry and drawn by a
// pipeline. VertexLayout is called on the zero value, so it must not depend on the receiver's fields.
type Vertex interface {
	// VertexLayout describes how one vertex of this type is laid out in a vertex buffer.
	//
	// Returns:
	//   - gputypes.VertexBufferLayout: the stride, step mode, and attributes of the vertex
	VertexLayout() gputypes.VertexBufferLayout
}

// StandardVertex is a homogeneous position with a texture coordinate.
type StandardVertex struct {
	Position [4]float32 // offset  0: @location(0) vec4<f32> (16 bytes)
	TexCoord [2]float32 // offset 16: @location(1) vec2<f32> (8 bytes)
}

var _ Vertex = StandardVertex{}

// NewStandardVertex builds a vertex at (x, y, z, 1) with texture coordinate (u, v).
func NewStandardVertex(x, y, z, u, v float32) StandardVertex {
	return StandardVertex{Position: [4]float32{x, y, z, 1}, TexCoord: [2]float32{u, v}}
}

func (StandardVertex) VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(StandardVertex{})),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x4, Offset: uint64(unsafe.Offsetof(StandardVertex{}.Position)), ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(StandardVertex{}.TexCoord)), ShaderLocation: 1},
		},
	}
}

// LayoutOf returns the vertex buffer layout of V.
func LayoutOf[V Vertex]() gputypes.VertexBufferLayout {
	var v V
	return v.VertexLayout()
}
