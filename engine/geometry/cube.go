package geometry

// cubeFaces lists each face of the unit cube as four corners with texture coordinates,
// counter-clockwise when seen from outside.
var cubeFaces = [6][4]StandardVertex{
	// +z
	{NewStandardVertex(-1, -1, 1, 0, 0), NewStandardVertex(1, -1, 1, 1, 0), NewStandardVertex(1, 1, 1, 1, 1), NewStandardVertex(-1, 1, 1, 0, 1)},
	// -z
	{NewStandardVertex(-1, 1, -1, 1, 0), NewStandardVertex(1, 1, -1, 0, 0), NewStandardVertex(1, -1, -1, 0, 1), NewStandardVertex(-1, -1, -1, 1, 1)},
	// +x
	{NewStandardVertex(1, -1, -1, 0, 0), NewStandardVertex(1, 1, -1, 1, 0), NewStandardVertex(1, 1, 1, 1, 1), NewStandardVertex(1, -1, 1, 0, 1)},
	// -x
	{NewStandardVertex(-1, -1, 1, 1, 0), NewStandardVertex(-1, 1, 1, 0, 0), NewStandardVertex(-1, 1, -1, 0, 1), NewStandardVertex(-1, -1, -1, 1, 1)},
	// +y
	{NewStandardVertex(1, 1, -1, 1, 0), NewStandardVertex(-1, 1, -1, 0, 0), NewStandardVertex(-1, 1, 1, 0, 1), NewStandardVertex(1, 1, 1, 1, 1)},
	// -y
	{NewStandardVertex(1, -1, 1, 0, 0), NewStandardVertex(-1, -1, 1, 1, 0), NewStandardVertex(-1, -1, -1, 1, 1), NewStandardVertex(1, -1, -1, 0, 1)},
}

// CubeData returns the 24 vertices and 36 indices of a cube spanning [-1, 1] on every axis.
// Each face has its own four vertices so texture coordinates do not bleed across edges.
func CubeData() ([]StandardVertex, []uint16) {
	vertices := make([]StandardVertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for f, face := range cubeFaces {
		base := uint16(f * 4)
		vertices = append(vertices, face[:]...)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}

// NewCube builds a Geometry holding CubeData.
func NewCube(label string) *Geometry[StandardVertex] {
	v, i := CubeData()
	return New(label, v, i)
}
