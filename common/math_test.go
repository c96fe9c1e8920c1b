package common

import (
	"math"
	"testing"
)

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

// apply multiplies the column-major matrix m by the point (x, y, z, 1).
func apply(m []float32, x, y, z float32) [4]float32 {
	var out [4]float32
	for r := range 4 {
		out[r] = m[r]*x + m[4+r]*y + m[8+r]*z + m[12+r]
	}
	return out
}

func TestMul4Identity(t *testing.T) {
	var id, out [16]float32
	Identity(id[:])
	m := [16]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	Mul4(out[:], id[:], m[:])
	if out != m {
		t.Errorf("I * m = %v, want %v", out, m)
	}
}

func TestPerspectiveGLDepthRemap(t *testing.T) {
	const n, f = 0.5, 50
	var proj, clip [16]float32
	PerspectiveGL(proj[:], math.Pi/2, 1, n, f)
	Mul4(clip[:], OpenGLToWGPU[:], proj[:])

	for _, tc := range []struct {
		z, depth float32
	}{
		{-n, 0},
		{-f, 1},
	} {
		h := apply(clip[:], 0, 0, tc.z)
		if got := h[2] / h[3]; !near(got, tc.depth) {
			t.Errorf("depth at z=%v = %v, want %v", tc.z, got, tc.depth)
		}
	}
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	var view [16]float32
	LookAt(view[:], 5, 5, 5, 0, 0, 0, 0, 1, 0)

	eye := apply(view[:], 5, 5, 5)
	for i := range 3 {
		if !near(eye[i], 0) {
			t.Fatalf("eye in view space = %v, want origin", eye)
		}
	}
	target := apply(view[:], 0, 0, 0)
	if !near(target[0], 0) || !near(target[1], 0) || !near(target[2], -float32(math.Sqrt(75))) {
		t.Errorf("target in view space = %v, want (0, 0, -|eye|)", target)
	}
}

func TestSliceToBytes(t *testing.T) {
	if SliceToBytes([]float32(nil)) != nil {
		t.Error("empty slice should map to nil")
	}
	b := SliceToBytes([]uint32{0x04030201})
	if len(b) != 4 {
		t.Fatalf("len = %d, want 4", len(b))
	}
}
