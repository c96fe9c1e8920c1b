package shader

import (
	"strconv"
	"strings"
)

// typeLayout is the byte size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// scalarLayouts holds the sizes and alignments of WGSL scalars, vectors and matrices.
// https://www.w3.org/TR/WGSL/#alignment-and-size
var scalarLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},

	"mat2x2<f32>": {16, 8},
	"mat2x3<f32>": {32, 16},
	"mat2x4<f32>": {32, 16},
	"mat3x2<f32>": {24, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x2<f32>": {32, 8},
	"mat4x3<f32>": {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
	"mat3x3f":     {48, 16},
}

func init() {
	// vecN<T> and its vecNT shorthand share one layout
	for _, scalar := range []string{"f32", "i32", "u32"} {
		short := scalar[:1]
		scalarLayouts["vec2<"+scalar+">"] = typeLayout{8, 8}
		scalarLayouts["vec2"+short] = typeLayout{8, 8}
		scalarLayouts["vec3<"+scalar+">"] = typeLayout{12, 16}
		scalarLayouts["vec3"+short] = typeLayout{12, 16}
		scalarLayouts["vec4<"+scalar+">"] = typeLayout{16, 16}
		scalarLayouts["vec4"+short] = typeLayout{16, 16}
	}
	scalarLayouts["vec2<f16>"] = typeLayout{4, 4}
	scalarLayouts["vec2h"] = typeLayout{4, 4}
	scalarLayouts["vec4<f16>"] = typeLayout{8, 8}
	scalarLayouts["vec4h"] = typeLayout{8, 8}
}

func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// resolveLayout resolves typeName against the scalar table and the already-sized structs.
// A runtime-sized array resolves to the stride of one element.
func resolveLayout(typeName string, structs map[string]typeLayout) (typeLayout, bool) {
	if l, ok := scalarLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return typeLayout{}, false
	}

	elemName, countStr, sized := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
	elem, ok := resolveLayout(strings.TrimSpace(elemName), structs)
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(elem.align, elem.size)
	if !sized {
		return typeLayout{stride, elem.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{n * stride, elem.align}, true
}

// structLayout lays out the fields of s in order. Builtin fields are not part of memory.
func structLayout(s wgslStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range s.fields {
		if f.builtin {
			continue
		}
		fl, ok := resolveLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return typeLayout{roundUp(maxAlign, offset), maxAlign}, true
}

// structLayouts sizes every struct, retrying until nested struct references settle.
func structLayouts(structs []wgslStruct) map[string]typeLayout {
	known := make(map[string]typeLayout, len(structs))
	pending := append([]wgslStruct(nil), structs...)
	for len(pending) > 0 {
		var next []wgslStruct
		for _, s := range pending {
			if l, ok := structLayout(s, known); ok {
				known[s.name] = l
			} else {
				next = append(next, s)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return known
}
