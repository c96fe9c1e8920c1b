package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

var (
	// ErrBindingMismatch is returned when declared bind group layouts do not cover the resources
	// a shader uses.
	ErrBindingMismatch = errors.New("shader: binding mismatch")

	// ErrVertexLayoutMismatch is returned when a vertex buffer layout does not provide the inputs
	// of a vertex shader.
	ErrVertexLayoutMismatch = errors.New("shader: vertex layout mismatch")
)

// CheckBindings verifies that every resource s declares appears in groups at the same group and
// binding, with a compatible kind and a visibility that includes the shader's stage. Layout entries
// the shader does not use are allowed.
//
// Parameters:
//   - s: the shader to check
//   - groups: the declared layout entries, indexed by group
//
// Returns:
//   - error: an error wrapping ErrBindingMismatch describing the first mismatch, or nil
func CheckBindings(s Shader, groups [][]gputypes.BindGroupLayoutEntry) error {
	stage := s.ShaderType().Stage()
	for _, b := range s.Bindings() {
		if int(b.Group) >= len(groups) {
			return fmt.Errorf("%w: %s uses %q at group %d, pipeline declares %d groups", ErrBindingMismatch, s.Key(), b.Name, b.Group, len(groups))
		}
		declared, ok := findEntry(groups[b.Group], b.Entry.Binding)
		if !ok {
			return fmt.Errorf("%w: %s uses %q at group %d binding %d, which is not declared", ErrBindingMismatch, s.Key(), b.Name, b.Group, b.Entry.Binding)
		}
		if declared.Visibility&stage == 0 {
			return fmt.Errorf("%w: %s uses %q at group %d binding %d, declared visibility %v excludes %s", ErrBindingMismatch, s.Key(), b.Name, b.Group, b.Entry.Binding, declared.Visibility, s.ShaderType())
		}
		if err := compatible(declared, b.Entry); err != nil {
			return fmt.Errorf("%w: %s %q at group %d binding %d: %v", ErrBindingMismatch, s.Key(), b.Name, b.Group, b.Entry.Binding, err)
		}
	}
	return nil
}

func findEntry(entries []gputypes.BindGroupLayoutEntry, binding uint32) (gputypes.BindGroupLayoutEntry, bool) {
	for _, e := range entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return gputypes.BindGroupLayoutEntry{}, false
}

// compatible reports why the declared entry cannot serve what the shader declares.
func compatible(declared, used gputypes.BindGroupLayoutEntry) error {
	switch {
	case used.Buffer != nil:
		if declared.Buffer == nil {
			return fmt.Errorf("shader expects a %v buffer, layout declares %s", used.Buffer.Type, kindOf(declared))
		}
		if declared.Buffer.Type != used.Buffer.Type {
			return fmt.Errorf("buffer type %v, layout declares %v", used.Buffer.Type, declared.Buffer.Type)
		}
		if declared.Buffer.MinBindingSize != 0 && declared.Buffer.MinBindingSize < used.Buffer.MinBindingSize {
			return fmt.Errorf("shader reads %d bytes, layout guarantees %d", used.Buffer.MinBindingSize, declared.Buffer.MinBindingSize)
		}
	case used.Sampler != nil:
		if declared.Sampler == nil {
			return fmt.Errorf("shader expects a sampler, layout declares %s", kindOf(declared))
		}
		cmpUsed := used.Sampler.Type == gputypes.SamplerBindingTypeComparison
		cmpDeclared := declared.Sampler.Type == gputypes.SamplerBindingTypeComparison
		if cmpUsed != cmpDeclared {
			return fmt.Errorf("sampler type %v, layout declares %v", used.Sampler.Type, declared.Sampler.Type)
		}
	case used.Texture != nil:
		if declared.Texture == nil {
			return fmt.Errorf("shader expects a texture, layout declares %s", kindOf(declared))
		}
		if declared.Texture.ViewDimension != used.Texture.ViewDimension || declared.Texture.Multisampled != used.Texture.Multisampled {
			return fmt.Errorf("texture view %v, layout declares %v", used.Texture.ViewDimension, declared.Texture.ViewDimension)
		}
		if !sampleTypeCompatible(declared.Texture.SampleType, used.Texture.SampleType) {
			return fmt.Errorf("sample type %v, layout declares %v", used.Texture.SampleType, declared.Texture.SampleType)
		}
	case used.StorageTexture != nil:
		if declared.StorageTexture == nil {
			return fmt.Errorf("shader expects a storage texture, layout declares %s", kindOf(declared))
		}
		if *declared.StorageTexture != *used.StorageTexture {
			return fmt.Errorf("storage texture %+v, layout declares %+v", *used.StorageTexture, *declared.StorageTexture)
		}
	}
	return nil
}

func sampleTypeCompatible(declared, used gputypes.TextureSampleType) bool {
	if declared == used {
		return true
	}
	return used == gputypes.TextureSampleTypeFloat && declared == gputypes.TextureSampleTypeUnfilterableFloat
}

func kindOf(e gputypes.BindGroupLayoutEntry) string {
	switch {
	case e.Buffer != nil:
		return "a buffer"
	case e.Sampler != nil:
		return "a sampler"
	case e.Texture != nil:
		return "a texture"
	case e.StorageTexture != nil:
		return "a storage texture"
	}
	return "nothing"
}

// CheckVertexLayout verifies that layouts provide every @location input of the vertex shader s
// with a format of the same component kind and count.
//
// Parameters:
//   - s: the vertex shader to check
//   - layouts: the vertex buffer layouts the pipeline will be created with
//
// Returns:
//   - error: an error wrapping ErrVertexLayoutMismatch describing the first mismatch, or nil
func CheckVertexLayout(s Shader, layouts []gputypes.VertexBufferLayout) error {
	provided := make(map[uint32]gputypes.VertexFormat)
	for _, l := range layouts {
		for _, a := range l.Attributes {
			if _, dup := provided[a.ShaderLocation]; dup {
				return fmt.Errorf("%w: location %d is provided twice", ErrVertexLayoutMismatch, a.ShaderLocation)
			}
			provided[a.ShaderLocation] = a.Format
		}
	}

	for _, in := range s.VertexInputs() {
		format, ok := provided[in.Location]
		if !ok {
			return fmt.Errorf("%w: %s input %q at location %d has no vertex attribute", ErrVertexLayoutMismatch, s.Key(), in.Name, in.Location)
		}
		want, ok := wgslShapes[in.TypeName]
		if !ok {
			return fmt.Errorf("%w: %s input %q has unsupported type %s", ErrVertexLayoutMismatch, s.Key(), in.Name, in.TypeName)
		}
		if got := formatShape(format); got != want {
			return fmt.Errorf("%w: %s input %q at location %d is %s, attribute format is %v", ErrVertexLayoutMismatch, s.Key(), in.Name, in.Location, in.TypeName, format)
		}
	}
	return nil
}

type componentKind int

const (
	kindFloat componentKind = iota + 1
	kindSint
	kindUint
)

// shape is the component kind and count a vertex value presents to the shader.
type shape struct {
	kind  componentKind
	count int
}

var wgslShapes = map[string]shape{}

func init() {
	for scalar, k := range map[string]componentKind{"f32": kindFloat, "f16": kindFloat, "i32": kindSint, "u32": kindUint} {
		wgslShapes[scalar] = shape{k, 1}
		for n := 2; n <= 4; n++ {
			wgslShapes[fmt.Sprintf("vec%d<%s>", n, scalar)] = shape{k, n}
			wgslShapes[fmt.Sprintf("vec%d%c", n, shortSuffix(scalar))] = shape{k, n}
		}
	}
}

func shortSuffix(scalar string) byte {
	if scalar == "f16" {
		return 'h'
	}
	return scalar[0]
}

func formatShape(f gputypes.VertexFormat) shape {
	switch f {
	case gputypes.VertexFormatFloat32:
		return shape{kindFloat, 1}
	case gputypes.VertexFormatFloat32x2, gputypes.VertexFormatFloat16x2,
		gputypes.VertexFormatUnorm8x2, gputypes.VertexFormatSnorm8x2,
		gputypes.VertexFormatUnorm16x2, gputypes.VertexFormatSnorm16x2:
		return shape{kindFloat, 2}
	case gputypes.VertexFormatFloat32x3:
		return shape{kindFloat, 3}
	case gputypes.VertexFormatFloat32x4, gputypes.VertexFormatFloat16x4,
		gputypes.VertexFormatUnorm8x4, gputypes.VertexFormatSnorm8x4,
		gputypes.VertexFormatUnorm16x4, gputypes.VertexFormatSnorm16x4,
		gputypes.VertexFormatUnorm1010102:
		return shape{kindFloat, 4}
	case gputypes.VertexFormatSint32:
		return shape{kindSint, 1}
	case gputypes.VertexFormatSint32x2, gputypes.VertexFormatSint8x2, gputypes.VertexFormatSint16x2:
		return shape{kindSint, 2}
	case gputypes.VertexFormatSint32x3:
		return shape{kindSint, 3}
	case gputypes.VertexFormatSint32x4, gputypes.VertexFormatSint8x4, gputypes.VertexFormatSint16x4:
		return shape{kindSint, 4}
	case gputypes.VertexFormatUint32:
		return shape{kindUint, 1}
	case gputypes.VertexFormatUint32x2, gputypes.VertexFormatUint8x2, gputypes.VertexFormatUint16x2:
		return shape{kindUint, 2}
	case gputypes.VertexFormatUint32x3:
		return shape{kindUint, 3}
	case gputypes.VertexFormatUint32x4, gputypes.VertexFormatUint8x4, gputypes.VertexFormatUint16x4:
		return shape{kindUint, 4}
	}
	return shape{}
}
