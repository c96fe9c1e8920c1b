package shader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// ShaderType identifies the pipeline stage a shader is written for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used in pair with a vertex shader.
	ShaderTypeFragment
)

// Stage returns the shader stage flag that bindings declared by this shader type are visible to.
func (t ShaderType) Stage() gputypes.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return gputypes.ShaderStageVertex
	case ShaderTypeFragment:
		return gputypes.ShaderStageFragment
	default:
		return gputypes.ShaderStageCompute
	}
}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "compute"
	}
}

// Shader is a validated WGSL shader together with the resources and vertex inputs reflected from
// its source. Pipelines compare their declared layouts against it before creating device objects.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage the shader was loaded for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// EntryPoint returns the name of the entry point function for the shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Bindings returns every @group/@binding resource the shader declares, sorted by group and
	// binding. Each entry's visibility is the shader's stage.
	//
	// Returns:
	//   - []Binding: the declared resources
	Bindings() []Binding

	// BindGroupLayoutDescriptors groups Bindings by group index.
	//
	// Returns:
	//   - map[int]gputypes.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]gputypes.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if nothing is declared there
	BindGroupVarName(group, binding uint32) string

	// VertexInputs returns the @location inputs of the vertex entry point, sorted by location.
	// Fragment and compute shaders return nil.
	//
	// Returns:
	//   - []VertexInput: the vertex inputs
	VertexInputs() []VertexInput

	// WorkgroupSize returns the workgroup dimensions of a compute entry point, or [0, 0, 0].
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the descriptor used to create the device shader module.
	//
	// Returns:
	//   - *gpu.ShaderModuleDescriptor: the descriptor holding the WGSL code and label
	Module() *gpu.ShaderModuleDescriptor
}

type shader struct {
	key           string
	source        string
	shaderType    ShaderType
	entryPoint    string
	bindings      []Binding
	vertexInputs  []VertexInput
	workgroupSize [3]uint32
}

var _ Shader = &shader{}

// NewShader validates source and reflects its bindings and vertex inputs.
//
// Parameters:
//   - key: the unique identifier of the shader, also used as the module label
//   - shaderType: the stage to load the shader for
//   - source: the WGSL source
//
// Returns:
//   - Shader: the loaded shader
//   - error: ErrValidation if the source is not valid WGSL or has no entry point for shaderType
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	module, err := compile(key, source)
	if err != nil {
		return nil, err
	}
	ep, ok := findEntryPoint(module, shaderType)
	if !ok {
		return nil, fmt.Errorf("%w: %s: no %s entry point", ErrValidation, key, shaderType)
	}

	s := &shader{
		key:        key,
		source:     source,
		shaderType: shaderType,
		entryPoint: ep.Name,
		bindings:   reflectBindings(module, source, shaderType.Stage()),
	}
	switch shaderType {
	case ShaderTypeVertex:
		s.vertexInputs = reflectVertexInputs(source, ep.Name)
	case ShaderTypeCompute:
		s.workgroupSize = ep.Workgroup
	}
	return s, nil
}

// LoadShader reads a WGSL file and passes it to NewShader.
//
// Parameters:
//   - key: the unique identifier of the shader
//   - shaderType: the stage to load the shader for
//   - path: the file path of the WGSL source
//
// Returns:
//   - Shader: the loaded shader
//   - error: an error if the file cannot be read or the source is invalid
func LoadShader(key string, shaderType ShaderType, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: read %s: %w", path, err)
	}
	return NewShader(key, shaderType, string(data))
}

func (s *shader) Key() string            { return s.key }
func (s *shader) Source() string         { return s.source }
func (s *shader) ShaderType() ShaderType { return s.shaderType }
func (s *shader) EntryPoint() string     { return s.entryPoint }

func (s *shader) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

func (s *shader) BindGroupLayoutDescriptors() map[int]gputypes.BindGroupLayoutDescriptor {
	out := make(map[int]gputypes.BindGroupLayoutDescriptor)
	for _, b := range s.bindings {
		d := out[int(b.Group)]
		d.Label = fmt.Sprintf("%s group %d", s.key, b.Group)
		d.Entries = append(d.Entries, b.Entry)
		out[int(b.Group)] = d
	}
	return out
}

func (s *shader) BindGroupVarName(group, binding uint32) string {
	for _, b := range s.bindings {
		if b.Group == group && b.Entry.Binding == binding {
			return b.Name
		}
	}
	return ""
}

func (s *shader) VertexInputs() []VertexInput { return s.vertexInputs }
func (s *shader) WorkgroupSize() [3]uint32    { return s.workgroupSize }

func (s *shader) Module() *gpu.ShaderModuleDescriptor {
	return &gpu.ShaderModuleDescriptor{Label: s.key, WGSL: s.source}
}
