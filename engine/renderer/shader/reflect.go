package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

// Binding is one @group(G) @binding(B) resource declared by a shader.
type Binding struct {
	Group uint32
	Name  string
	Entry gputypes.BindGroupLayoutEntry
}

// VertexInput is one @location input of a vertex entry point.
type VertexInput struct {
	Location uint32
	Name     string
	TypeName string
}

type wgslField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type wgslStruct struct {
	name   string
	fields []wgslField
}

var (
	structRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\s*\w+\s*\)`)
	attrRegex     = regexp.MustCompile(`@\w+(?:\([^)]*\))?`)
	resourceRegex = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)+var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;=]+?)\s*[;=]`)
)

var sampledDims = map[string]gputypes.TextureViewDimension{
	"texture_1d":                    gputypes.TextureViewDimension1D,
	"texture_2d":                    gputypes.TextureViewDimension2D,
	"texture_2d_array":              gputypes.TextureViewDimension2DArray,
	"texture_3d":                    gputypes.TextureViewDimension3D,
	"texture_cube":                  gputypes.TextureViewDimensionCube,
	"texture_cube_array":            gputypes.TextureViewDimensionCubeArray,
	"texture_multisampled_2d":       gputypes.TextureViewDimension2D,
	"texture_depth_2d":              gputypes.TextureViewDimension2D,
	"texture_depth_2d_array":        gputypes.TextureViewDimension2DArray,
	"texture_depth_cube":            gputypes.TextureViewDimensionCube,
	"texture_depth_cube_array":      gputypes.TextureViewDimensionCubeArray,
	"texture_depth_multisampled_2d": gputypes.TextureViewDimension2D,
	"texture_storage_1d":            gputypes.TextureViewDimension1D,
	"texture_storage_2d":            gputypes.TextureViewDimension2D,
	"texture_storage_2d_array":      gputypes.TextureViewDimension2DArray,
	"texture_storage_3d":            gputypes.TextureViewDimension3D,
}

var sampleTypes = map[string]gputypes.TextureSampleType{
	"f32": gputypes.TextureSampleTypeFloat,
	"i32": gputypes.TextureSampleTypeSint,
	"u32": gputypes.TextureSampleTypeUint,
}

var storageAccess = map[string]gputypes.StorageTextureAccess{
	"write":      gputypes.StorageTextureAccessWriteOnly,
	"read":       gputypes.StorageTextureAccessReadOnly,
	"read_write": gputypes.StorageTextureAccessReadWrite,
}

var texelFormats = map[string]gputypes.TextureFormat{
	"rgba8unorm":  gputypes.TextureFormatRGBA8Unorm,
	"rgba8snorm":  gputypes.TextureFormatRGBA8Snorm,
	"rgba8uint":   gputypes.TextureFormatRGBA8Uint,
	"rgba8sint":   gputypes.TextureFormatRGBA8Sint,
	"rgba16uint":  gputypes.TextureFormatRGBA16Uint,
	"rgba16sint":  gputypes.TextureFormatRGBA16Sint,
	"rgba16float": gputypes.TextureFormatRGBA16Float,
	"r32uint":     gputypes.TextureFormatR32Uint,
	"r32sint":     gputypes.TextureFormatR32Sint,
	"r32float":    gputypes.TextureFormatR32Float,
	"rg32uint":    gputypes.TextureFormatRG32Uint,
	"rg32sint":    gputypes.TextureFormatRG32Sint,
	"rg32float":   gputypes.TextureFormatRG32Float,
	"rgba32uint":  gputypes.TextureFormatRGBA32Uint,
	"rgba32sint":  gputypes.TextureFormatRGBA32Sint,
	"rgba32float": gputypes.TextureFormatRGBA32Float,
	"bgra8unorm":  gputypes.TextureFormatBGRA8Unorm,
}

// reflectBindings collects every resource global of module, sorted by group then binding. Group,
// binding and address space come from the validated module; the declared type spelling comes from
// source. Each entry is visible to stage. Buffer entries carry the size of the bound type as
// MinBindingSize when it can be resolved.
func reflectBindings(module *ir.Module, source string, stage gputypes.ShaderStage) []Binding {
	clean := stripComments(source)
	sizes := structLayouts(parseStructs(clean))

	type decl struct{ space, typeName string }
	decls := make(map[string]decl)
	for _, m := range resourceRegex.FindAllStringSubmatch(clean, -1) {
		decls[m[2]] = decl{space: strings.TrimSpace(m[1]), typeName: strings.TrimSpace(m[3])}
	}

	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		d, ok := decls[gv.Name]
		if !ok {
			continue
		}
		entry := classify(gv.Binding.Binding, stage, addressSpace(gv, d.space), d.typeName)
		if entry.Buffer != nil {
			if l, ok := resolveLayout(d.typeName, sizes); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		out = append(out, Binding{Group: gv.Binding.Group, Name: gv.Name, Entry: entry})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Entry.Binding < out[j].Entry.Binding
	})
	return out
}

// addressSpace names the space of gv the way classify expects it. declared is the text between
// the angle brackets of the declaration and only decides the storage access mode.
func addressSpace(gv ir.GlobalVariable, declared string) string {
	switch gv.Space {
	case ir.SpaceUniform:
		return "uniform"
	case ir.SpaceStorage:
		if strings.Contains(declared, "read_write") {
			return "storage, read_write"
		}
		return "storage, read"
	default:
		return ""
	}
}

// classify builds the layout entry a declaration implies. addressSpace is empty for handle types.
func classify(binding uint32, stage gputypes.ShaderStage, addressSpace, typeName string) gputypes.BindGroupLayoutEntry {
	entry := gputypes.BindGroupLayoutEntry{Binding: binding, Visibility: stage}

	switch {
	case addressSpace == "uniform":
		entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		return entry
	case strings.HasPrefix(addressSpace, "storage"):
		t := gputypes.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			t = gputypes.BufferBindingTypeStorage
		}
		entry.Buffer = &gputypes.BufferBindingLayout{Type: t}
		return entry
	}

	base, params := splitTypeParams(typeName)
	switch {
	case typeName == "sampler":
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	case typeName == "sampler_comparison":
		entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeComparison}
	case strings.HasPrefix(base, "texture_storage_"):
		st := &gputypes.StorageTextureBindingLayout{ViewDimension: sampledDims[base]}
		format, access, _ := strings.Cut(params, ",")
		st.Format = texelFormats[strings.TrimSpace(format)]
		st.Access = storageAccess[strings.TrimSpace(access)]
		entry.StorageTexture = st
	case strings.HasPrefix(base, "texture_depth_"):
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeDepth,
			ViewDimension: sampledDims[base],
			Multisampled:  strings.Contains(base, "multisampled"),
		}
	case strings.HasPrefix(base, "texture_"):
		entry.Texture = &gputypes.TextureBindingLayout{
			SampleType:    sampleTypes[params],
			ViewDimension: sampledDims[base],
			Multisampled:  strings.Contains(base, "multisampled"),
		}
	}
	return entry
}

// reflectVertexInputs returns the @location inputs of the entry point named entry, sorted by
// location. Inputs may be declared directly as parameters or as fields of a struct parameter.
func reflectVertexInputs(source, entry string) []VertexInput {
	clean := stripComments(source)
	params, ok := functionParams(clean, entry)
	if !ok {
		return nil
	}
	structs := make(map[string]wgslStruct)
	for _, s := range parseStructs(clean) {
		structs[s.name] = s
	}

	var out []VertexInput
	for _, p := range splitTopLevel(params) {
		f, ok := parseField(p)
		if !ok || f.builtin {
			continue
		}
		if f.location >= 0 {
			out = append(out, VertexInput{Location: uint32(f.location), Name: f.name, TypeName: f.typeName})
			continue
		}
		if s, ok := structs[f.typeName]; ok {
			for _, sf := range s.fields {
				if sf.location >= 0 && !sf.builtin {
					out = append(out, VertexInput{Location: uint32(sf.location), Name: sf.name, TypeName: sf.typeName})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// functionParams returns the raw parameter list of fn name, matching parentheses so attributes
// like @location(0) inside the list are kept intact.
func functionParams(source, name string) (string, bool) {
	re := regexp.MustCompile(`\bfn\s+` + regexp.QuoteMeta(name) + `\s*\(`)
	loc := re.FindStringIndex(source)
	if loc == nil {
		return "", false
	}
	depth := 1
	for i := loc[1]; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return source[loc[1]:i], true
			}
		}
	}
	return "", false
}

func parseStructs(source string) []wgslStruct {
	matches := structRegex.FindAllStringSubmatch(source, -1)
	out := make([]wgslStruct, 0, len(matches))
	for _, m := range matches {
		s := wgslStruct{name: m[1]}
		for _, part := range splitTopLevel(m[2]) {
			if f, ok := parseField(part); ok {
				s.fields = append(s.fields, f)
			}
		}
		out = append(out, s)
	}
	return out
}

// parseField parses "[attributes] name: type" as found in struct bodies and parameter lists.
func parseField(decl string) (wgslField, bool) {
	decl = strings.TrimSpace(decl)
	if decl == "" {
		return wgslField{}, false
	}
	f := wgslField{location: -1, builtin: builtinRegex.MatchString(decl)}
	if m := locationRegex.FindStringSubmatch(decl); m != nil {
		f.location, _ = strconv.Atoi(m[1])
	}

	rest := strings.TrimSpace(attrRegex.ReplaceAllString(decl, ""))
	name, typeName, ok := strings.Cut(rest, ":")
	if !ok {
		return wgslField{}, false
	}
	f.name = strings.TrimSpace(name)
	f.typeName = strings.TrimSpace(typeName)
	if f.name == "" || f.typeName == "" {
		return wgslField{}, false
	}
	return f, true
}

// splitTypeParams splits "texture_2d<f32>" into "texture_2d" and "f32".
func splitTypeParams(typeName string) (string, string) {
	base, params, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return strings.TrimSpace(base), strings.TrimSpace(strings.TrimSuffix(params, ">"))
}

// splitTopLevel splits s at commas that are not nested in <> or ().
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(source[i:], "//"):
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth == 0:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
