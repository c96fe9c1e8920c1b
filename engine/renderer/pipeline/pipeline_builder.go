package pipeline

import "github.com/gogpu/gputypes"

// PipelineBuilderOption is a functional option used to configure a Builder.
type PipelineBuilderOption func(*Builder)

// Builder holds everything needed to create a render pipeline except the vertex type and the
// output format, which are supplied to Build.
type Builder struct {
	key string

	vertexSource, fragmentSource string
	vertexEntry, fragmentEntry   string
	groups                       []*BindGroupLayoutBuilder

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthFormat         gputypes.TextureFormat
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	blendState          gputypes.BlendState
	cullMode            gputypes.CullMode
	topology            gputypes.PrimitiveTopology
	frontFace           gputypes.FrontFace
	writeMask           gputypes.ColorWriteMask
	sampleCount         uint32
}

// NewPipelineBuilder creates a Builder with depth testing and writing against Depth32Float, no
// blending, no culling, a counter-clockwise triangle list, and all color channels written.
//
// Parameters:
//   - key: the unique key of the pipeline, used for labels
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - *Builder: the configured builder
func NewPipelineBuilder(key string, opts ...PipelineBuilderOption) *Builder {
	b := &Builder{
		key:               key,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthFormat:       gputypes.TextureFormatDepth32Float,
		blendState:        gputypes.BlendStateAlpha(),
		cullMode:          gputypes.CullModeNone,
		topology:          gputypes.PrimitiveTopologyTriangleList,
		frontFace:         gputypes.FrontFaceCCW,
		writeMask:         gputypes.ColorWriteMaskAll,
		sampleCount:       1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// With applies more options to an existing builder.
func (b *Builder) With(opts ...PipelineBuilderOption) *Builder {
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithVertexSource sets the WGSL source of the vertex stage.
//
// Parameters:
//   - source: the WGSL source containing a @vertex entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex source
func WithVertexSource(source string) PipelineBuilderOption {
	return func(b *Builder) {
		b.vertexSource = source
	}
}

// WithFragmentSource sets the WGSL source of the fragment stage. A pipeline without a fragment
// source writes depth only.
//
// Parameters:
//   - source: the WGSL source containing a @fragment entry point
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment source
func WithFragmentSource(source string) PipelineBuilderOption {
	return func(b *Builder) {
		b.fragmentSource = source
	}
}

// WithVertexEntryPoint overrides the vertex entry point found in the vertex source.
func WithVertexEntryPoint(name string) PipelineBuilderOption {
	return func(b *Builder) {
		b.vertexEntry = name
	}
}

// WithFragmentEntryPoint overrides the fragment entry point found in the fragment source.
func WithFragmentEntryPoint(name string) PipelineBuilderOption {
	return func(b *Builder) {
		b.fragmentEntry = name
	}
}

// WithBindGroupLayout appends a bind group. The n-th call declares @group(n).
//
// Parameters:
//   - layout: the slots of the group
//
// Returns:
//   - PipelineBuilderOption: a function that appends the group
func WithBindGroupLayout(layout *BindGroupLayoutBuilder) PipelineBuilderOption {
	return func(b *Builder) {
		b.groups = append(b.groups, layout)
	}
}

// WithDepthTestEnabled sets whether fragments are tested against the depth attachment.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(b *Builder) {
		b.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether passing fragments write the depth attachment.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(b *Builder) {
		b.depthWriteEnabled = enabled
	}
}

// WithDepthFormat sets the format of the depth attachment the pipeline renders with.
// gputypes.TextureFormatUndefined builds a pipeline without depth state.
//
// Parameters:
//   - format: a depth texture format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth format
func WithDepthFormat(format gputypes.TextureFormat) PipelineBuilderOption {
	return func(b *Builder) {
		b.depthFormat = format
	}
}

// WithDepthBias sets the depth bias parameters.
//
// Parameters:
//   - bias: the constant depth bias to apply
//   - slopeScale: the slope scale depth bias to apply
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth bias parameters
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(b *Builder) {
		b.depthBias = bias
		b.depthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled sets whether the color target blends with the blend state.
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(b *Builder) {
		b.blendEnabled = enabled
	}
}

// WithBlendState sets the blend state used when blending is enabled. The default is
// gputypes.BlendStateAlpha.
func WithBlendState(state gputypes.BlendState) PipelineBuilderOption {
	return func(b *Builder) {
		b.blendState = state
	}
}

// WithCullMode sets the cull mode.
func WithCullMode(mode gputypes.CullMode) PipelineBuilderOption {
	return func(b *Builder) {
		b.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology gputypes.PrimitiveTopology) PipelineBuilderOption {
	return func(b *Builder) {
		b.topology = topology
	}
}

// WithFrontFace sets the front face winding order.
func WithFrontFace(frontFace gputypes.FrontFace) PipelineBuilderOption {
	return func(b *Builder) {
		b.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask.
func WithWriteMask(writeMask gputypes.ColorWriteMask) PipelineBuilderOption {
	return func(b *Builder) {
		b.writeMask = writeMask
	}
}

// WithSampleCount sets the multisample count of the color and depth targets.
func WithSampleCount(count uint32) PipelineBuilderOption {
	return func(b *Builder) {
		b.sampleCount = max(count, 1)
	}
}

// Key returns the key the pipeline will be built and cached under.
func (b *Builder) Key() string { return b.key }

// Groups returns the declared entries of every bind group, indexed by group.
func (b *Builder) Groups() [][]gputypes.BindGroupLayoutEntry {
	out := make([][]gputypes.BindGroupLayoutEntry, len(b.groups))
	for i, g := range b.groups {
		out[i] = g.Entries()
	}
	return out
}
