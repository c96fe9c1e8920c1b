package pipeline

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
)

// BindGroupLayoutBuilder collects the slots of one bind group. Each slot holds exactly one
// resource kind and is visible to the given shader stages.
type BindGroupLayoutBuilder struct {
	entries []gputypes.BindGroupLayoutEntry
}

// NewBindGroupLayoutBuilder returns an empty layout builder.
func NewBindGroupLayoutBuilder() *BindGroupLayoutBuilder {
	return &BindGroupLayoutBuilder{}
}

// UniformBuffer declares a uniform buffer at slot.
//
// Parameters:
//   - slot: the @binding index
//   - visibility: the shader stages that read the buffer
//
// Returns:
//   - *BindGroupLayoutBuilder: the builder for chaining
func (b *BindGroupLayoutBuilder) UniformBuffer(slot uint32, visibility gputypes.ShaderStages) *BindGroupLayoutBuilder {
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
}

// StorageBuffer declares a storage buffer at slot.
//
// Parameters:
//   - slot: the @binding index
//   - visibility: the shader stages that access the buffer
//   - readOnly: whether the shader declares the buffer var<storage, read>
//
// Returns:
//   - *BindGroupLayoutBuilder: the builder for chaining
func (b *BindGroupLayoutBuilder) StorageBuffer(slot uint32, visibility gputypes.ShaderStages, readOnly bool) *BindGroupLayoutBuilder {
	t := gputypes.BufferBindingTypeStorage
	if readOnly {
		t = gputypes.BufferBindingTypeReadOnlyStorage
	}
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Buffer:     &gputypes.BufferBindingLayout{Type: t},
	})
}

// SampledTexture declares a filterable float texture_2d at slot.
//
// Parameters:
//   - slot: the @binding index
//   - visibility: the shader stages that sample the texture
//
// Returns:
//   - *BindGroupLayoutBuilder: the builder for chaining
func (b *BindGroupLayoutBuilder) SampledTexture(slot uint32, visibility gputypes.ShaderStages) *BindGroupLayoutBuilder {
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		},
	})
}

// DepthTexture declares a texture_depth_2d at slot.
func (b *BindGroupLayoutBuilder) DepthTexture(slot uint32, visibility gputypes.ShaderStages) *BindGroupLayoutBuilder {
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeDepth,
			ViewDimension: gputypes.TextureViewDimension2D,
		},
	})
}

// Sampler declares a filtering sampler at slot.
func (b *BindGroupLayoutBuilder) Sampler(slot uint32, visibility gputypes.ShaderStages) *BindGroupLayoutBuilder {
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	})
}

// ComparisonSampler declares a sampler_comparison at slot.
func (b *BindGroupLayoutBuilder) ComparisonSampler(slot uint32, visibility gputypes.ShaderStages) *BindGroupLayoutBuilder {
	return b.add(gputypes.BindGroupLayoutEntry{
		Binding:    slot,
		Visibility: visibility,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeComparison},
	})
}

// Entries returns the declared entries sorted by slot.
func (b *BindGroupLayoutBuilder) Entries() []gputypes.BindGroupLayoutEntry {
	out := make([]gputypes.BindGroupLayoutEntry, len(b.entries))
	copy(out, b.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Binding < out[j].Binding })
	return out
}

// add panics when slot is already declared; a group cannot hold two resources at one binding.
func (b *BindGroupLayoutBuilder) add(e gputypes.BindGroupLayoutEntry) *BindGroupLayoutBuilder {
	for _, existing := range b.entries {
		if existing.Binding == e.Binding {
			panic(fmt.Sprintf("pipeline: binding slot %d declared twice", e.Binding))
		}
	}
	b.entries = append(b.entries, e)
	return b
}
