package bind_group

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

type resourceKind int

const (
	kindBuffer resourceKind = iota + 1
	kindTexture
	kindSampler
)

func (k resourceKind) String() string {
	switch k {
	case kindBuffer:
		return "buffer"
	case kindTexture:
		return "texture"
	case kindSampler:
		return "sampler"
	}
	return "unknown"
}

// resource is one bound object. Size 0 binds a buffer from offset to its end.
type resource struct {
	kind    resourceKind
	buffer  gpu.Buffer
	offset  uint64
	size    uint64
	view    gpu.TextureView
	sampler gpu.Sampler
}

// Builder collects the resources of one bind group in the order of the layout's slots.
type Builder struct {
	label     string
	resources []resource
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Label sets the debug label of the bind group.
func (b *Builder) Label(label string) *Builder {
	b.label = label
	return b
}

// Buffer binds the whole of buf to the next slot.
//
// Parameters:
//   - buf: the buffer to bind
//
// Returns:
//   - *Builder: the builder for chaining
func (b *Builder) Buffer(buf gpu.Buffer) *Builder {
	return b.BufferRange(buf, 0, 0)
}

// BufferRange binds size bytes of buf starting at offset to the next slot. A size of 0 binds the
// rest of the buffer.
//
// Parameters:
//   - buf: the buffer to bind
//   - offset: the byte offset of the bound range
//   - size: the byte size of the bound range, or 0
//
// Returns:
//   - *Builder: the builder for chaining
func (b *Builder) BufferRange(buf gpu.Buffer, offset, size uint64) *Builder {
	b.resources = append(b.resources, resource{kind: kindBuffer, buffer: buf, offset: offset, size: size})
	return b
}

// Texture binds view to the next slot.
func (b *Builder) Texture(view gpu.TextureView) *Builder {
	b.resources = append(b.resources, resource{kind: kindTexture, view: view})
	return b
}

// Sampler binds s to the next slot.
func (b *Builder) Sampler(s gpu.Sampler) *Builder {
	b.resources = append(b.resources, resource{kind: kindSampler, sampler: s})
	return b
}

// Build creates a bind group for layout from the collected resources, taken in slot order.
//
// Build panics if the number of resources differs from the number of layout slots, or if a
// resource's kind differs from the kind its slot declares. Both are programming errors in the
// order of builder calls.
//
// Parameters:
//   - device: the device to create the bind group on
//   - layout: the layout the bind group must satisfy
//
// Returns:
//   - gpu.BindGroup: the created bind group
//   - error: an error if the device rejects the bind group
func (b *Builder) Build(device gpu.Device, layout gpu.BindGroupLayout) (gpu.BindGroup, error) {
	slots := layout.Entries()
	if len(slots) != len(b.resources) {
		panic(fmt.Sprintf("bind_group: %q has %d resources, layout declares %d slots", b.label, len(b.resources), len(slots)))
	}

	entries := make([]gpu.BindGroupEntry, len(slots))
	for i, slot := range slots {
		r := b.resources[i]
		if want := slotKind(slot); want != r.kind {
			panic(fmt.Sprintf("bind_group: %q resource %d is a %s, slot %d declares a %s", b.label, i, r.kind, slot.Binding, want))
		}
		entries[i] = gpu.BindGroupEntry{
			Binding:     slot.Binding,
			Buffer:      r.buffer,
			Offset:      r.offset,
			Size:        r.size,
			TextureView: r.view,
			Sampler:     r.sampler,
		}
	}

	group, err := device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:   b.label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind_group: %q: %w", b.label, err)
	}
	return group, nil
}

func slotKind(e gputypes.BindGroupLayoutEntry) resourceKind {
	switch {
	case e.Buffer != nil:
		return kindBuffer
	case e.Texture != nil, e.StorageTexture != nil:
		return kindTexture
	case e.Sampler != nil:
		return kindSampler
	}
	return 0
}
