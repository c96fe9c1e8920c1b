package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// SamplerOption adjusts a sampler descriptor before creation.
type SamplerOption func(*gputypes.SamplerDescriptor)

// WithAddressMode sets the addressing mode of all three coordinates.
func WithAddressMode(mode gputypes.AddressMode) SamplerOption {
	return func(d *gputypes.SamplerDescriptor) {
		d.AddressModeU, d.AddressModeV, d.AddressModeW = mode, mode, mode
	}
}

// WithFilter sets the magnification and minification filters.
func WithFilter(mag, minify gputypes.FilterMode) SamplerOption {
	return func(d *gputypes.SamplerDescriptor) {
		d.MagFilter, d.MinFilter = mag, minify
	}
}

// WithCompare makes a comparison sampler for depth textures.
func WithCompare(fn gputypes.CompareFunction) SamplerOption {
	return func(d *gputypes.SamplerDescriptor) {
		d.Compare = fn
	}
}

// NewSampler creates a sampler that clamps to the edge, magnifies linearly and minifies with the
// nearest texel, adjusted by opts.
//
// Parameters:
//   - device: the device to create the sampler on
//   - label: the debug label
//   - opts: options applied over the defaults
//
// Returns:
//   - gpu.Sampler: the created sampler
//   - error: an error if the device rejects the descriptor
func NewSampler(device gpu.Device, label string, opts ...SamplerOption) (gpu.Sampler, error) {
	desc := gputypes.DefaultSamplerDescriptor()
	desc.Label = label
	desc.MagFilter = gputypes.FilterModeLinear
	for _, opt := range opts {
		opt(&desc)
	}
	s, err := device.CreateSampler(&desc)
	if err != nil {
		return nil, fmt.Errorf("sampler %q: %w", label, err)
	}
	return s, nil
}
