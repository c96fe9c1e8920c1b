package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/gogpu/gputypes"
)

// DepthAttachment is a depth texture sized to a render target. It is reallocated when the
// target is resized.
type DepthAttachment struct {
	label   string
	format  gputypes.TextureFormat
	samples uint32
	texture gpu.Texture
	view    gpu.TextureView
}

// NewDepthAttachment allocates a width x height depth texture.
//
// Parameters:
//   - device: the device to allocate on
//   - format: a depth or depth-stencil format
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - *DepthAttachment: the attachment
//   - error: an error if format has no depth aspect or the device rejects the texture
func NewDepthAttachment(device gpu.Device, format gputypes.TextureFormat, width, height uint32) (*DepthAttachment, error) {
	return NewMultisampleDepthAttachment(device, format, width, height, 1)
}

// NewMultisampleDepthAttachment allocates a depth texture for a multisampled color target. The
// sample count must match the color target's.
func NewMultisampleDepthAttachment(device gpu.Device, format gputypes.TextureFormat, width, height, samples uint32) (*DepthAttachment, error) {
	if !format.IsDepthStencil() {
		return nil, fmt.Errorf("depth attachment: %w: %v", ErrUnsupportedFormat, format)
	}
	d := &DepthAttachment{label: "depth", format: format, samples: max(samples, 1)}
	if err := d.Resize(device, width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Resize reallocates the texture at the new size. It does nothing when the size is unchanged.
//
// Parameters:
//   - device: the device that owns the attachment
//   - width: the new width in pixels
//   - height: the new height in pixels
//
// Returns:
//   - error: an error if the new texture cannot be created, in which case the old one is kept
func (d *DepthAttachment) Resize(device gpu.Device, width, height uint32) error {
	if d.texture != nil && d.texture.Width() == width && d.texture.Height() == height {
		return nil
	}
	usage := gputypes.TextureUsageRenderAttachment
	if d.samples == 1 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	tex, err := device.CreateTexture(&gputypes.TextureDescriptor{
		Label:         d.label,
		Size:          gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   d.samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.format,
		Usage:         usage,
	})
	if err != nil {
		return fmt.Errorf("depth attachment %dx%d: %w", width, height, err)
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Release()
		return fmt.Errorf("depth attachment view: %w", err)
	}
	d.Release()
	d.texture, d.view = tex, view
	return nil
}

// View returns the view to attach to a render pass.
func (d *DepthAttachment) View() gpu.TextureView { return d.view }

// Texture returns the depth texture.
func (d *DepthAttachment) Texture() gpu.Texture { return d.texture }

// SampleCount returns the number of samples per texel.
func (d *DepthAttachment) SampleCount() uint32 { return d.samples }

// Format returns the depth format.
func (d *DepthAttachment) Format() gputypes.TextureFormat { return d.format }

// Release frees the view and the texture.
func (d *DepthAttachment) Release() {
	if d.view != nil {
		d.view.Release()
		d.view = nil
	}
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}
