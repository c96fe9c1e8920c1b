package texture

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/mirror"
	"github.com/gogpu/gputypes"
)

// GPUTexture is a sampled 2D texture together with its default view.
type GPUTexture struct {
	texture gpu.Texture
	view    gpu.TextureView
}

// Texture returns the device texture.
func (t *GPUTexture) Texture() gpu.Texture { return t.texture }

// View returns the default full-resource view.
func (t *GPUTexture) View() gpu.TextureView { return t.view }

// Release frees the view and the texture.
func (t *GPUTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// Matches reports whether the texture can hold img without reallocating.
func (t *GPUTexture) Matches(img *ImageData) bool {
	return t.texture.Width() == img.Width && t.texture.Height() == img.Height && t.texture.Format() == img.Format()
}

// Item mirrors ImageData into a GPUTexture. An update whose size or format differs from the
// existing texture reallocates it; otherwise the pixels are written in place through the queue.
//
// A reallocation returns a new *GPUTexture with a new view, and bind groups built on the old view
// must be rebuilt. Callers detect it by comparing the pointer GetUpdateGPU returns with the one
// they bound. The old texture stays alive until the encoder passed to the update is submitted or
// released, so a bind group used earlier in the same frame remains valid.
type Item struct {
	Label string
}

var _ mirror.GPUItem[ImageData, *GPUTexture] = Item{}

// NewMirror wraps img in a Mirror whose device side is a sampled texture.
//
// Parameters:
//   - label: the debug label of the texture
//   - img: the pixel data to mirror
//
// Returns:
//   - *mirror.Mirror[ImageData, *GPUTexture]: the texture mirror
func NewMirror(label string, img ImageData) *mirror.Mirror[ImageData, *GPUTexture] {
	return mirror.New[ImageData, *GPUTexture](img, Item{Label: label})
}

func (it Item) CreateGPU(logical *ImageData, device gpu.Device) (*GPUTexture, error) {
	if logical.Width == 0 || logical.Height == 0 {
		return nil, fmt.Errorf("texture %q: empty image", it.Label)
	}
	if want := int(logical.Width) * int(logical.Height) * 4; len(logical.Pixels) != want {
		return nil, fmt.Errorf("texture %q: %d pixel bytes for %dx%d, want %d", it.Label, len(logical.Pixels), logical.Width, logical.Height, want)
	}

	tex, err := device.CreateTexture(&gputypes.TextureDescriptor{
		Label:         it.Label,
		Size:          extent(logical),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        logical.Format(),
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", it.Label, err)
	}
	view, err := tex.CreateView()
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("texture %q: view: %w", it.Label, err)
	}
	g := &GPUTexture{texture: tex, view: view}
	if err := write(device, g, logical); err != nil {
		g.Release()
		return nil, fmt.Errorf("texture %q: %w", it.Label, err)
	}
	return g, nil
}

func (it Item) UpdateGPU(g **GPUTexture, logical *ImageData, device gpu.Device, encoder gpu.CommandEncoder) error {
	if (*g).Matches(logical) {
		if err := write(device, *g, logical); err != nil {
			return fmt.Errorf("texture %q: %w", it.Label, err)
		}
		return nil
	}

	replacement, err := it.CreateGPU(logical, device)
	if err != nil {
		return err
	}
	if encoder != nil {
		encoder.DeferRelease(*g)
	} else {
		(*g).Release()
	}
	*g = replacement
	return nil
}

func write(device gpu.Device, g *GPUTexture, img *ImageData) error {
	return device.Queue().WriteTexture(g.texture, img.Pixels,
		gputypes.TextureDataLayout{BytesPerRow: img.BytesPerRow(), RowsPerImage: img.Height},
		extent(img),
	)
}

func extent(img *ImageData) gputypes.Extent3D {
	return gputypes.Extent3D{Width: img.Width, Height: img.Height, DepthOrArrayLayers: 1}
}
