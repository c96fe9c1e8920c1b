package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned when image bytes are in a format no registered decoder reads.
var ErrUnsupportedFormat = errors.New("texture: unsupported image format")

// ImageData is tightly packed RGBA8 pixel data, row-major with the top row first.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
	// SRGB uploads the pixels as sRGB-encoded rather than linear.
	SRGB bool
}

// NewImageData allocates a transparent black image of the given size.
func NewImageData(width, height uint32) ImageData {
	return ImageData{Width: width, Height: height, Pixels: make([]byte, int(width)*int(height)*4)}
}

// Decode reads a png, jpeg, bmp, tiff or webp image and converts it to RGBA8.
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - ImageData: the decoded pixels
//   - error: ErrUnsupportedFormat if no decoder recognizes the data, or the decoder's error
func Decode(r io.Reader) (ImageData, error) {
	img, _, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return ImageData{}, ErrUnsupportedFormat
	}
	if err != nil {
		return ImageData{}, fmt.Errorf("texture: decode: %w", err)
	}
	return FromImage(img), nil
}

// DecodeBytes is Decode over an in-memory encoded image.
func DecodeBytes(data []byte) (ImageData, error) {
	return Decode(bytes.NewReader(data))
}

// LoadImage decodes the image file at path.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - ImageData: the decoded pixels
//   - error: an error if the file cannot be opened or decoded
func LoadImage(path string) (ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return ImageData{}, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer file.Close()

	data, err := Decode(file)
	if err != nil {
		return ImageData{}, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// FromImage copies any image.Image into RGBA8.
func FromImage(img image.Image) ImageData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return ImageData{Width: uint32(bounds.Dx()), Height: uint32(bounds.Dy()), Pixels: rgba.Pix}
}

// Image returns an *image.RGBA sharing the pixel memory of d.
func (d ImageData) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    d.Pixels,
		Stride: int(d.Width) * 4,
		Rect:   image.Rect(0, 0, int(d.Width), int(d.Height)),
	}
}

// Resized returns a copy of d scaled to width x height with Catmull-Rom filtering.
//
// Parameters:
//   - width: the new width in pixels
//   - height: the new height in pixels
//
// Returns:
//   - ImageData: the scaled copy
func (d ImageData) Resized(width, height uint32) ImageData {
	out := NewImageData(width, height)
	out.SRGB = d.SRGB
	xdraw.CatmullRom.Scale(out.Image(), out.Image().Bounds(), d.Image(), d.Image().Bounds(), xdraw.Src, nil)
	return out
}

// At returns the pixel at (x, y).
func (d ImageData) At(x, y uint32) color.RGBA {
	i := (int(y)*int(d.Width) + int(x)) * 4
	return color.RGBA{R: d.Pixels[i], G: d.Pixels[i+1], B: d.Pixels[i+2], A: d.Pixels[i+3]}
}

// Format is the texture format ImageData uploads as.
func (d ImageData) Format() gputypes.TextureFormat {
	if d.SRGB {
		return gputypes.TextureFormatRGBA8UnormSrgb
	}
	return gputypes.TextureFormatRGBA8Unorm
}

// BytesPerRow is the tight row pitch of the pixel data.
func (d ImageData) BytesPerRow() uint32 { return d.Width * 4 }
