package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/bmp"
)

func TestTexels(t *testing.T) {
	g := NewGenerator(2)
	img := g.Texels(3)
	if img.Width != 3 || img.Height != 3 || len(img.Pixels) != 36 {
		t.Fatalf("Texels(3) = %dx%d with %d bytes", img.Width, img.Height, len(img.Pixels))
	}

	tests := []struct {
		x, y uint32
		want uint8
	}{
		{0, 0, 0},    // (-2, -1) starts outside the escape radius
		{1, 1, 0xFF}, // (-0.5, 0) never escapes
		{2, 1, 1},    // (1, 0) escapes after one step
	}
	for _, tt := range tests {
		want := color.RGBA{R: tt.want, G: tt.want, B: tt.want, A: 0xFF}
		if got := img.At(tt.x, tt.y); got != want {
			t.Errorf("At(%d, %d) = %v, want %v", tt.x, tt.y, got, want)
		}
	}

	if diff := cmp.Diff(img, NewTexels(3)); diff != "" {
		t.Errorf("default generator differs (-want +got):\n%s", diff)
	}
}

func checker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 0xFF, A: 0xFF})
	img.Set(1, 0, color.RGBA{G: 0xFF, A: 0xFF})
	img.Set(0, 1, color.RGBA{B: 0xFF, A: 0xFF})
	img.Set(1, 1, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	return img
}

func TestDecode(t *testing.T) {
	var pngData, bmpData bytes.Buffer
	if err := png.Encode(&pngData, checker()); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpData, checker()); err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"png": pngData.Bytes(), "bmp": bmpData.Bytes()} {
		t.Run(name, func(t *testing.T) {
			img, err := DecodeBytes(data)
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if diff := cmp.Diff(checker().Pix, img.Pixels); diff != "" {
				t.Errorf("pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := DecodeBytes([]byte("not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("DecodeBytes(garbage) error = %v, want %v", err, ErrUnsupportedFormat)
	}
}

func TestResized(t *testing.T) {
	img := FromImage(checker()).Resized(4, 4)
	if img.Width != 4 || img.Height != 4 || len(img.Pixels) != 64 {
		t.Fatalf("Resized = %dx%d with %d bytes", img.Width, img.Height, len(img.Pixels))
	}
	if a := img.At(3, 3).A; a != 0xFF {
		t.Errorf("alpha = %d, want 255", a)
	}
}

func TestMirrorWritesInPlace(t *testing.T) {
	dev := headless.New()
	m := NewMirror("diffuse", FromImage(checker()))

	tex, err := m.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	first := tex.Texture()

	m.Logical().Pixels[0] = 0x10
	enc, _ := dev.CreateCommandEncoder("frame")
	tex, err = m.GetUpdateGPU(dev, enc)
	if err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	if tex.Texture() != first {
		t.Error("same-size update reallocated the texture")
	}
	if n := dev.Stats().Textures; n != 1 {
		t.Errorf("textures = %d, want 1", n)
	}
	texels, err := dev.Texels(tex.Texture())
	if err != nil {
		t.Fatalf("Texels: %v", err)
	}
	if diff := cmp.Diff(m.Logical().Pixels, texels); diff != "" {
		t.Errorf("texels mismatch (-want +got):\n%s", diff)
	}
}

func TestMirrorReallocatesOnResizeOrFormat(t *testing.T) {
	dev := headless.New()
	m := NewMirror("diffuse", FromImage(checker()))
	bound, err := m.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	boundView := bound.View()

	*m.Logical() = m.Logical().Resized(4, 4)
	enc, _ := dev.CreateCommandEncoder("frame")
	tex, err := m.GetUpdateGPU(dev, enc)
	if err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	if tex == bound {
		t.Fatal("resize returned the texture that was bound before it")
	}
	if tex.View() == boundView {
		t.Error("resize kept the old view")
	}
	if tex.Texture().Width() != 4 {
		t.Errorf("width = %d, want 4", tex.Texture().Width())
	}
	if live := dev.Stats().LiveTextures; live != 2 {
		t.Errorf("live textures before the encoder is done = %d, want 2", live)
	}

	m.Logical().SRGB = true
	if tex, err = m.GetUpdateGPU(dev, enc); err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	if tex.Texture().Format() != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("format = %v, want RGBA8UnormSrgb", tex.Texture().Format())
	}

	enc.Release()
	stats := dev.Stats()
	if stats.Textures != 3 || stats.LiveTextures != 1 {
		t.Errorf("textures = %d created, %d live, want 3, 1", stats.Textures, stats.LiveTextures)
	}
}

func TestMirrorRejectsShortPixels(t *testing.T) {
	m := NewMirror("broken", ImageData{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	if _, err := m.EnsureGPU(headless.New()); err == nil {
		t.Error("EnsureGPU with short pixel data returned nil error")
	}
}

func TestDepthAttachment(t *testing.T) {
	dev := headless.New()
	if _, err := NewDepthAttachment(dev, gputypes.TextureFormatRGBA8Unorm, 4, 4); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("color format error = %v, want %v", err, ErrUnsupportedFormat)
	}

	d, err := NewDepthAttachment(dev, gputypes.TextureFormatDepth32Float, 4, 4)
	if err != nil {
		t.Fatalf("NewDepthAttachment: %v", err)
	}
	if err := d.Resize(dev, 4, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if n := dev.Stats().Textures; n != 1 {
		t.Errorf("same-size Resize allocated: textures = %d", n)
	}
	if err := d.Resize(dev, 8, 2); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if d.Texture().Width() != 8 || d.Texture().Height() != 2 {
		t.Errorf("size = %dx%d, want 8x2", d.Texture().Width(), d.Texture().Height())
	}
	if n := dev.Stats().LiveTextures; n != 1 {
		t.Errorf("live textures = %d, want 1", n)
	}
	d.Release()
	if n := dev.Stats().LiveTextures; n != 0 {
		t.Errorf("live textures after Release = %d, want 0", n)
	}
}

func TestNewSampler(t *testing.T) {
	dev := headless.New()
	if _, err := NewSampler(dev, "diffuse", WithAddressMode(gputypes.AddressModeRepeat), WithFilter(gputypes.FilterModeLinear, gputypes.FilterModeLinear)); err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	if n := dev.Stats().Samplers; n != 1 {
		t.Errorf("samplers = %d, want 1", n)
	}
}
