//go:build !webgpu

package window

import (
	"errors"
	"testing"
)

func TestNewWindowWithoutGLFW(t *testing.T) {
	w, err := NewWindow(WithTitle("offscreen"), WithSize(64, 48))
	if !errors.Is(err, errNoPlatform) {
		t.Fatalf("NewWindow error = %v, want errNoPlatform", err)
	}
	if w != nil {
		t.Errorf("NewWindow returned a window alongside the error")
	}
}

func TestUnopenedWindow(t *testing.T) {
	w := &engineWindow{width: 64, height: 48}
	if w.PollEvents() || w.IsRunning() {
		t.Error("unopened window reports running")
	}
	if err := w.Close(); !errors.Is(err, errNotOpen) {
		t.Errorf("Close error = %v, want errNotOpen", err)
	}
	if w.Width() != 64 || w.Height() != 48 {
		t.Errorf("size = %dx%d, want 64x48", w.Width(), w.Height())
	}
}
