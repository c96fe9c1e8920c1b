package main

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine"
	"github.com/Carmen-Shannon/oxy-mirror/engine/config"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
)

func headlessConfig(frames uint64) config.Config {
	cfg := config.Default()
	cfg.Renderer.Backend = "headless"
	cfg.Window.Width, cfg.Window.Height = 64, 48
	cfg.Engine.MaxFrames = frames
	cfg.Texture.Size = 16
	cfg.Texture.Workers = 2
	return cfg
}

func TestCubeRendersHeadless(t *testing.T) {
	cfg := headlessConfig(4)
	app := newCubeApp(cfg.Texture)
	eng, err := engine.NewFromConfig(app, cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	dev := eng.Renderer().Device().(*headless.Device)

	if err := eng.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	stats := dev.Stats()
	if stats.Draws != 4 {
		t.Errorf("draws = %d, want 4", stats.Draws)
	}
	if stats.Submits != 4 {
		t.Errorf("submits = %d, want 4", stats.Submits)
	}
	if stats.RenderPipelines != 1 {
		t.Errorf("render pipelines = %d, want 1", stats.RenderPipelines)
	}
	if live := dev.Live(); len(live) != 0 {
		t.Errorf("leaked after Run: %v", live)
	}
}

func TestCubeCameraStartsAtFiveFiveFive(t *testing.T) {
	app := newCubeApp(headlessConfig(1).Texture)
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithSize(64, 48))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	defer r.Release()
	if err := app.Init(r); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer app.Release()

	x, y, z := (*app.cam.Logical()).Eye()
	for _, c := range []float32{x, y, z} {
		if math.Abs(float64(c-5)) > 1e-4 {
			t.Fatalf("eye = (%v, %v, %v), want (5, 5, 5)", x, y, z)
		}
	}

	app.Update(1)
	x2, y2, z2 := (*app.cam.Logical()).Eye()
	if y2 != y {
		t.Errorf("orbit changed height from %v to %v", y, y2)
	}
	if x2 == x && z2 == z {
		t.Error("Update did not move the camera")
	}
}
