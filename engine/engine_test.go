package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/config"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

// clearApp clears every frame and records what the engine called.
type clearApp struct {
	mu        sync.Mutex
	initErr   error
	renderErr error
	failAt    uint64
	inits     int
	frames    []uint64
	sizes     [][2]uint32
	released  bool
}

func (a *clearApp) Init(renderer.Renderer) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inits++
	return a.initErr
}

func (a *clearApp) Update(float32) {}

func (a *clearApp) Resize(width, height uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sizes = append(a.sizes, [2]uint32{width, height})
}

func (a *clearApp) Render(f *renderer.Frame) error {
	a.mu.Lock()
	a.frames = append(a.frames, f.Index)
	a.mu.Unlock()
	if a.renderErr != nil && f.Index == a.failAt {
		return a.renderErr
	}
	pass, err := f.Pass(gputypes.Color{A: 1}).Begin(f.Encoder)
	if err != nil {
		return err
	}
	return pass.End()
}

func (a *clearApp) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = true
}

func newHeadlessRenderer(t *testing.T) (renderer.Renderer, *headless.Device) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithSize(32, 16), renderer.WithMSAA(renderer.MSAAOff))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r, r.Device().(*headless.Device)
}

func TestNewEngineRequiresAppAndRenderer(t *testing.T) {
	r, _ := newHeadlessRenderer(t)
	defer r.Release()

	if _, err := NewEngine(nil, WithRenderer(r)); err == nil {
		t.Error("NewEngine(nil) returned nil error")
	}
	if _, err := NewEngine(&clearApp{}); err == nil {
		t.Error("NewEngine without renderer returned nil error")
	}
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	r, dev := newHeadlessRenderer(t)
	app := &clearApp{}

	e, err := NewEngine(app, WithRenderer(r), WithMaxFrames(3), WithTickRate(1000))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if app.inits != 1 {
		t.Errorf("Init called %d times, want 1", app.inits)
	}
	if diff := cmp.Diff([]uint64{0, 1, 2}, app.frames); diff != "" {
		t.Errorf("rendered frames mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]uint32{{32, 16}}, app.sizes); diff != "" {
		t.Errorf("resize calls mismatch (-want +got):\n%s", diff)
	}
	if n := dev.Stats().Submits; n != 3 {
		t.Errorf("submits = %d, want 3", n)
	}
	if !app.released {
		t.Error("application was not released")
	}
}

func TestRunReturnsFrameError(t *testing.T) {
	r, _ := newHeadlessRenderer(t)
	boom := errors.New("boom")
	app := &clearApp{renderErr: boom, failAt: 1}

	e, err := NewEngine(app, WithRenderer(r), WithMaxFrames(10))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	err = e.Run()
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "frame 1") {
		t.Errorf("Run error %q does not name the frame", err)
	}
	if len(app.frames) != 2 {
		t.Errorf("rendered %d frames, want 2", len(app.frames))
	}
}

func TestRunReturnsInitError(t *testing.T) {
	r, _ := newHeadlessRenderer(t)
	boom := errors.New("no shaders")
	app := &clearApp{initErr: boom}

	e, err := NewEngine(app, WithRenderer(r))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.Run(); !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if len(app.frames) != 0 {
		t.Errorf("rendered %d frames after a failed Init", len(app.frames))
	}
	if !app.released {
		t.Error("application was not released")
	}
}

func TestQuitBeforeFirstFrame(t *testing.T) {
	r, _ := newHeadlessRenderer(t)
	e, err := NewEngine(&clearApp{}, WithRenderer(r))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Quit()
	e.Quit()
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSetTickRateDuringRun(t *testing.T) {
	r, _ := newHeadlessRenderer(t)
	e, err := NewEngine(&clearApp{}, WithRenderer(r), WithMaxFrames(50), WithRenderFrameLimit(1000))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 200 {
			e.SetTickRate(float64(30 + i%90))
		}
	}()
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	<-done
	e.SetTickRate(0)
}

func TestNewFromConfigHeadless(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = "headless"
	cfg.Renderer.MSAA = 4
	cfg.Window.Width, cfg.Window.Height = 40, 20
	cfg.Engine.MaxFrames = 2

	app := &clearApp{}
	e, err := NewFromConfig(app, cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if e.Window() != nil {
		t.Error("headless engine has a window")
	}
	r := e.Renderer()
	if r.SampleCount() != 4 {
		t.Errorf("SampleCount() = %d, want 4", r.SampleCount())
	}
	if w, h := r.Size(); w != 40 || h != 20 {
		t.Errorf("Size() = %dx%d, want 40x20", w, h)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(app.frames) != 2 {
		t.Errorf("rendered %d frames, want 2", len(app.frames))
	}
}

func TestNewFromConfigRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = "vulkan"
	if _, err := NewFromConfig(&clearApp{}, cfg); err == nil {
		t.Error("NewFromConfig with an unknown backend returned nil error")
	}
}

func TestRendererOptionsDepthNone(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Backend = "headless"
	cfg.Renderer.DepthFormat = "none"
	opts, err := RendererOptions(cfg)
	if err != nil {
		t.Fatalf("RendererOptions: %v", err)
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, opts...)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	defer r.Release()
	if r.DepthFormat() != gputypes.TextureFormatUndefined {
		t.Errorf("DepthFormat() = %v, want undefined", r.DepthFormat())
	}
}
