package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-mirror/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/window"
)

// Application is the program the engine runs. Init and Render are called on the render
// goroutine, Update on the tick goroutine; the engine never runs Update and Render at the same time.
type Application interface {
	// Init creates the application's GPU resources. It runs once before the first frame.
	Init(r renderer.Renderer) error

	// Update advances the simulation by deltaTime seconds.
	Update(deltaTime float32)

	// Resize is called after the render target has been resized.
	Resize(width, height uint32)

	// Render records the frame into f.Encoder. The engine submits and presents it afterwards.
	Render(f *renderer.Frame) error
}

// Releaser is implemented by applications that own GPU resources. Release is called once after
// the last frame, before the renderer is released.
type Releaser interface {
	Release()
}

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	// appMu serializes Update and Render.
	appMu sync.Mutex
	app   Application

	window   window.Window
	renderer renderer.Renderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate   atomic.Int64  // time.Duration
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // 0 = until quit

	resizeMu      sync.Mutex
	pendingResize *[2]int

	errMu sync.Mutex
	err   error
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, the render loop, and window event processing.
type Engine interface {
	// Window returns the window, or nil when rendering offscreen.
	Window() window.Window

	// Renderer returns the renderer frames are drawn with.
	Renderer() renderer.Renderer

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// Application.Update is called at this rate.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run initializes the application and runs until the window closes, the frame count is
	// reached, Quit is called or a frame fails. With a window it must be called on the goroutine
	// that created the window.
	//
	// Returns:
	//   - error: the first initialization or frame error, or nil on a clean shutdown
	Run() error

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates an Engine that runs app on the renderer given through WithRenderer.
//
// Parameters:
//   - app: the application to run
//   - options: functional options for engine configuration (renderer, window, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if app or the renderer is missing
func NewEngine(app Application, options ...EngineBuilderOption) (Engine, error) {
	if app == nil {
		return nil, errors.New("engine: nil application")
	}
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		app:             app,
		profiler:        profiler.NewProfiler(),
	}
	e.engineTickRate.Store(int64(time.Second / 60))
	for _, opt := range options {
		opt(e)
	}
	if e.renderer == nil {
		return nil, errors.New("engine: no renderer")
	}

	if e.window != nil {
		// Resizes arrive on the window goroutine; the render goroutine applies them.
		e.window.SetResizeCallback(func(width, height int) {
			e.resizeMu.Lock()
			e.pendingResize = &[2]int{width, height}
			e.resizeMu.Unlock()
		})
	}
	return e, nil
}

func (e *engine) Window() window.Window { return e.window }

func (e *engine) Renderer() renderer.Renderer { return e.renderer }

func (e *engine) Run() error {
	if err := e.app.Init(e.renderer); err != nil {
		e.shutdown()
		return fmt.Errorf("engine: init: %w", err)
	}
	w, h := e.renderer.Size()
	e.app.Resize(w, h)

	e.running.Store(true)
	e.handle()

	if e.window != nil {
		// GLFW events must be polled on the thread that created the window.
		poll := time.NewTicker(time.Millisecond)
	events:
		for e.window.PollEvents() {
			select {
			case <-e.quitChannel:
				break events
			case <-poll.C:
			}
		}
		poll.Stop()
		e.signalQuit()
	}
	e.wg.Wait()
	e.shutdown()

	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// shutdown releases the application, the renderer and the window in that order.
func (e *engine) shutdown() {
	if r, ok := e.app.(Releaser); ok {
		r.Release()
	}
	e.renderer.Release()
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			log.Printf("engine: close window: %v", err)
		}
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// fail records the first error and stops the engine.
func (e *engine) fail(err error) {
	log.Printf("engine: %v", err)
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
	e.signalQuit()
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine. It listens for rate changes
// via tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(time.Duration(e.engineTickRate.Load()))
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.appMu.Lock()
			e.app.Update(dt)
			e.appMu.Unlock()
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A panic or a frame error is logged and stops the engine.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("render goroutine recovered from panic: %v", r))
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		start := time.Now()
		if err := e.renderFrame(); err != nil {
			e.fail(err)
			return
		}
		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Tick()
		}
		if e.maxFrames > 0 && e.renderer.Frames() >= e.maxFrames {
			e.signalQuit()
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// renderFrame applies a pending resize, then records, submits and presents one frame.
func (e *engine) renderFrame() error {
	if size, ok := e.takeResize(); ok {
		if size[0] == 0 || size[1] == 0 {
			// Minimized: keep the pending size until the window is restored.
			e.resizeMu.Lock()
			if e.pendingResize == nil {
				e.pendingResize = &size
			}
			e.resizeMu.Unlock()
			time.Sleep(10 * time.Millisecond)
			return nil
		}
		if err := e.renderer.Resize(size[0], size[1]); err != nil {
			return err
		}
		e.appMu.Lock()
		e.app.Resize(uint32(size[0]), uint32(size[1]))
		e.appMu.Unlock()
	}

	f, err := e.renderer.BeginFrame()
	if err != nil {
		return err
	}
	e.appMu.Lock()
	err = e.app.Render(f)
	e.appMu.Unlock()
	if endErr := e.renderer.EndFrame(f); err == nil {
		err = endErr
	}
	if err != nil {
		return fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return nil
}

func (e *engine) takeResize() ([2]int, bool) {
	e.resizeMu.Lock()
	defer e.resizeMu.Unlock()
	if e.pendingResize == nil {
		return [2]int{}, false
	}
	size := *e.pendingResize
	e.pendingResize = nil
	return size, true
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	// The rate is stored before running is read; a tick loop that starts after the load sees it.
	e.engineTickRate.Store(int64(newRate))
	if !e.running.Load() {
		return
	}
	// Replace any pending update that the tick loop has not consumed yet.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
