package engine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-mirror/engine/config"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/window"
	"github.com/gogpu/gputypes"
)

var depthFormats = map[string]gputypes.TextureFormat{
	"depth32float": gputypes.TextureFormatDepth32Float,
	"depth24plus":  gputypes.TextureFormatDepth24Plus,
	"depth16unorm": gputypes.TextureFormatDepth16Unorm,
	"none":         gputypes.TextureFormatUndefined,
}

// NewFromConfig builds the window (unless the backend is offscreen), the renderer and the engine
// described by cfg. Call it on the goroutine that will call Run.
//
// Parameters:
//   - app: the application to run
//   - cfg: a validated configuration
//   - options: engine options applied after the ones derived from cfg
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if cfg is invalid or the window or renderer cannot be created
func NewFromConfig(app Application, cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rendererOptions, err := RendererOptions(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := renderer.ParseBackendType(cfg.Renderer.Backend)
	if err != nil {
		return nil, err
	}

	var win window.Window
	if !cfg.Offscreen() {
		win, err = window.NewWindow(
			window.WithTitle(cfg.Window.Title),
			window.WithSize(cfg.Window.Width, cfg.Window.Height),
		)
		if err != nil {
			return nil, err
		}
	}

	r, err := renderer.NewRenderer(backend, win, rendererOptions...)
	if err != nil {
		if win != nil {
			_ = win.Close()
		}
		return nil, err
	}

	engineOptions := []EngineBuilderOption{
		WithRenderer(r),
		WithTickRate(cfg.Engine.TickRate),
		WithRenderFrameLimit(cfg.Engine.FrameLimit),
		WithMaxFrames(cfg.Engine.MaxFrames),
		WithProfiling(cfg.Engine.Profiling),
	}
	if win != nil {
		engineOptions = append(engineOptions, WithWindow(win))
	}
	e, err := NewEngine(app, append(engineOptions, options...)...)
	if err != nil {
		r.Release()
		if win != nil {
			_ = win.Close()
		}
		return nil, err
	}
	return e, nil
}

// RendererOptions translates the renderer section of cfg into renderer options.
//
// Parameters:
//   - cfg: the configuration to translate
//
// Returns:
//   - []renderer.RendererBuilderOption: the options, including a text logger at cfg's log level
//   - error: an error if a renderer field cannot be parsed
func RendererOptions(cfg config.Config) ([]renderer.RendererBuilderOption, error) {
	mode, err := renderer.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return nil, err
	}
	msaa, err := renderer.ParseMSAA(cfg.Renderer.MSAA)
	if err != nil {
		return nil, err
	}
	depth, ok := depthFormats[cfg.Renderer.DepthFormat]
	if !ok {
		return nil, fmt.Errorf("engine: unknown depth format %q", cfg.Renderer.DepthFormat)
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return []renderer.RendererBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(msaa),
		renderer.WithDepthFormat(depth),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
		renderer.WithSize(uint32(cfg.Window.Width), uint32(cfg.Window.Height)),
		renderer.WithLogger(logger),
	}, nil
}
