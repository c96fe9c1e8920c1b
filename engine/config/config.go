// Package config loads the engine configuration from TOML. Keys missing from the file keep the
// values of Default.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full engine configuration.
type Config struct {
	LogLevel string         `toml:"log_level"`
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Engine   EngineConfig   `toml:"engine"`
	Texture  TextureConfig  `toml:"texture"`
}

// WindowConfig describes the window. It is ignored by the offscreen backends except for the size.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// RendererConfig selects and tunes the GPU backend.
type RendererConfig struct {
	Backend       string `toml:"backend"`
	PresentMode   string `toml:"present_mode"`
	MSAA          int    `toml:"msaa"`
	ForceSoftware bool   `toml:"force_software"`
	DepthFormat   string `toml:"depth_format"`
}

// EngineConfig controls the frame loop.
type EngineConfig struct {
	TickRate   float64 `toml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit"`
	MaxFrames  uint64  `toml:"max_frames"`
	Profiling  bool    `toml:"profiling"`
}

// TextureConfig controls procedural texture generation.
type TextureConfig struct {
	Size    uint32 `toml:"size"`
	Workers int    `toml:"workers"`
	Path    string `toml:"path"`
}

var (
	backends     = []string{"webgpu", "wgpu", "gogpu", "headless"}
	presentModes = []string{"vsync", "uncapped", "immediate"}
	depthFormats = []string{"depth32float", "depth24plus", "depth16unorm", "none"}
	msaaCounts   = []int{0, 1, 4, 8, 16}
)

// Default returns the configuration used for every key a file leaves out.
//
// Returns:
//   - Config: a 1280x720 webgpu window with vsync, 4x MSAA, a 60 Hz tick and a 512 texel texture
func Default() Config {
	return Config{
		LogLevel: "info",
		Window: WindowConfig{
			Title:  "rinecraft",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Backend:     "webgpu",
			PresentMode: "vsync",
			MSAA:        4,
			DepthFormat: "depth32float",
		},
		Engine: EngineConfig{
			TickRate: 60,
		},
		Texture: TextureConfig{
			Size: 512,
		},
	}
}

// Load reads and validates the TOML file at path.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the defaults overlaid with the file
//   - error: an error if the file cannot be parsed, has unknown keys or fails Validate
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return finish(cfg, meta)
}

// Decode reads and validates TOML from r.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return finish(cfg, meta)
}

func finish(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("config: unknown keys %s", strings.Join(keys, ", "))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Window.Title = strings.TrimSpace(c.Window.Title)
	c.Renderer.Backend = strings.ToLower(strings.TrimSpace(c.Renderer.Backend))
	c.Renderer.PresentMode = strings.ToLower(strings.TrimSpace(c.Renderer.PresentMode))
	c.Renderer.DepthFormat = strings.ToLower(strings.TrimSpace(c.Renderer.DepthFormat))
	c.Texture.Path = strings.TrimSpace(c.Texture.Path)
}

// Validate reports every invalid field at once.
//
// Returns:
//   - error: the joined field errors, or nil
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window: size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if !slices.Contains(backends, c.Renderer.Backend) {
		errs = append(errs, fmt.Errorf("renderer: unknown backend %q (want one of %s)", c.Renderer.Backend, strings.Join(backends, ", ")))
	}
	if !slices.Contains(presentModes, c.Renderer.PresentMode) {
		errs = append(errs, fmt.Errorf("renderer: unknown present_mode %q", c.Renderer.PresentMode))
	}
	if !slices.Contains(depthFormats, c.Renderer.DepthFormat) {
		errs = append(errs, fmt.Errorf("renderer: unknown depth_format %q", c.Renderer.DepthFormat))
	}
	if !slices.Contains(msaaCounts, c.Renderer.MSAA) {
		errs = append(errs, fmt.Errorf("renderer: msaa %d is not one of 1, 4, 8, 16", c.Renderer.MSAA))
	}
	if c.Engine.TickRate < 0 || c.Engine.FrameLimit < 0 {
		errs = append(errs, errors.New("engine: tick_rate and frame_limit must not be negative"))
	}
	if c.Texture.Size == 0 {
		errs = append(errs, errors.New("texture: size must be positive"))
	}
	if c.Texture.Workers < 0 {
		errs = append(errs, fmt.Errorf("texture: workers %d must not be negative", c.Texture.Workers))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
//
// Returns:
//   - slog.Level: the level; an empty LogLevel is info
//   - error: an error if LogLevel is not debug, info, warn or error
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Offscreen reports whether the configured backend renders without a window.
func (c Config) Offscreen() bool {
	return c.Renderer.Backend == "gogpu" || c.Renderer.Backend == "headless"
}
