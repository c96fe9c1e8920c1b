// Command rinecraft renders a textured cube with the engine. With the headless or gogpu backend
// and max_frames set it renders that many frames offscreen and exits.
//
// The windowed backend is built with
//
//	go build -tags webgpu ./cmd/rinecraft
//
// and the pure-Go offscreen backend with
//
//	CGO_ENABLED=0 go build -tags gogpu ./cmd/rinecraft
package main

import (
	"flag"
	"log"

	"github.com/Carmen-Shannon/oxy-mirror/engine"
	"github.com/Carmen-Shannon/oxy-mirror/engine/config"
)

func main() {
	path := flag.String("config", "", "path to a TOML config file (defaults are used when empty)")
	backend := flag.String("backend", "", "override renderer.backend: webgpu|gogpu|headless")
	frames := flag.Uint64("frames", 0, "override engine.max_frames")
	flag.Parse()

	cfg := config.Default()
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if *frames > 0 {
		cfg.Engine.MaxFrames = *frames
	}

	eng, err := engine.NewFromConfig(newCubeApp(cfg.Texture), cfg)
	if err != nil {
		log.Fatal(err)
	}
	r := eng.Renderer()
	w, h := r.Size()
	log.Printf("rinecraft: %s backend, %dx%d, %dx MSAA", r.BackendType(), w, h, r.SampleCount())

	if err := eng.Run(); err != nil {
		log.Fatal(err)
	}
	log.Printf("rinecraft: rendered %d frames", r.Frames())
}
