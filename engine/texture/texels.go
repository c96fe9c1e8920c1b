package texture

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// maxIterations bounds the escape-time loop; the iteration count is the grey level of a texel.
const maxIterations = 0xFF

// Generator renders procedural textures on a bounded worker pool, one task per row.
type Generator struct {
	pool    worker.DynamicWorkerPool
	workers int
}

// NewGenerator creates a Generator backed by a pool of workers goroutines. A non-positive count
// uses one less than the number of CPUs.
//
// Parameters:
//   - workers: the pool size
//
// Returns:
//   - *Generator: the generator
func NewGenerator(workers int) *Generator {
	if workers <= 0 {
		workers = max(runtime.NumCPU()-1, 1)
	}
	return &Generator{
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
	}
}

// Workers returns the pool size.
func (g *Generator) Workers() int { return g.workers }

var defaultGenerator = sync.OnceValue(func() *Generator { return NewGenerator(0) })

// NewTexels renders the size x size escape-time fractal on the shared default Generator.
func NewTexels(size uint32) ImageData {
	return defaultGenerator().Texels(size)
}

// Texels renders a size x size grey escape-time fractal of the Mandelbrot set over
// [-2, 1] x [-1, 1]. The result is opaque and identical for equal sizes.
//
// Parameters:
//   - size: the width and height in pixels
//
// Returns:
//   - ImageData: the rendered texels
func (g *Generator) Texels(size uint32) ImageData {
	img := NewImageData(size, size)
	if size == 0 {
		return img
	}

	var wg sync.WaitGroup
	for y := range size {
		wg.Add(1)
		row := y
		g.pool.SubmitTask(worker.Task{
			ID: int(row),
			Do: func() (any, error) {
				defer wg.Done()
				fractalRow(img.Pixels[row*size*4:(row+1)*size*4], row, size)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return img
}

func fractalRow(dst []byte, row, size uint32) {
	span := float32(max(size-1, 1))
	cy := 2*float32(row)/span - 1
	for col := range size {
		cx := 3*float32(col)/span - 2
		x, y := cx, cy
		count := 0
		for count < maxIterations && x*x+y*y < 4 {
			x, y = x*x-y*y+cx, 2*x*y+cy
			count++
		}
		i := col * 4
		dst[i], dst[i+1], dst[i+2], dst[i+3] = byte(count), byte(count), byte(count), 0xFF
	}
}
