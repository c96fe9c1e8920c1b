package profiler

import (
	"log"
	"runtime"
	"time"
)

// Sample is one reporting interval of frame and memory statistics.
type Sample struct {
	Frames       int
	Elapsed      time.Duration
	FPS          float64
	HeapMB       float64
	AllocRateMB  float64
	SysMB        float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SlowestFrame time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// It reports a Sample once per interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	lastFrame      time.Time
	slowest        time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	report         func(Sample)
	now            func() time.Time
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often a Sample is reported. The default is one second.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithReporter replaces the default log output with report.
func WithReporter(report func(Sample)) ProfilerOption {
	return func(p *Profiler) {
		p.report = report
	}
}

// NewProfiler creates a Profiler that logs a Sample every second unless configured otherwise.
//
// Parameters:
//   - options: functional options for the interval and the report sink
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		report:         Log,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Tick should be called once per rendered frame. When the interval has elapsed it reads the
// runtime memory statistics and reports a Sample.
//
// Returns:
//   - Sample: the reported sample, zero when nothing was reported
//   - bool: true if a sample was reported this tick
func (p *Profiler) Tick() (Sample, bool) {
	p.frameCount++
	current := p.now()
	if d := current.Sub(p.lastFrame); d > p.slowest {
		p.slowest = d
	}
	p.lastFrame = current

	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Sample{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Sample{
		Frames:       p.frameCount,
		Elapsed:      elapsed,
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
		SlowestFrame: p.slowest,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gc := p.memStats.NumGC; gc > 0 {
		s.LastPauseUs = p.memStats.PauseNs[(gc-1)%256] / 1000
		start := p.lastGCCount
		if gc-start > 256 {
			start = gc - 256
		}
		for i := start; i < gc; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	p.frameCount = 0
	p.slowest = 0
	p.lastTime = current
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	if p.report != nil {
		p.report(s)
	}
	return s, true
}

// Log writes s to the standard logger.
func Log(s Sample) {
	log.Printf("[Profiler] FPS: %.2f | Slowest: %s | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		s.FPS, s.SlowestFrame, s.HeapMB, s.AllocRateMB, s.GCCount, s.LastPauseUs, s.MaxPauseUs, s.SysMB)
}
