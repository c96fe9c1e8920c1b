package profiler

import (
	"testing"
	"time"
)

// fakeClock advances by step on every call.
func fakeClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestTickReportsOncePerInterval(t *testing.T) {
	var reported []Sample
	p := NewProfiler(WithInterval(100*time.Millisecond), WithReporter(func(s Sample) {
		reported = append(reported, s)
	}))
	p.now = fakeClock(10 * time.Millisecond)
	p.lastTime = p.now()
	p.lastFrame = p.lastTime

	for range 9 {
		if _, ok := p.Tick(); ok {
			t.Fatal("reported before the interval elapsed")
		}
	}
	s, ok := p.Tick()
	if !ok {
		t.Fatal("no report after the interval elapsed")
	}
	if len(reported) != 1 {
		t.Fatalf("reporter called %d times, want 1", len(reported))
	}
	if s.Frames != 10 {
		t.Errorf("Frames = %d, want 10", s.Frames)
	}
	if s.FPS < 99 || s.FPS > 101 {
		t.Errorf("FPS = %.2f, want 100", s.FPS)
	}
	if s.SlowestFrame != 10*time.Millisecond {
		t.Errorf("SlowestFrame = %s", s.SlowestFrame)
	}

	if _, ok := p.Tick(); ok {
		t.Error("reported again right after a report")
	}
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	if p.updateInterval != time.Second {
		t.Errorf("updateInterval = %s, want 1s", p.updateInterval)
	}
}
