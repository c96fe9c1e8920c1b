package mirror

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/device_buffer"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu/headless"
	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"
)

type countingItem struct {
	SliceBuffer[float32]
	creates, updates int
	failCreate       error
}

func (c *countingItem) CreateGPU(l *[]float32, d gpu.Device) (*device_buffer.Buffer[float32], error) {
	c.creates++
	if c.failCreate != nil {
		return nil, c.failCreate
	}
	return c.SliceBuffer.CreateGPU(l, d)
}

func (c *countingItem) UpdateGPU(g **device_buffer.Buffer[float32], l *[]float32, d gpu.Device, e gpu.CommandEncoder) error {
	c.updates++
	return c.SliceBuffer.UpdateGPU(g, l, d, e)
}

func newCounting() *countingItem {
	return &countingItem{SliceBuffer: SliceBuffer[float32]{
		Label: "values",
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopySrc,
	}}
}

func readBack(t *testing.T, dev gpu.Device, b *device_buffer.Buffer[float32]) []float32 {
	t.Helper()
	raw, err := dev.Queue().ReadBuffer(context.Background(), b.GPU(), 0, b.ByteLength())
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	out := make([]float32, b.Len())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func TestEnsureGPUMaterializesOnce(t *testing.T) {
	dev := headless.New()
	item := newCounting()
	m := New[[]float32, *device_buffer.Buffer[float32]]([]float32{1, 2, 3, 4}, item)
	if m.HasGPU() {
		t.Fatal("HasGPU before EnsureGPU")
	}

	first, err := m.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	second, err := m.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	if first != second {
		t.Error("second EnsureGPU returned a different buffer")
	}
	if item.creates != 1 || item.updates != 0 {
		t.Errorf("creates, updates = %d, %d, want 1, 0", item.creates, item.updates)
	}
	if n := dev.Stats().Buffers; n != 1 {
		t.Errorf("device buffers = %d, want 1", n)
	}
}

func TestGetUpdateGPUPropagatesMutation(t *testing.T) {
	dev := headless.New()
	m := NewSliceBuffer("values", []float32{1, 2, 3, 4}, gputypes.BufferUsageUniform|gputypes.BufferUsageCopySrc)
	if _, err := m.EnsureGPU(dev); err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}

	(*m.Logical())[2] = 30

	enc, _ := dev.CreateCommandEncoder("frame")
	buf, err := m.GetUpdateGPU(dev, enc)
	if err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	cb, _ := enc.Finish()
	if err := dev.Queue().Submit(cb); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if diff := cmp.Diff([]float32{1, 2, 30, 4}, readBack(t, dev, buf)); diff != "" {
		t.Errorf("device contents mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUpdateGPUCreatesWhenAbsent(t *testing.T) {
	dev := headless.New()
	item := newCounting()
	m := New[[]float32, *device_buffer.Buffer[float32]]([]float32{5, 6}, item)

	enc, _ := dev.CreateCommandEncoder("frame")
	if _, err := m.GetUpdateGPU(dev, enc); err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	if item.creates != 1 || item.updates != 1 {
		t.Errorf("creates, updates = %d, %d, want 1, 1", item.creates, item.updates)
	}
	if _, err := m.GetUpdateGPU(dev, enc); err != nil {
		t.Fatalf("GetUpdateGPU: %v", err)
	}
	if item.creates != 1 || item.updates != 2 {
		t.Errorf("creates, updates = %d, %d, want 1, 2", item.creates, item.updates)
	}
}

func TestLogicalMutationIsLazy(t *testing.T) {
	dev := headless.New()
	m := NewSliceBuffer("values", []float32{1, 1}, gputypes.BufferUsageUniform|gputypes.BufferUsageCopySrc)
	buf, err := m.EnsureGPU(dev)
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	(*m.Logical())[0] = 9
	if _, err := m.EnsureGPU(dev); err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	if diff := cmp.Diff([]float32{1, 1}, readBack(t, dev, buf)); diff != "" {
		t.Errorf("EnsureGPU pushed a logical change (-want +got):\n%s", diff)
	}
}

func TestCreateFailureLeavesMirrorEmpty(t *testing.T) {
	boom := errors.New("boom")
	item := newCounting()
	item.failCreate = boom
	m := New[[]float32, *device_buffer.Buffer[float32]]([]float32{1}, item)
	if _, err := m.EnsureGPU(headless.New()); !errors.Is(err, boom) {
		t.Fatalf("EnsureGPU err = %v, want %v", err, boom)
	}
	if m.HasGPU() {
		t.Error("HasGPU after failed create")
	}
}

func TestReleaseDropsGPUSide(t *testing.T) {
	dev := headless.New()
	m := NewSliceBuffer("values", []float32{1, 2}, gputypes.BufferUsageUniform)
	if _, err := m.EnsureGPU(dev); err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	m.Release()
	if m.HasGPU() {
		t.Error("HasGPU after Release")
	}
	if live := dev.Stats().LiveBuffers; live != 0 {
		t.Errorf("live buffers = %d, want 0", live)
	}
}

type closer struct{ closed int }

func (c *closer) Close() error {
	c.closed++
	return nil
}

type closerItem struct{}

func (closerItem) CreateGPU(*int, gpu.Device) (*closer, error) { return &closer{}, nil }

func (closerItem) UpdateGPU(**closer, *int, gpu.Device, gpu.CommandEncoder) error { return nil }

func TestReleaseClosesCloser(t *testing.T) {
	m := New[int, *closer](1, closerItem{})
	c, err := m.EnsureGPU(headless.New())
	if err != nil {
		t.Fatalf("EnsureGPU: %v", err)
	}
	m.Release()
	m.Release()
	if c.closed != 1 {
		t.Errorf("Close called %d times, want 1", c.closed)
	}
	if m.HasGPU() {
		t.Error("HasGPU() after Release")
	}
}
