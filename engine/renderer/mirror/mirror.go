package mirror

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-mirror/engine/renderer/gpu"
)

// GPUItem is the capability that pairs a logical type L with its device representation G.
// Each pairing (camera to uniform buffer, image to texture, ...) implements it once.
type GPUItem[L, G any] interface {
	// CreateGPU materializes a device representation of logical.
	//
	// Parameters:
	//   - logical: the current logical value
	//   - device: the device to allocate on
	//
	// Returns:
	//   - G: the created device representation
	//   - error: an error if allocation or upload fails
	CreateGPU(logical *L, device gpu.Device) (G, error)

	// UpdateGPU brings g in line with logical. Implementations may replace *g when the existing
	// representation cannot hold the new logical value, releasing the old one.
	//
	// Parameters:
	//   - g: the device representation to refresh
	//   - logical: the current logical value
	//   - device: the device that owns g
	//   - encoder: the command encoder to record copies into
	//
	// Returns:
	//   - error: an error if the refresh fails
	UpdateGPU(g *G, logical *L, device gpu.Device, encoder gpu.CommandEncoder) error
}

// Mirror owns a logical value and, once materialized, its device representation.
// Nothing is tracked between frames: callers request a refresh with GetUpdateGPU whenever the
// device copy must match the logical value.
type Mirror[L, G any] struct {
	logical L
	gpu     G
	present bool
	item    GPUItem[L, G]
}

// New wraps logical. The device side stays absent until EnsureGPU or GetUpdateGPU.
//
// Parameters:
//   - logical: the logical value to own
//   - item: the capability used to create and refresh the device side
//
// Returns:
//   - *Mirror[L, G]: the mirror
func New[L, G any](logical L, item GPUItem[L, G]) *Mirror[L, G] {
	return &Mirror[L, G]{logical: logical, item: item}
}

// EnsureGPU materializes the device side if it is absent and returns it. Later calls return the
// existing value without touching the device.
//
// Parameters:
//   - device: the device to allocate on
//
// Returns:
//   - G: the device representation
//   - error: an error if materialization fails
func (m *Mirror[L, G]) EnsureGPU(device gpu.Device) (G, error) {
	if m.present {
		return m.gpu, nil
	}
	g, err := m.item.CreateGPU(&m.logical, device)
	if err != nil {
		var zero G
		return zero, fmt.Errorf("mirror: create: %w", err)
	}
	m.gpu = g
	m.present = true
	return m.gpu, nil
}

// GetUpdateGPU refreshes the device side from the current logical value, creating it first when
// absent, and returns it. This is the only path that carries logical changes to the device.
//
// Parameters:
//   - device: the device that owns the representation
//   - encoder: the command encoder to record copies into
//
// Returns:
//   - G: the refreshed device representation
//   - error: an error if creation or refresh fails
func (m *Mirror[L, G]) GetUpdateGPU(device gpu.Device, encoder gpu.CommandEncoder) (G, error) {
	if _, err := m.EnsureGPU(device); err != nil {
		var zero G
		return zero, err
	}
	if err := m.item.UpdateGPU(&m.gpu, &m.logical, device, encoder); err != nil {
		var zero G
		return zero, fmt.Errorf("mirror: update: %w", err)
	}
	return m.gpu, nil
}

// Logical returns a pointer to the logical value. Mutations are not seen by the device until
// the next GetUpdateGPU.
func (m *Mirror[L, G]) Logical() *L { return &m.logical }

// GPU returns the device side and whether it has been materialized.
func (m *Mirror[L, G]) GPU() (G, bool) { return m.gpu, m.present }

// HasGPU reports whether the device side has been materialized.
func (m *Mirror[L, G]) HasGPU() bool { return m.present }

// Release drops the device side, calling its Release or Close method. The next EnsureGPU
// materializes it again.
func (m *Mirror[L, G]) Release() {
	if !m.present {
		return
	}
	switch g := any(m.gpu).(type) {
	case gpu.Releaser:
		g.Release()
	case io.Closer:
		_ = g.Close()
	}
	var zero G
	m.gpu = zero
	m.present = false
}
