package gpu

import (
	"errors"
	"sync"
)

var (
	// ErrBufferTooSmall is returned when a write or copy falls outside a buffer.
	ErrBufferTooSmall = errors.New("gpu: range exceeds buffer size")

	// ErrUnknownHandle is returned when a backend receives a handle created by a different backend.
	ErrUnknownHandle = errors.New("gpu: handle does not belong to this device")

	// ErrMissingUsage is returned when an operation needs a usage flag the resource was not created with.
	ErrMissingUsage = errors.New("gpu: resource is missing a required usage flag")
)

// ReleaseList collects resources whose release must wait until a command buffer has been submitted.
// Backends embed it in their encoders and hand it to the command buffer on Finish.
type ReleaseList struct {
	mu    sync.Mutex
	items []Releaser
}

// Add appends r to the list.
func (l *ReleaseList) Add(r Releaser) {
	if r == nil {
		return
	}
	l.mu.Lock()
	l.items = append(l.items, r)
	l.mu.Unlock()
}

// Take moves the collected resources out of the list.
func (l *ReleaseList) Take() []Releaser {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := l.items
	l.items = nil
	return items
}

// ReleaseAll releases every collected resource in insertion order.
func (l *ReleaseList) ReleaseAll() {
	for _, r := range l.Take() {
		r.Release()
	}
}
