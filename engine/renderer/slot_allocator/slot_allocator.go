package slot_allocator

import "fmt"

// Handle identifies an occupied slot. The generation ties the handle to one occupancy of the slot,
// so a handle kept after its value was removed is rejected even when the index has been reissued.
type Handle struct {
	Index      uint32
	Generation uint32
}

// String returns the handle as index@generation.
func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.Index, h.Generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Allocator is a sparse pool that hands out stable handles for pooled values.
// Removed slots are reused last-in-first-out and backing storage never shrinks.
// It is not safe for concurrent use.
type Allocator[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// New creates an empty Allocator.
//
// Returns:
//   - *Allocator[T]: the allocator
func New[T any]() *Allocator[T] {
	return &Allocator[T]{}
}

// Insert stores v in the most recently freed slot, or in a new slot appended to the end
// when no slot is free.
//
// Parameters:
//   - v: the value to store
//
// Returns:
//   - Handle: the handle of the slot holding v
func (a *Allocator[T]) Insert(v T) Handle {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.occupied = true
		return Handle{Index: idx, Generation: s.generation}
	}
	a.slots = append(a.slots, slot[T]{value: v, occupied: true})
	return Handle{Index: uint32(len(a.slots) - 1)}
}

// Get returns the value stored under h. It panics if h does not refer to an occupied slot.
//
// Parameters:
//   - h: the handle to look up
//
// Returns:
//   - T: the stored value
func (a *Allocator[T]) Get(h Handle) T {
	return a.lookup(h).value
}

// GetMut returns a pointer to the value stored under h. The pointer is valid until the next Insert.
// It panics if h does not refer to an occupied slot.
//
// Parameters:
//   - h: the handle to look up
//
// Returns:
//   - *T: a pointer to the stored value
func (a *Allocator[T]) GetMut(h Handle) *T {
	return &a.lookup(h).value
}

// Remove empties the slot under h, advances its generation and puts it on the free list.
// Removing an empty slot or using a stale handle panics.
//
// Parameters:
//   - h: the handle to remove
//
// Returns:
//   - T: the removed value
func (a *Allocator[T]) Remove(h Handle) T {
	s := a.lookup(h)
	v := s.value
	var zero T
	s.value = zero
	s.occupied = false
	s.generation++
	a.free = append(a.free, h.Index)
	a.count--
	return v
}

// Contains reports whether h refers to an occupied slot.
func (a *Allocator[T]) Contains(h Handle) bool {
	if int(h.Index) >= len(a.slots) {
		return false
	}
	s := a.slots[h.Index]
	return s.occupied && s.generation == h.Generation
}

// Len returns the number of occupied slots.
func (a *Allocator[T]) Len() int { return a.count }

// Cap returns the number of backing slots, occupied or not.
func (a *Allocator[T]) Cap() int { return len(a.slots) }

// Each calls fn for every occupied slot in index order.
func (a *Allocator[T]) Each(fn func(h Handle, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			fn(Handle{Index: uint32(i), Generation: s.generation}, &s.value)
		}
	}
}

func (a *Allocator[T]) lookup(h Handle) *slot[T] {
	if int(h.Index) >= len(a.slots) {
		panic(fmt.Sprintf("slot_allocator: handle %s out of range (%d slots)", h, len(a.slots)))
	}
	s := &a.slots[h.Index]
	if !s.occupied {
		panic(fmt.Sprintf("slot_allocator: slot %d is empty", h.Index))
	}
	if s.generation != h.Generation {
		panic(fmt.Sprintf("slot_allocator: stale handle %s, slot is at generation %d", h, s.generation))
	}
	return s
}
