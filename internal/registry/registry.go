// Package registry tracks live callback targets behind generation-checked
// handles, so an asynchronous completion never reaches an object that has
// been torn down, even if its slot has since been reused.
package registry

import (
	"fmt"
	"sync"

	"album-engine/internal/metrics"
)

// Handle identifies a registered object. The zero Handle is never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%d#%d)", h.index, h.generation)
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry is an arena of live objects. Freed slots are reused with a bumped
// generation.
type Registry[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
	live  int
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register stores v and returns its handle.
func (r *Registry[T]) Register(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[idx]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.value = v
	s.live = true
	r.live++
	metrics.RegistryObjects.Set(float64(r.live))

	return Handle{index: idx, generation: s.generation}
}

// Unregister releases h. It returns false if h is not live.
func (r *Registry[T]) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slotLocked(h)
	if !ok {
		return false
	}
	var zero T
	s.value = zero
	s.live = false
	r.free = append(r.free, h.index)
	r.live--
	metrics.RegistryObjects.Set(float64(r.live))
	return true
}

// Exists reports whether h is live.
func (r *Registry[T]) Exists(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slotLocked(h)
	return ok
}

// Lookup returns the object registered under h.
func (r *Registry[T]) Lookup(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slotLocked(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Len returns the number of live objects.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func (r *Registry[T]) slotLocked(h Handle) (*slot[T], bool) {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, false
	}
	return s, true
}
