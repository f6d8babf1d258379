package dedup

import (
	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// DefaultCapacity is the number of recently reported identities remembered
// per thread.
const DefaultCapacity = 5

// Buffer is a fixed-capacity ring of recently reported fault identities for
// one thread. When full, a push overwrites the oldest slot. The capacity
// never grows after construction.
//
// Buffer is not independently thread-safe; callers hold the engine lock.
type Buffer struct {
	slots []fault.Identity
	size  int
	next  int
	eq    fault.Equality
}

// NewBuffer creates a ring with the given capacity. A capacity below one
// falls back to DefaultCapacity. A nil equality falls back to handle
// equality.
func NewBuffer(capacity int, eq fault.Equality) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if eq == nil {
		eq = fault.SameIdentity
	}
	return &Buffer{
		slots: make([]fault.Identity, capacity),
		eq:    eq,
	}
}

// Push inserts an identity, overwriting the oldest entry when the ring is
// full.
func (b *Buffer) Push(id fault.Identity) {
	b.slots[b.next] = id
	b.next = (b.next + 1) % len(b.slots)
	if b.size < len(b.slots) {
		b.size++
	}
}

// Find reports whether an identity is present in the ring.
func (b *Buffer) Find(id fault.Identity) bool {
	for i := 0; i < b.size; i++ {
		if b.eq(b.slots[i], id) {
			return true
		}
	}
	return false
}

// Len returns the number of occupied slots.
func (b *Buffer) Len() int {
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.slots)
}

// Registry maps a thread identifier to at most one dedup Buffer. Buffers are
// created lazily on the first emitted report for a thread and popped at
// thread end; no entry outlives its thread.
//
// Registry is not independently thread-safe; callers hold the engine lock.
type Registry struct {
	buffers  map[int64]*Buffer
	capacity int
	eq       fault.Equality
}

// NewRegistry creates an empty registry whose buffers use the given capacity
// and identity equality.
func NewRegistry(capacity int, eq fault.Equality) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if eq == nil {
		eq = fault.SameIdentity
	}
	return &Registry{
		buffers:  make(map[int64]*Buffer),
		capacity: capacity,
		eq:       eq,
	}
}

// Get returns the buffer for a thread, or nil if none exists yet.
func (r *Registry) Get(tid int64) *Buffer {
	return r.buffers[tid]
}

// GetOrCreate returns the buffer for a thread, creating it if needed.
func (r *Registry) GetOrCreate(tid int64) *Buffer {
	if b := r.buffers[tid]; b != nil {
		return b
	}
	b := NewBuffer(r.capacity, r.eq)
	r.buffers[tid] = b
	return b
}

// Pop removes and returns the buffer for a thread, or nil if none exists.
// Ownership transfers to the caller; used at thread end.
func (r *Registry) Pop(tid int64) *Buffer {
	b := r.buffers[tid]
	if b != nil {
		delete(r.buffers, tid)
	}
	return b
}

// Len returns the number of threads with a live buffer.
func (r *Registry) Len() int {
	return len(r.buffers)
}
