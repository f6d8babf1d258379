// Package pending holds the per-thread deferred-decision records for faults
// whose disposition (caught or uncaught) is not yet known.
package pending

import (
	"sync"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// Registry maps a thread identifier to at most one pending report. Fault
// events for a single thread are delivered in order, so a second pending
// record can only appear for a thread after the first was resolved or
// replaced.
//
// The registry carries its own lock so that Empty can be used as a cheap
// short-circuit without taking the engine lock. Mutation still happens only
// inside engine critical sections.
type Registry struct {
	mu      sync.RWMutex
	records map[int64]*fault.PendingReport
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[int64]*fault.PendingReport),
	}
}

// Get returns the pending report for a thread without removing it, or nil.
// Used for identity comparison before committing to a pop.
func (r *Registry) Get(tid int64) *fault.PendingReport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[tid]
}

// Pop removes and returns the pending report for a thread, or nil. Ownership
// transfers to the caller.
func (r *Registry) Pop(tid int64) *fault.PendingReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[tid]
	if rec != nil {
		delete(r.records, tid)
	}
	return rec
}

// Push stores a pending report unconditionally and returns the record it
// replaced, or nil. Last throw wins; the caller decides whether a
// replacement is worth logging.
func (r *Registry) Push(tid int64, rec *fault.PendingReport) *fault.PendingReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.records[tid]
	r.records[tid] = rec
	return prev
}

// Empty reports whether no thread has a pending record.
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records) == 0
}

// Len returns the number of threads with a pending record.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
