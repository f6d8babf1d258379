// Package dedup suppresses duplicate reports of the same fault occurrence.
//
// Each thread that has emitted a report owns one Buffer, a fixed-capacity
// ring of the most recently reported fault identities. A fault found in the
// ring has already been reported and is skipped; pushing into a full ring
// overwrites the oldest entry, so suppression only covers a small recent
// window per thread.
//
// Registry maps thread identifiers to buffers. Neither type locks: all
// access happens under the correlation engine's lock.
package dedup
