// Package correlator decides, exactly once per distinct fault occurrence,
// whether and how to emit a diagnostic report.
//
// The hard part is that a throw event arrives before it is known whether the
// fault will be caught, possibly never (thread termination). Per fault the
// engine runs a two-state machine:
//
//	              OnThrow (top-level)
//	                      │
//	                      ▼
//	              THROWN_PENDING ──── OnCatch (identity match) ──→ RESOLVED
//	                      │                                          caught
//	                      └────────── OnThreadEnd ─────────────────→ RESOLVED
//	                                                                 uncaught
//
// A third path bypasses THROWN_PENDING: a throw whose catch site is already
// known and whose type is on the caught-types allow-list is deduplicated and
// reported immediately.
//
// All registry mutation happens under one engine lock; the per-thread dedup
// ring and the reason formatter are pure once invoked. A pending record or
// dedup buffer has exactly one live owner at any time: the registry, or the
// handler that just popped it.
package correlator
