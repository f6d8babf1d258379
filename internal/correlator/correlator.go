package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhabrnal/abrt-java-connector/internal/dedup"
	"github.com/mhabrnal/abrt-java-connector/internal/extrainfo"
	"github.com/mhabrnal/abrt-java-connector/internal/fault"
	"github.com/mhabrnal/abrt-java-connector/internal/pending"
	"github.com/mhabrnal/abrt-java-connector/internal/reason"
	"github.com/mhabrnal/abrt-java-connector/internal/report"
)

// Options configures an Engine.
type Options struct {
	// Sink receives finished reports. Required.
	Sink report.Sink
	// CaughtTypes lists fault type names reported even when caught.
	CaughtTypes []string
	// DedupCapacity is the per-thread dedup window; zero means the default.
	DedupCapacity int
	// Equality compares fault identities; nil means handle equality.
	Equality fault.Equality
	// Extra evaluates additional-info expressions at throw time. Optional.
	Extra *extrainfo.Evaluator
	// FallbackExecutable is reported when an event carries no executable.
	FallbackExecutable string
	// Logger receives engine diagnostics; nil means slog.Default.
	Logger *slog.Logger
}

// Engine correlates throw, catch and thread-end events into at most one
// report per distinct fault occurrence.
//
// Events for a single thread arrive in the order they occurred on that
// thread; events from different threads interleave arbitrarily and are
// serialized by the engine lock. All handlers run to completion and degrade
// (fallback text, skipped detail) rather than abort: an internal failure
// must never propagate back into the host's own fault handling.
//
// All methods are safe on a nil *Engine and do nothing, so a failed
// initialization leaves the host process unaffected.
type Engine struct {
	mu      sync.Mutex
	threads *dedup.Registry
	parked  *pending.Registry
	allowed map[string]struct{}
	eq      fault.Equality

	sink     report.Sink
	extra    *extrainfo.Evaluator
	fallback string
	log      *slog.Logger
	metrics  *engineMetrics
}

// New creates an Engine. The only fatal condition is a missing sink; the
// caller is expected to keep running with the returned nil engine, whose
// handlers are no-ops.
func New(opts Options) (*Engine, error) {
	if opts.Sink == nil {
		return nil, fmt.Errorf("correlator: no report sink configured")
	}

	eq := opts.Equality
	if eq == nil {
		eq = fault.SameIdentity
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	fallback := opts.FallbackExecutable
	if fallback == "" {
		fallback = fault.UnknownClass
	}

	allowed := make(map[string]struct{}, len(opts.CaughtTypes))
	for _, name := range opts.CaughtTypes {
		allowed[name] = struct{}{}
	}

	metrics, err := newEngineMetrics()
	if err != nil {
		// Counters are best-effort; the engine works without them.
		log.Warn("engine metrics unavailable", slog.String("error", err.Error()))
		metrics = nil
	}

	return &Engine{
		threads:  dedup.NewRegistry(opts.DedupCapacity, eq),
		parked:   pending.NewRegistry(),
		allowed:  allowed,
		eq:       eq,
		sink:     opts.Sink,
		extra:    opts.Extra,
		fallback: fallback,
		log:      log,
		metrics:  metrics,
	}, nil
}

// OnThrow handles a fault being raised.
//
// A caught fault whose type is on the allow-list is deduplicated and
// reported immediately with caught phrasing. A true top-level throw is
// parked as a pending record until a catch or the thread's end decides its
// phrasing. A caught fault not on the allow-list is not of interest.
func (e *Engine) OnThrow(ev *fault.ThrowEvent) {
	if e == nil || ev == nil {
		return
	}

	// Caught and no caught type is to be reported: nothing to do, and
	// cheap enough to decide before taking the lock.
	caught := ev.Caught()
	if caught && len(e.allowed) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if caught && !e.typeAllowed(ev.TypeName) {
		return
	}

	if buf := e.threads.Get(ev.ThreadID); buf != nil && buf.Find(ev.Fault) {
		e.metrics.addDeduplicated(context.Background())
		return
	}

	class := ev.Method.Class
	if class == "" {
		class = fault.UnknownClass
	}
	summary := reason.Format(caught, ev.TypeName, class, ev.Method.Name)
	extra := e.extra.Evaluate(ev)

	if !caught {
		// Postpone the decision: the fault may still be caught, possibly by
		// a native frame that never produces a catch event.
		rec := &fault.PendingReport{
			Reason:     summary,
			StackTrace: ev.StackTrace,
			Executable: ev.Executable,
			TypeName:   ev.TypeName,
			Extra:      extra,
			Fault:      ev.Fault,
		}
		if prev := e.parked.Push(ev.ThreadID, rec); prev != nil {
			// Last throw wins. Sequential per-thread delivery should make
			// this unreachable; re-entrant delivery would not.
			e.metrics.addReplaced(context.Background())
			e.log.Warn("replacing stale pending record",
				slog.Int64("tid", ev.ThreadID),
				slog.String("type", prev.TypeName),
			)
		}
		return
	}

	e.emitLocked(&report.Report{
		ThreadID:   ev.ThreadID,
		Executable: ev.Executable,
		Reason:     summary,
		FaultType:  ev.TypeName,
		Caught:     true,
		StackTrace: ev.StackTrace,
		Extra:      extra,
	})
	e.threads.GetOrCreate(ev.ThreadID).Push(ev.Fault)
}

// OnCatch handles a fault being caught. It resolves the thread's pending
// record when the identities match; a catch for some other fault (nested or
// rethrown) leaves the pending record untouched.
func (e *Engine) OnCatch(ev *fault.CatchEvent) {
	if e == nil || ev == nil {
		return
	}

	// Nothing is pending anywhere, so this catch cannot resolve anything.
	if e.parked.Empty() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.parked.Get(ev.ThreadID)
	if rec == nil {
		return
	}
	if !e.eq(rec.Fault, ev.Fault) {
		// This catch resolves a different fault; not an error. The JVM
		// routinely catches its own exceptions while one is pending.
		e.metrics.addMisses(context.Background())
		return
	}

	e.parked.Pop(ev.ThreadID)

	// Caught faults are only of interest when their type is allow-listed.
	if !e.typeAllowed(rec.TypeName) {
		return
	}

	if buf := e.threads.Get(ev.ThreadID); buf != nil && buf.Find(rec.Fault) {
		e.metrics.addDeduplicated(context.Background())
		return
	}

	// Rebuild the summary with caught phrasing at the catch site.
	class := ev.Method.Class
	if class == "" {
		class = fault.UnknownClass
	}
	summary := reason.Format(true, rec.TypeName, class, ev.Method.Name)
	if summary == "" {
		summary = reason.FallbackCaught
	}

	e.emitLocked(&report.Report{
		ThreadID:   ev.ThreadID,
		Executable: rec.Executable,
		Reason:     summary,
		FaultType:  rec.TypeName,
		Caught:     true,
		StackTrace: rec.StackTrace,
		Extra:      rec.Extra,
	})
	e.threads.GetOrCreate(ev.ThreadID).Push(rec.Fault)
}

// OnThreadEnd flushes the thread's pending record with uncaught phrasing and
// releases all per-thread state. No entry for the thread survives this call.
func (e *Engine) OnThreadEnd(tid int64) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.threads.Len() == 0 && e.parked.Len() == 0 {
		return
	}

	rec := e.parked.Pop(tid)
	buf := e.threads.Pop(tid)
	if rec == nil {
		return
	}

	if buf != nil && buf.Find(rec.Fault) {
		e.metrics.addDeduplicated(context.Background())
		return
	}

	summary := rec.Reason
	if summary == "" {
		summary = reason.FallbackUncaught
	}
	e.emitLocked(&report.Report{
		ThreadID:   tid,
		Executable: rec.Executable,
		Reason:     summary,
		FaultType:  rec.TypeName,
		Caught:     false,
		StackTrace: rec.StackTrace,
		Extra:      rec.Extra,
	})
}

// Pending returns the number of threads with an unresolved pending record.
func (e *Engine) Pending() int {
	if e == nil {
		return 0
	}
	return e.parked.Len()
}

func (e *Engine) typeAllowed(name string) bool {
	_, ok := e.allowed[name]
	return ok
}

// emitLocked stamps and delivers a report. Callers hold the engine lock.
// Delivery failure is logged and otherwise ignored: success or failure is
// the destination's concern, and there is no retry.
func (e *Engine) emitLocked(r *report.Report) {
	r.ID = uuid.NewString()
	r.Time = time.Now()
	if r.Executable == "" {
		r.Executable = e.fallback
	}

	e.metrics.addEmitted(context.Background())

	if err := e.sink.Deliver(context.Background(), r); err != nil {
		e.log.Warn("report delivery failed",
			slog.String("report_id", r.ID),
			slog.Int64("tid", r.ThreadID),
			slog.String("error", err.Error()),
		)
	}
}
