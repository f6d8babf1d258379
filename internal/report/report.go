package report

import (
	"context"
	"errors"
	"time"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// Report is a finished, formatted fault report ready for delivery.
type Report struct {
	// ID uniquely identifies this report across destinations.
	ID string
	// ThreadID is the thread the fault occurred on.
	ThreadID int64
	// Executable is the reported program; never empty, the engine fills in
	// the process-level fallback.
	Executable string
	// Reason is the bounded human-readable summary.
	Reason string
	// FaultType is the pre-resolved fault type name, if known.
	FaultType string
	// Caught is true when the fault was resolved by a catch.
	Caught bool
	// StackTrace may be empty when the agent could not generate one.
	StackTrace string
	// Extra is the ordered additional-info list.
	Extra []fault.InfoPair
	// Time is when the report was emitted.
	Time time.Time
}

// Sink receives finished reports. Delivery failure is non-fatal to the
// engine: it is logged by the caller and never retried.
type Sink interface {
	Deliver(ctx context.Context, r *Report) error
	Close() error
}

// Multi fans a report out to every configured destination. A failing
// destination does not stop delivery to the others; the per-sink errors are
// joined and returned.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink over the given destinations.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Deliver implements Sink.
func (m *Multi) Deliver(ctx context.Context, r *Report) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every destination and returns the joined errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
