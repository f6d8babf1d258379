package correlator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// engineMetrics counts engine decisions. All methods are nil-safe so a
// failed meter setup degrades to no counters rather than no engine.
type engineMetrics struct {
	emitted      metric.Int64Counter
	deduplicated metric.Int64Counter
	misses       metric.Int64Counter
	replaced     metric.Int64Counter
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter("abrt-java-connector/correlator")

	emitted, err := meter.Int64Counter("fault.reports.emitted",
		metric.WithDescription("Reports handed to the sink"),
	)
	if err != nil {
		return nil, err
	}

	deduplicated, err := meter.Int64Counter("fault.reports.deduplicated",
		metric.WithDescription("Repeat sightings suppressed by the dedup window"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter("fault.correlation.misses",
		metric.WithDescription("Catch events that matched no pending record"),
	)
	if err != nil {
		return nil, err
	}

	replaced, err := meter.Int64Counter("fault.pending.replaced",
		metric.WithDescription("Pending records discarded by a later top-level throw"),
	)
	if err != nil {
		return nil, err
	}

	return &engineMetrics{
		emitted:      emitted,
		deduplicated: deduplicated,
		misses:       misses,
		replaced:     replaced,
	}, nil
}

func (m *engineMetrics) addEmitted(ctx context.Context) {
	if m != nil {
		m.emitted.Add(ctx, 1)
	}
}

func (m *engineMetrics) addDeduplicated(ctx context.Context) {
	if m != nil {
		m.deduplicated.Add(ctx, 1)
	}
}

func (m *engineMetrics) addMisses(ctx context.Context) {
	if m != nil {
		m.misses.Add(ctx, 1)
	}
}

func (m *engineMetrics) addReplaced(ctx context.Context) {
	if m != nil {
		m.replaced.Add(ctx, 1)
	}
}
