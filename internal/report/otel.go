package report

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELSink emits each report as a zero-duration span carrying the report
// fields as attributes, so a collector sees one span per distinct fault.
type OTELSink struct {
	tracer trace.Tracer
}

// NewOTELSink creates a sink over the given tracer.
func NewOTELSink(tracer trace.Tracer) *OTELSink {
	return &OTELSink{tracer: tracer}
}

// Deliver implements Sink.
func (s *OTELSink) Deliver(ctx context.Context, r *Report) error {
	_, span := s.tracer.Start(ctx, "fault.report",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(r.Time),
	)

	attrs := []attribute.KeyValue{
		attribute.String("report.id", r.ID),
		attribute.Int64("thread.id", r.ThreadID),
		attribute.String("process.executable.path", r.Executable),
		attribute.String("exception.type", r.FaultType),
		attribute.String("exception.message", r.Reason),
		attribute.Bool("exception.caught", r.Caught),
	}
	if r.StackTrace != "" {
		attrs = append(attrs, attribute.String("exception.stacktrace", r.StackTrace))
	}
	for _, pair := range r.Extra {
		attrs = append(attrs, attribute.String("fault.info."+sanitizeAttributeName(pair.Label), pair.Value))
	}

	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, r.Reason)
	span.End(trace.WithTimestamp(r.Time))

	return nil
}

// Close implements Sink. Flushing is the tracer provider's concern.
func (s *OTELSink) Close() error {
	return nil
}

// sanitizeAttributeName replaces any character not in [a-zA-Z0-9_.] with
// underscore so labels are safe as attribute keys.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '.' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
