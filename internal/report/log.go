package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LogSink appends reports to a plain-text log file, one block per report:
// the reason line, the stack trace, the executable, and the additional-info
// pairs as "label = value" lines.
type LogSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewLogSink opens a log sink for the given path. "-" writes to stderr.
func NewLogSink(path string) (*LogSink, error) {
	if path == "-" {
		return &LogSink{w: os.Stderr}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open report log: %w", err)
	}
	return &LogSink{w: f, closer: f}, nil
}

// NewLogSinkWriter wraps an existing writer; the writer is not closed.
func NewLogSinkWriter(w io.Writer) *LogSink {
	return &LogSink{w: w}
}

// Deliver implements Sink.
func (s *LogSink) Deliver(_ context.Context, r *Report) error {
	var b strings.Builder
	b.WriteString(r.Reason)
	b.WriteByte('\n')
	if r.StackTrace != "" {
		b.WriteString(r.StackTrace)
		if !strings.HasSuffix(r.StackTrace, "\n") {
			b.WriteByte('\n')
		}
	}
	if r.Executable != "" {
		fmt.Fprintf(&b, "executable: %s\n", r.Executable)
	}
	for _, pair := range r.Extra {
		fmt.Fprintf(&b, "%s = %s\n", pair.Label, pair.Value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return fmt.Errorf("write report log: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (s *LogSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
