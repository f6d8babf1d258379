// Package eventstream reads fault events from the agent connection and
// dispatches them to a handler.
//
// The wire format is one JSON object per line with a "kind" discriminator:
// "throw", "catch" or "thread_end". Events for one thread appear in the
// order they occurred on that thread. Malformed or oversized lines are
// logged and skipped; the stream never stops on a bad event.
package eventstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// Handler consumes decoded fault events.
type Handler interface {
	OnThrow(ev *fault.ThrowEvent)
	OnCatch(ev *fault.CatchEvent)
	OnThreadEnd(tid int64)
}

// maxLine bounds a single event line; stack traces dominate the size.
const maxLine = 1 << 20

// envelope is the wire representation of one event.
type envelope struct {
	Kind        string           `json:"kind"`
	TID         int64            `json:"tid"`
	Fault       uint64           `json:"fault"`
	Type        string           `json:"type,omitempty"`
	Message     string           `json:"message,omitempty"`
	Thread      string           `json:"thread,omitempty"`
	StackTrace  string           `json:"stacktrace,omitempty"`
	Executable  string           `json:"executable,omitempty"`
	Method      *fault.MethodRef `json:"method,omitempty"`
	CatchMethod *fault.MethodRef `json:"catch_method,omitempty"`
}

// Stream decodes events from a reader and dispatches them to a handler.
type Stream struct {
	r       io.Reader
	handler Handler
	log     *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Stream over the given reader and handler.
func New(r io.Reader, handler Handler, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.Default()
	}
	return &Stream{
		r:       r,
		handler: handler,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins reading events in a goroutine. It returns immediately and
// processes events in the background until the reader is exhausted, the
// context is cancelled or Stop is called.
func (s *Stream) Start(ctx context.Context) {
	go s.processEvents(ctx)
}

// Stop signals the processing goroutine to stop after the current event.
func (s *Stream) Stop() {
	close(s.stopCh)
}

// Done is closed when the processing goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Stream) processEvents(ctx context.Context) {
	defer close(s.doneCh)

	reader := bufio.NewReaderSize(s.r, 64*1024)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		line, overflow, err := readLine(reader)
		if overflow {
			s.log.Warn("skipping oversized event", slog.Int("limit", maxLine))
		} else if len(line) > 0 {
			if derr := s.dispatch(line); derr != nil {
				s.log.Warn("skipping event", slog.String("error", derr.Error()))
			}
		}

		if err != nil {
			if err != io.EOF {
				s.log.Warn("reading event stream", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// readLine returns the next line without its terminator. A line over maxLine
// is drained to its end and reported as overflow rather than failing the
// reader, so one oversized event cannot take the stream down.
func readLine(r *bufio.Reader) (line []byte, overflow bool, err error) {
	for {
		frag, err := r.ReadSlice('\n')
		if !overflow {
			line = append(line, frag...)
			if len(line) > maxLine {
				overflow = true
				line = nil
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == nil && len(line) > 0 {
			line = line[:len(line)-1]
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
		}
		return line, overflow, err
	}
}

func (s *Stream) dispatch(line []byte) error {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return fmt.Errorf("parsing event: %w", err)
	}

	switch env.Kind {
	case "throw":
		ev := &fault.ThrowEvent{
			ThreadID:    env.TID,
			Fault:       fault.Identity(env.Fault),
			TypeName:    env.Type,
			Message:     env.Message,
			ThreadName:  env.Thread,
			StackTrace:  env.StackTrace,
			Executable:  env.Executable,
			CatchMethod: env.CatchMethod,
		}
		if ev.ThreadName == "" {
			ev.ThreadName = fault.DefaultThreadName
		}
		if env.Method != nil {
			ev.Method = *env.Method
		}
		s.handler.OnThrow(ev)
	case "catch":
		ev := &fault.CatchEvent{
			ThreadID: env.TID,
			Fault:    fault.Identity(env.Fault),
		}
		if env.Method != nil {
			ev.Method = *env.Method
		}
		s.handler.OnCatch(ev)
	case "thread_end":
		s.handler.OnThreadEnd(env.TID)
	default:
		return fmt.Errorf("unknown event kind %q", env.Kind)
	}
	return nil
}
