package eventstream

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

// recordingHandler collects dispatched events.
type recordingHandler struct {
	mu      sync.Mutex
	throws  []*fault.ThrowEvent
	catches []*fault.CatchEvent
	ends    []int64
}

func (h *recordingHandler) OnThrow(ev *fault.ThrowEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.throws = append(h.throws, ev)
}

func (h *recordingHandler) OnCatch(ev *fault.CatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catches = append(h.catches, ev)
}

func (h *recordingHandler) OnThreadEnd(tid int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ends = append(h.ends, tid)
}

func runStream(t *testing.T, input string) *recordingHandler {
	t.Helper()

	h := &recordingHandler{}
	s := New(strings.NewReader(input), h, nil)
	s.Start(context.Background())

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not finish")
	}
	return h
}

func TestStream_DispatchesEvents(t *testing.T) {
	input := `{"kind":"throw","tid":7,"fault":1,"type":"java.lang.RuntimeException","message":"boom","thread":"worker-1","stacktrace":"at Main.run(Main.java:10)","method":{"class":"com.example.Main","name":"run"}}
{"kind":"catch","tid":7,"fault":1,"method":{"class":"com.example.Handler","name":"handle"}}
{"kind":"thread_end","tid":7}
`
	h := runStream(t, input)

	if len(h.throws) != 1 || len(h.catches) != 1 || len(h.ends) != 1 {
		t.Fatalf("got %d throws, %d catches, %d ends; want 1 each",
			len(h.throws), len(h.catches), len(h.ends))
	}

	throw := h.throws[0]
	if throw.ThreadID != 7 {
		t.Errorf("ThreadID = %d, want 7", throw.ThreadID)
	}
	if throw.Fault != fault.Identity(1) {
		t.Errorf("Fault = %d, want 1", throw.Fault)
	}
	if throw.TypeName != "java.lang.RuntimeException" {
		t.Errorf("TypeName = %q", throw.TypeName)
	}
	if throw.Method.Class != "com.example.Main" || throw.Method.Name != "run" {
		t.Errorf("Method = %+v", throw.Method)
	}
	if throw.Caught() {
		t.Error("Caught() = true, want false without catch_method")
	}

	catch := h.catches[0]
	if catch.Method.Class != "com.example.Handler" {
		t.Errorf("catch Method = %+v", catch.Method)
	}

	if h.ends[0] != 7 {
		t.Errorf("thread end tid = %d, want 7", h.ends[0])
	}
}

func TestStream_CaughtThrow(t *testing.T) {
	input := `{"kind":"throw","tid":7,"fault":2,"type":"java.lang.OutOfMemoryError","catch_method":{"class":"com.example.Main","name":"guard"}}
`
	h := runStream(t, input)

	if len(h.throws) != 1 {
		t.Fatalf("got %d throws, want 1", len(h.throws))
	}
	if !h.throws[0].Caught() {
		t.Error("Caught() = false, want true with catch_method set")
	}
}

func TestStream_DefaultThreadName(t *testing.T) {
	input := `{"kind":"throw","tid":7,"fault":1}
`
	h := runStream(t, input)

	if len(h.throws) != 1 {
		t.Fatalf("got %d throws, want 1", len(h.throws))
	}
	if got := h.throws[0].ThreadName; got != fault.DefaultThreadName {
		t.Errorf("ThreadName = %q, want %q", got, fault.DefaultThreadName)
	}
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	input := `not json at all
{"kind":"sideways","tid":7}
{"kind":"throw","tid":7,"fault":1}

{"kind":"thread_end","tid":7}
`
	h := runStream(t, input)

	if len(h.throws) != 1 {
		t.Errorf("got %d throws, want 1 (bad lines skipped)", len(h.throws))
	}
	if len(h.ends) != 1 {
		t.Errorf("got %d ends, want 1", len(h.ends))
	}
}

func TestStream_SkipsOversizedLine(t *testing.T) {
	huge := `{"kind":"throw","tid":7,"fault":1,"stacktrace":"` +
		strings.Repeat("x", maxLine) + `"}`
	input := huge + "\n" +
		`{"kind":"throw","tid":7,"fault":2}` + "\n" +
		`{"kind":"thread_end","tid":7}` + "\n"
	h := runStream(t, input)

	if len(h.throws) != 1 {
		t.Errorf("got %d throws, want 1 (oversized line dropped, next one kept)", len(h.throws))
	}
	if len(h.throws) == 1 && h.throws[0].Fault != fault.Identity(2) {
		t.Errorf("surviving throw fault = %d, want 2", h.throws[0].Fault)
	}
	if len(h.ends) != 1 {
		t.Errorf("got %d ends, want 1 (stream must outlive an oversized line)", len(h.ends))
	}
}

func TestStream_EmptyInput(t *testing.T) {
	h := runStream(t, "")
	if len(h.throws)+len(h.catches)+len(h.ends) != 0 {
		t.Error("empty input should dispatch nothing")
	}
}

func TestStream_Stop(t *testing.T) {
	h := &recordingHandler{}
	s := New(strings.NewReader(`{"kind":"throw","tid":1,"fault":1}`+"\n"+`{"kind":"throw","tid":1,"fault":2}`+"\n"), h, nil)

	s.Stop()
	s.Start(context.Background())

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}

	// Stop was signalled before the first event was handled.
	if len(h.throws) != 0 {
		t.Errorf("got %d throws after Stop, want 0", len(h.throws))
	}
}
