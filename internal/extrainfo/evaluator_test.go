package extrainfo

import (
	"testing"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

func testEvent() *fault.ThrowEvent {
	return &fault.ThrowEvent{
		ThreadID:   42,
		TypeName:   "java.lang.RuntimeException",
		Message:    "boom",
		ThreadName: "worker-1",
		Method:     fault.MethodRef{Class: "com.example.Main", Name: "run"},
	}
}

func TestEvaluator_OrderedPairs(t *testing.T) {
	ev, err := NewEvaluator([]Attribute{
		{Name: "origin", Expression: `class + "." + method`},
		{Name: "summary", Expression: `type + ": " + message`},
		{Name: "tid", Expression: `string(tid)`},
	}, nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	pairs := ev.Evaluate(testEvent())
	want := []fault.InfoPair{
		{Label: "origin", Value: "com.example.Main.run"},
		{Label: "summary", Value: "java.lang.RuntimeException: boom"},
		{Label: "tid", Value: "42"},
	}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair[%d] = %+v, want %+v", i, pairs[i], want[i])
		}
	}
}

func TestNewEvaluator_CompileError(t *testing.T) {
	_, err := NewEvaluator([]Attribute{
		{Name: "bad", Expression: `type +`},
	}, nil)
	if err == nil {
		t.Error("NewEvaluator() with a broken expression should fail")
	}
}

func TestNewEvaluator_UnknownIdentifier(t *testing.T) {
	_, err := NewEvaluator([]Attribute{
		{Name: "bad", Expression: `no_such_field`},
	}, nil)
	if err == nil {
		t.Error("NewEvaluator() should reject identifiers outside the event environment")
	}
}

func TestEvaluator_RuntimeFailureSkipsPair(t *testing.T) {
	ev, err := NewEvaluator([]Attribute{
		{Name: "ok", Expression: `thread`},
		{Name: "broken", Expression: `message[100]`}, // out of range at run time
		{Name: "also_ok", Expression: `type`},
	}, nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}

	pairs := ev.Evaluate(testEvent())
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2 (failing expression skipped)", len(pairs))
	}
	if pairs[0].Label != "ok" || pairs[1].Label != "also_ok" {
		t.Errorf("surviving labels = %q, %q; want ok, also_ok", pairs[0].Label, pairs[1].Label)
	}
}

func TestEvaluator_NilSafety(t *testing.T) {
	var ev *Evaluator
	if pairs := ev.Evaluate(testEvent()); pairs != nil {
		t.Error("nil evaluator should return nil")
	}

	ev, err := NewEvaluator(nil, nil)
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	if pairs := ev.Evaluate(testEvent()); pairs != nil {
		t.Error("evaluator without attributes should return nil")
	}
	if pairs := ev.Evaluate(nil); pairs != nil {
		t.Error("nil event should return nil")
	}
}
