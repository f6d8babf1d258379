package reason

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormat_Uncaught(t *testing.T) {
	got := Format(false, "java.lang.NullPointerException", "com.example.Main", "run")
	want := "Uncaught exception java.lang.NullPointerException in method com.example.Main.run()"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_Caught(t *testing.T) {
	got := Format(true, "java.io.IOException", "com.example.Worker", "process")
	want := "Caught exception java.io.IOException in method com.example.Worker.process()"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_EmptyClassOmitsDot(t *testing.T) {
	got := Format(false, "java.lang.Error", "", "main")
	want := "Uncaught exception java.lang.Error in method main()"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_ShrinksClassNamespaceFirst(t *testing.T) {
	class := strings.Repeat("p", 100) + "." + strings.Repeat("q", 100)
	got := Format(true, "java.lang.RuntimeException", class, "run")

	if len(got) >= MaxLen {
		t.Fatalf("len = %d, want < %d", len(got), MaxLen)
	}
	// The class loses its namespace; the type keeps its own.
	if !strings.Contains(got, "java.lang.RuntimeException") {
		t.Error("type name should stay fully qualified")
	}
	if strings.Contains(got, strings.Repeat("p", 100)) {
		t.Error("class namespace should be stripped")
	}
	if !strings.Contains(got, strings.Repeat("q", 100)+".run()") {
		t.Error("class base name should survive")
	}
}

func TestFormat_ShrinksTypeNamespaceSecond(t *testing.T) {
	faultType := "java.lang." + strings.Repeat("E", 150)
	class := strings.Repeat("c", 60) // no namespace to strip
	got := Format(false, faultType, class, "run")

	if len(got) >= MaxLen {
		t.Fatalf("len = %d, want < %d", len(got), MaxLen)
	}
	if strings.Contains(got, "java.lang.") {
		t.Error("type namespace should be stripped")
	}
	if !strings.Contains(got, class+".run()") {
		t.Error("class should survive when stripping the type suffices")
	}
}

func TestFormat_DropsClassQualifierLast(t *testing.T) {
	faultType := strings.Repeat("T", 100)
	class := strings.Repeat("C", 100)
	got := Format(false, faultType, class, strings.Repeat("m", 100))

	if len(got) >= MaxLen {
		t.Fatalf("len = %d, want < %d", len(got), MaxLen)
	}
	if strings.Contains(got, class) {
		t.Error("class qualifier should be dropped entirely")
	}
	if !strings.Contains(got, "in method "+strings.Repeat("m", 100)+"()") {
		t.Error("method reference should survive unqualified")
	}
}

func TestFormat_TruncatesWhenExhausted(t *testing.T) {
	got := Format(false, "Err", "Cls", strings.Repeat("m", 300))
	if len(got) != MaxLen-1 {
		t.Errorf("len = %d, want %d", len(got), MaxLen-1)
	}
}

func TestFormat_TruncationKeepsRuneBoundary(t *testing.T) {
	// Two-byte runes guarantee one of the shrink-exhausted cuts would land
	// mid-rune without the boundary backoff.
	for _, method := range []string{
		strings.Repeat("λ", 200),
		"m" + strings.Repeat("λ", 200),
	} {
		got := Format(false, "Err", "Cls", method)
		if len(got) >= MaxLen {
			t.Errorf("len = %d, want < %d", len(got), MaxLen)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Format() produced invalid UTF-8: %q", got)
		}
	}
}

func TestFormat_NeverExceedsBudget(t *testing.T) {
	long := strings.Repeat("x.", 200) + strings.Repeat("y", 400)
	cases := []struct {
		faultType, class, method string
	}{
		{"T", "C", "m"},
		{long, long, long},
		{long, "", ""},
		{"", long, long},
		{"", "", long},
	}
	for _, tc := range cases {
		for _, caught := range []bool{true, false} {
			got := Format(caught, tc.faultType, tc.class, tc.method)
			if len(got) > MaxLen {
				t.Errorf("Format(%v, %d, %d, %d chars) produced %d bytes, budget %d",
					caught, len(tc.faultType), len(tc.class), len(tc.method), len(got), MaxLen)
			}
		}
	}
}
