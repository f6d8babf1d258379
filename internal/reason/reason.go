// Package reason renders the bounded human-readable summary line attached
// to every fault report.
package reason

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLen is the byte budget for a reason string.
const MaxLen = 255

// Fallback reason strings used when no detailed summary could be built.
const (
	FallbackCaught   = "Caught exception"
	FallbackUncaught = "Uncaught exception"
)

// Format renders "<Caught|Uncaught> exception <Type> in method
// <Class>.<method>()" within the MaxLen byte budget.
//
// If the rendered string meets or exceeds the budget, names are shortened in
// a fixed priority order, re-rendering after each step: first the class name
// is stripped to the part after its last namespace separator, then the fault
// type name the same way, then the class qualifier is dropped from the
// method reference entirely. If the string is still over budget after all
// three steps it is truncated. Format never fails.
func Format(caught bool, faultType, class, method string) string {
	prefix := "Uncaught"
	if caught {
		prefix = "Caught"
	}

	msg := render(prefix, faultType, class, method)
	if len(msg) < MaxLen {
		return msg
	}

	shrinks := []func(){
		func() {
			if i := strings.LastIndexByte(class, '.'); i >= 0 {
				class = class[i+1:]
			}
		},
		func() {
			if i := strings.LastIndexByte(faultType, '.'); i >= 0 {
				faultType = faultType[i+1:]
			}
		},
		func() { class = "" },
	}
	for _, shrink := range shrinks {
		shrink()
		msg = render(prefix, faultType, class, method)
		if len(msg) < MaxLen {
			return msg
		}
	}

	// No more room for shortening; the summary stays truncated to one byte
	// under the budget, backing off further if the cut landed mid-rune.
	msg = msg[:MaxLen-1]
	for len(msg) > 0 {
		r, size := utf8.DecodeLastRuneInString(msg)
		if r != utf8.RuneError || size != 1 {
			break
		}
		msg = msg[:len(msg)-1]
	}
	return msg
}

func render(prefix, faultType, class, method string) string {
	sep := ""
	if class != "" {
		sep = "."
	}
	return fmt.Sprintf("%s exception %s in method %s%s%s()", prefix, faultType, class, sep, method)
}
