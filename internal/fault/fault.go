// Package fault defines the event and record types exchanged between the
// in-process agent, the correlation engine, and the report sinks.
package fault

// Defaults matching the agent side.
const (
	// DefaultThreadName is used when the agent could not resolve a thread name.
	DefaultThreadName = "DefaultThread"
	// UnknownClass marks a class the agent could not resolve.
	UnknownClass = "*unknown*"
)

// Identity is an opaque handle distinguishing one fault occurrence from
// another. It is assigned by the agent when the fault object is first seen;
// two occurrences of the same exception type carry distinct identities.
type Identity uint64

// Equality decides whether two identity handles denote the same logical
// fault occurrence. The agent may hand out more than one handle for the same
// occurrence, so representational equality is not assumed by the engine.
type Equality func(a, b Identity) bool

// SameIdentity is the default Equality: handle equality.
func SameIdentity(a, b Identity) bool {
	return a == b
}

// MethodRef names a method by its declaring class and method name.
// Both are pre-resolved, dotted names ("com.example.Main", "run").
type MethodRef struct {
	Class string `json:"class"`
	Name  string `json:"name"`
}

// InfoPair is one piece of additional debug information attached to a report.
type InfoPair struct {
	Label string
	Value string
}

// ThrowEvent describes a fault being raised. CatchMethod is non-nil when the
// agent already knows the fault will be caught, and nil for a true top-level
// throw whose disposition is still unknown.
type ThrowEvent struct {
	ThreadID    int64
	Fault       Identity
	TypeName    string
	Message     string
	ThreadName  string
	StackTrace  string
	Executable  string
	Method      MethodRef
	CatchMethod *MethodRef
}

// Caught reports whether the fault's disposition was already known at throw
// time.
func (ev *ThrowEvent) Caught() bool {
	return ev.CatchMethod != nil
}

// CatchEvent describes a fault being caught. Method is the catch site.
type CatchEvent struct {
	ThreadID int64
	Fault    Identity
	Method   MethodRef
}

// PendingReport is the deferred-decision record parked between a top-level
// throw and its resolution by a catch or by thread end. It is owned by the
// pending registry until popped; ownership then transfers to the handler
// that popped it.
type PendingReport struct {
	Reason     string
	StackTrace string
	Executable string
	TypeName   string
	Extra      []InfoPair
	Fault      Identity
}
