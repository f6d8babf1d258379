package dedup

import (
	"testing"

	"github.com/mhabrnal/abrt-java-connector/internal/fault"
)

func TestBuffer_PushAndFind(t *testing.T) {
	b := NewBuffer(5, nil)

	b.Push(fault.Identity(1))
	b.Push(fault.Identity(2))

	if !b.Find(fault.Identity(1)) {
		t.Error("Find(1) = false, want true")
	}
	if !b.Find(fault.Identity(2)) {
		t.Error("Find(2) = false, want true")
	}
	if b.Find(fault.Identity(3)) {
		t.Error("Find(3) = true, want false")
	}
}

func TestBuffer_OverwritesOldest(t *testing.T) {
	b := NewBuffer(2, nil)

	b.Push(fault.Identity(1)) // A
	b.Push(fault.Identity(2)) // B
	b.Push(fault.Identity(3)) // C overwrites A

	if b.Find(fault.Identity(1)) {
		t.Error("Find(A) = true, want false after overflow")
	}
	if !b.Find(fault.Identity(2)) {
		t.Error("Find(B) = false, want true")
	}
	if !b.Find(fault.Identity(3)) {
		t.Error("Find(C) = false, want true")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBuffer_CapacityFixed(t *testing.T) {
	b := NewBuffer(3, nil)

	for i := 0; i < 10; i++ {
		b.Push(fault.Identity(i))
	}

	if b.Cap() != 3 {
		t.Errorf("Cap() = %d, want 3", b.Cap())
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
	// Only the three most recent survive.
	for i := 7; i < 10; i++ {
		if !b.Find(fault.Identity(i)) {
			t.Errorf("Find(%d) = false, want true", i)
		}
	}
	if b.Find(fault.Identity(6)) {
		t.Error("Find(6) = true, want false")
	}
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	b := NewBuffer(0, nil)
	if b.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", b.Cap(), DefaultCapacity)
	}
}

func TestBuffer_CustomEquality(t *testing.T) {
	// Two handles denote the same logical fault when their low byte matches.
	eq := func(a, b fault.Identity) bool { return a&0xff == b&0xff }
	b := NewBuffer(5, eq)

	b.Push(fault.Identity(0x101))
	if !b.Find(fault.Identity(0x201)) {
		t.Error("Find with matching low byte = false, want true")
	}
	if b.Find(fault.Identity(0x202)) {
		t.Error("Find with different low byte = true, want false")
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	r := NewRegistry(5, nil)

	if r.Get(7) != nil {
		t.Error("Get() before create should return nil")
	}

	b := r.GetOrCreate(7)
	if b == nil {
		t.Fatal("GetOrCreate() returned nil")
	}
	if r.GetOrCreate(7) != b {
		t.Error("GetOrCreate() should return same instance")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistry_Pop(t *testing.T) {
	r := NewRegistry(5, nil)
	b := r.GetOrCreate(7)

	popped := r.Pop(7)
	if popped != b {
		t.Error("Pop() should return the thread's buffer")
	}
	if r.Get(7) != nil {
		t.Error("Get() after Pop should return nil")
	}
	if r.Pop(7) != nil {
		t.Error("second Pop() should return nil")
	}
}
