package cbf

import "testing"

func TestInsertAndContains(t *testing.T) {
	f := New(256, 8, 4, 1)
	elem := []byte("packet-a")
	if f.Contains(elem) {
		t.Fatalf("fresh filter should not contain anything")
	}
	if err := f.Insert(elem); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if !f.Contains(elem) {
		t.Fatalf("filter should contain inserted element")
	}
}

func TestCounterOverflow(t *testing.T) {
	f := New(16, 1, 2, 1) // width 1 -> max value 1
	elem := []byte("x")
	if err := f.Insert(elem); err != nil {
		t.Fatalf("first insert should succeed: %v", err)
	}
	if err := f.Insert(elem); err != ErrCounterOverflow {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}
}

func TestEmptyClonePreservesShapeAndSeed(t *testing.T) {
	f := New(128, 8, 3, 99)
	f.Insert([]byte("a"))
	clone := f.EmptyClone()
	if clone.Counters.Len() != f.Counters.Len() || clone.K != f.K || clone.Seed != f.Seed {
		t.Fatalf("empty clone must preserve k, m, seed")
	}
	if clone.Contains([]byte("a")) {
		t.Fatalf("empty clone must start zeroed")
	}
	// indexes must match the original's frame exactly
	orig := f.Indexes([]byte("a"))
	cloned := clone.Indexes([]byte("a"))
	for i := range orig {
		if orig[i] != cloned[i] {
			t.Fatalf("empty clone must compute identical cell indexes")
		}
	}
}
