package iblt

import "testing"

func TestInsertThenRemoveIsIdentity(t *testing.T) {
	b := New(64, 8, 3, 42)
	elem := []byte("packet-a")
	b.Insert(elem)
	b.RemoveImage(hashFor(elem))
	for i := 0; i < b.Counters.Len(); i++ {
		if b.Counters.Get(i) != 0 || b.Data[i] != 0 {
			t.Fatalf("cell %d not zeroed after insert+remove", i)
		}
	}
}

func TestEliminateElemsSingleton(t *testing.T) {
	b := New(64, 8, 3, 7)
	elem := []byte("only-one")
	b.Insert(elem)

	peeled := b.EliminateElems()
	if len(peeled) != 1 {
		t.Fatalf("expected exactly one peeled element, got %d", len(peeled))
	}
	if peeled[0] != hashFor(elem) {
		t.Fatalf("peeled image mismatch: got %d want %d", peeled[0], hashFor(elem))
	}
	if b.Sum() != 0 {
		t.Fatalf("sketch should be empty after peeling its only element")
	}
}

func TestEliminateElemsMultiple(t *testing.T) {
	b := New(256, 8, 4, 99)
	elems := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	for _, e := range elems {
		b.Insert(e)
	}

	peeled := b.EliminateElems()
	if len(peeled) != len(elems) {
		t.Fatalf("expected %d peeled elements, got %d", len(elems), len(peeled))
	}

	want := make(map[uint32]bool)
	for _, e := range elems {
		want[hashFor(e)] = true
	}
	for _, p := range peeled {
		if !want[p] {
			t.Fatalf("peeled unexpected image %d", p)
		}
		delete(want, p)
	}
	if len(want) != 0 {
		t.Fatalf("not all elements were peeled: %v remaining", want)
	}
}

func TestSubAssignDifference(t *testing.T) {
	logged := New(128, 8, 3, 5)
	received := logged.EmptyClone()

	common := [][]byte{[]byte("1"), []byte("2"), []byte("3")}
	dropped := []byte("dropped")

	for _, e := range common {
		logged.Insert(e)
		received.Insert(e)
	}
	logged.Insert(dropped)

	diff := logged.EmptyClone()
	for i := 0; i < diff.Counters.Len(); i++ {
		diff.Counters.Set(i, logged.Counters.Get(i))
		diff.Data[i] = logged.Data[i]
	}
	diff.SubAssign(received)

	peeled := diff.EliminateElems()
	if len(peeled) != 1 || peeled[0] != hashFor(dropped) {
		t.Fatalf("expected to peel the single dropped element, got %v", peeled)
	}
}

func TestIndexesForImageMatchesIndexes(t *testing.T) {
	b := New(64, 8, 3, 1)
	elem := []byte("same-cells")
	a := b.Indexes(elem)
	c := b.IndexesForImage(hashFor(elem))
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("Indexes and IndexesForImage diverge at %d: %d vs %d", i, a[i], c[i])
		}
	}
}

func hashFor(elem []byte) uint32 {
	h := uint32(5381)
	for _, b := range elem {
		h = h*33 + uint32(b)
	}
	return h
}
