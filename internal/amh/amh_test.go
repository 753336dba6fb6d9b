package amh

import (
	"testing"

	"github.com/rawblock/quack-go/internal/seed"
)

func genElements(src seed.Source, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = src.Bytes(16)
	}
	return out
}

func TestDifferentElementsProduceDifferentDigests(t *testing.T) {
	src := seed.Deterministic(1)
	setA := genElements(src, 10)
	setB := genElements(src, 10)

	a := New(seed.Deterministic(2))
	b := New(seed.Deterministic(3))
	a.AddAll(setA)
	b.AddAll(setB)

	if a.Equals(b) {
		t.Fatalf("distinct multisets should not be equal")
	}
}

func TestEqualityWorksWithDifferentNonces(t *testing.T) {
	src := seed.Deterministic(10)
	set := genElements(src, 10)

	a := New(seed.Deterministic(11))
	b := New(seed.Deterministic(12))
	a.AddAll(set)
	b.AddAll(set)

	if a.H == b.H {
		t.Fatalf("different nonces should produce different raw hashes")
	}
	if !a.Equals(b) {
		t.Fatalf("same multiset under different nonces should be equal")
	}
}

func TestSetAndMultisetCollision(t *testing.T) {
	src := seed.Deterministic(20)
	set := genElements(src, 10)

	a := New(seed.Deterministic(21))
	b := New(seed.Deterministic(22))
	a.AddAll(set)
	b.AddAll(set)
	b.Add(set[0])

	if a.Equals(b) {
		t.Fatalf("a set should not equal a multiset with a duplicated element")
	}
	a.Add(set[0])
	if !a.Equals(b) {
		t.Fatalf("matching multiplicities should be equal again")
	}
}

func TestElementOrderDoesNotMatter(t *testing.T) {
	src := seed.Deterministic(30)
	setA := genElements(src, 10)
	setB := make([][]byte, len(setA))
	copy(setB, setA)
	for i := len(setB) - 1; i > 0; i-- {
		setB[i], setB[0] = setB[0], setB[i]
	}

	a := New(seed.Deterministic(31))
	b := New(seed.Deterministic(32))
	a.AddAll(setA)
	b.AddAll(setB)

	if !a.Equals(b) {
		t.Fatalf("insertion order should not affect equality")
	}
}

func TestCountMismatchNeverEqual(t *testing.T) {
	src := seed.Deterministic(40)
	set := genElements(src, 5)

	a := New(seed.Deterministic(41))
	b := New(seed.Deterministic(42))
	a.AddAll(set)
	b.AddAll(set[:4])

	if a.Equals(b) {
		t.Fatalf("different counts should never be equal")
	}
}
