package accumulator

import (
	"testing"

	"github.com/rawblock/quack-go/internal/iblt"
	"github.com/rawblock/quack-go/internal/seed"
)

func newTestIBLT() *iblt.IBLT {
	return iblt.New(512, 8, 4, 7)
}

func TestIBLTAccumulatorExactMatch(t *testing.T) {
	log := packets(6)
	a := NewIBLTAccumulator(seed.Deterministic(1), newTestIBLT(), nil)
	a.ProcessBatch(log)

	res, err := a.Validate(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v", res)
	}
}

func TestIBLTAccumulatorPeelsSingleDrop(t *testing.T) {
	log := packets(10)
	a := NewIBLTAccumulator(seed.Deterministic(2), newTestIBLT(), nil)
	received := append(append([][]byte{}, log[:5]...), log[6:]...)
	a.ProcessBatch(received)

	res, err := a.Validate(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid after peeling a single drop, got %v", res)
	}
}

func TestIBLTAccumulatorPeelsMultipleDrops(t *testing.T) {
	log := packets(100)
	a := NewIBLTAccumulator(seed.Deterministic(3), newTestIBLT(), nil)
	received := make([][]byte, 0, 90)
	for i, e := range log {
		if i%10 == 0 {
			continue
		}
		received = append(received, e)
	}
	a.ProcessBatch(received)

	res, err := a.Validate(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid after peeling multiple drops, got %v", res)
	}
}

func TestIBLTAccumulatorInvalidInjection(t *testing.T) {
	log := packets(10)
	a := NewIBLTAccumulator(seed.Deterministic(4), newTestIBLT(), nil)
	received := append(append([][]byte{}, log[:8]...), []byte("an-injected-packet"))
	a.ProcessBatch(received)

	res, err := a.Validate(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsValid() {
		t.Fatalf("expected a rejection for an injected element, got %v", res)
	}
}

func TestIBLTAccumulatorToBytesFromBytesRoundTrip(t *testing.T) {
	log := packets(6)
	a := NewIBLTAccumulator(seed.Deterministic(5), newTestIBLT(), nil)
	a.ProcessBatch(log)
	data := a.ToBytes()

	b := NewIBLTAccumulator(seed.Deterministic(55), newTestIBLT(), nil)
	if err := b.FromBytes(data); err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	res, err := b.Validate(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid after round-trip, got %v", res)
	}
}
