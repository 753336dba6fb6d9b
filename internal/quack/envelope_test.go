package quack

import "testing"

func TestEnvelopeRoundTripsPowerSum(t *testing.T) {
	q := NewPowerSum(4)
	for _, v := range []uint32{1, 2, 3} {
		q.Insert(v)
	}
	wrapped := WrapPowerSum(q)

	tag, payload, err := Unwrap(wrapped)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if tag != TagPowerSum {
		t.Fatalf("expected TagPowerSum, got %v", tag)
	}
	parsed, err := PowerSumFromBytes(payload)
	if err != nil {
		t.Fatalf("PowerSumFromBytes: %v", err)
	}
	if parsed.Count != q.Count {
		t.Fatalf("count mismatch after envelope round trip: got %d want %d", parsed.Count, q.Count)
	}

	decoded, err := DecodeEnvelope(wrapped, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if _, ok := decoded.(*PowerSum); !ok {
		t.Fatalf("expected DecodeEnvelope to return *PowerSum, got %T", decoded)
	}
}

func TestEnvelopeRoundTripsRIBLT(t *testing.T) {
	r := NewRIBLT(32, ModeSubsetOnly)
	for _, h := range []uint32{10, 20, 30} {
		r.Insert(h)
	}
	wrapped := WrapRIBLT(r)

	tag, _, err := Unwrap(wrapped)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if tag != TagRIBLT {
		t.Fatalf("expected TagRIBLT, got %v", tag)
	}

	decoded, err := DecodeEnvelope(wrapped, ModeSubsetOnly)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	parsed, ok := decoded.(*RIBLT)
	if !ok {
		t.Fatalf("expected DecodeEnvelope to return *RIBLT, got %T", decoded)
	}
	if parsed.Count != r.Count {
		t.Fatalf("count mismatch after envelope round trip: got %d want %d", parsed.Count, r.Count)
	}
}

func TestUnwrapRejectsEmptyBuffer(t *testing.T) {
	if _, _, err := Unwrap(nil); err == nil {
		t.Fatalf("expected an error unwrapping an empty envelope")
	}
}

func TestDecodeEnvelopeRejectsUnknownTag(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0xff, 1, 2, 3}, ModeSubsetOnly); err == nil {
		t.Fatalf("expected an error for an unrecognized envelope tag")
	}
}
