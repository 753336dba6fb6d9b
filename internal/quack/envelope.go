package quack

import "fmt"

// Tag identifies which quACK variant an envelope carries on the wire.
type Tag byte

const (
	// TagPowerSum marks an envelope payload as a power-sum quACK.
	TagPowerSum Tag = 0x00
	// TagRIBLT marks an envelope payload as a RIBLT quACK.
	TagRIBLT Tag = 0x01
	// TagAccumulator marks an envelope payload as a full AMH-backed
	// accumulator's own ToBytes() form (naive, power-sum, CBF, or IBLT) —
	// the router/verifier TCP feed uses this tag for strategies quACK
	// itself has no sketch for, while still routing every digest through
	// the same tagged envelope.
	TagAccumulator Tag = 0x02
)

// WrapPowerSum prefixes a power-sum quACK's wire form with its tag byte.
func WrapPowerSum(q *PowerSum) []byte {
	return append([]byte{byte(TagPowerSum)}, q.ToBytes()...)
}

// WrapRIBLT prefixes a RIBLT quACK's wire form with its tag byte.
func WrapRIBLT(r *RIBLT) []byte {
	return append([]byte{byte(TagRIBLT)}, r.ToBytes()...)
}

// WrapAccumulator prefixes a full accumulator's serialized digest with the
// envelope tag byte, so every digest the router ships — not only quACK
// sketches — travels inside the same on-wire envelope.
func WrapAccumulator(data []byte) []byte {
	return append([]byte{byte(TagAccumulator)}, data...)
}

// Unwrap splits a tagged envelope into its variant tag and payload.
func Unwrap(data []byte) (Tag, []byte, error) {
	if len(data) < 1 {
		return 0, nil, fmt.Errorf("quack: empty envelope")
	}
	return Tag(data[0]), data[1:], nil
}

// DecodeEnvelope dispatches a tagged envelope to the matching FromBytes
// constructor, returning whichever concrete quACK type it held. A
// TagAccumulator envelope carries no quACK-parseable type of its own, so
// its payload is returned as raw bytes for the caller's own
// accumulator.FromBytes to consume.
func DecodeEnvelope(data []byte, ribltMode DecodeMode) (any, error) {
	tag, payload, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagPowerSum:
		return PowerSumFromBytes(payload)
	case TagRIBLT:
		return RIBLTFromBytes(payload, ribltMode)
	case TagAccumulator:
		return payload, nil
	default:
		return nil, fmt.Errorf("quack: unknown envelope tag 0x%02x", byte(tag))
	}
}
