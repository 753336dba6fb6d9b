package quack

import (
	"encoding/binary"
	"fmt"

	"github.com/rawblock/quack-go/internal/field"
)

// ErrThresholdExceeded is returned by DecodeWithLog when the quACK's
// apparent size difference exceeds the number of power sums it carries.
var ErrThresholdExceeded = fmt.Errorf("quack: power-sum difference exceeds threshold")

// PowerSum is the wire-serializable quACK counterpart of
// internal/accumulator.PowerSum: the field vector P[1..t], a wrapping
// element count, and a last_value hint, with none of the AMH bookkeeping
// the full accumulator carries — a quACK is meant to be thrown on the
// wire and decoded against a candidate log, not to answer "is this
// multiset a subset" on its own.
type PowerSum struct {
	P            []field.Elem
	Count        uint32
	T            int
	LastValue    uint32
	HasLastValue bool
}

// NewPowerSum allocates an empty power-sum quACK with threshold t.
func NewPowerSum(t int) *PowerSum {
	return &PowerSum{P: make([]field.Elem, t), T: t}
}

// Insert folds a 31-bit masked element image into every power sum and
// records it as the last_value hint.
func (q *PowerSum) Insert(image uint32) {
	x := field.New(uint64(image))
	pow := field.Elem(1)
	for j := 0; j < q.T; j++ {
		pow = field.Mul(pow, x)
		q.P[j] = field.Add(q.P[j], pow)
	}
	q.Count++
	q.LastValue = image
	q.HasLastValue = true
}

// Remove unfolds a 31-bit masked element image from every power sum,
// clearing the last_value hint if it named the element being removed —
// at that point the actual last element is unknown.
func (q *PowerSum) Remove(image uint32) {
	x := field.New(uint64(image))
	pow := field.Elem(1)
	for j := 0; j < q.T; j++ {
		pow = field.Mul(pow, x)
		q.P[j] = field.Sub(q.P[j], pow)
	}
	q.Count--
	if q.HasLastValue && q.LastValue == image {
		q.HasLastValue = false
	}
}

// SubAssign subtracts rhs from q term-wise, leaving q holding the coded
// difference of the two multisets. Both quACKs must share the same
// threshold t. The resulting last_value is unknown, since it no longer
// names an element of either original multiset.
func (q *PowerSum) SubAssign(rhs *PowerSum) error {
	if q.T != rhs.T {
		return fmt.Errorf("quack: power-sum threshold mismatch: %d vs %d", q.T, rhs.T)
	}
	for j := range q.P {
		q.P[j] = field.Sub(q.P[j], rhs.P[j])
	}
	q.Count -= rhs.Count
	q.LastValue = 0
	q.HasLastValue = false
	return nil
}

// Diff interprets Count as the signed element-count difference left after
// a SubAssign: positive when q's side holds more elements than the side
// it was subtracted against.
func (q *PowerSum) Diff() int32 {
	return int32(q.Count)
}

// DecodeWithLog evaluates the quACK's coefficient polynomial at every
// element of log (as a 31-bit masked image) and returns those elements
// whose image is a root — duplicates in log are returned with whatever
// multiplicity they appear in log, regardless of the polynomial's own
// root multiplicity, since a quACK carries no AMH to disambiguate
// collisions the way the full accumulator's combination search does.
func (q *PowerSum) DecodeWithLog(log []uint32) ([]uint32, error) {
	d := int(q.Diff())
	if d <= 0 {
		return nil, nil
	}
	if d > q.T {
		return nil, ErrThresholdExceeded
	}
	// A single missing element is exactly what last_value names: the peer
	// that built this quACK inserted it and never removed it, so there is
	// no need to fall through to root-finding over log at all.
	if d == 1 && q.HasLastValue {
		return []uint32{q.LastValue}, nil
	}
	coeffs := field.Newton(q.P[:d])
	var out []uint32
	for _, image := range log {
		x := field.New(uint64(image))
		if field.Eval(coeffs, x) == 0 {
			out = append(out, image)
		}
	}
	return out, nil
}

// ToBytes serializes count:u32 LE ‖ last_value:u32 LE ‖ p_1..p_T (each
// u32 LE). The wire format has no presence bit for last_value — when
// HasLastValue is false the field is emitted as 0, matching the Rust
// reference's deserialize, which always reconstructs last_value as
// present regardless of whether the sender actually knew it.
func (q *PowerSum) ToBytes() []byte {
	buf := make([]byte, 8+4*q.T)
	binary.LittleEndian.PutUint32(buf[0:4], q.Count)
	binary.LittleEndian.PutUint32(buf[4:8], q.LastValue)
	for j, p := range q.P {
		binary.LittleEndian.PutUint32(buf[8+4*j:12+4*j], uint32(p))
	}
	return buf
}

// ToBytesHint emits only the first min(T, numMissing) power sums — the
// peer needs no more of the polynomial to decode a difference that small.
func (q *PowerSum) ToBytesHint(numMissing int) []byte {
	k := numMissing
	if k > q.T || k < 0 {
		k = q.T
	}
	buf := make([]byte, 8+4*k)
	binary.LittleEndian.PutUint32(buf[0:4], q.Count)
	binary.LittleEndian.PutUint32(buf[4:8], q.LastValue)
	for j := 0; j < k; j++ {
		binary.LittleEndian.PutUint32(buf[8+4*j:12+4*j], uint32(q.P[j]))
	}
	return buf
}

// PowerSumFromBytes parses a power-sum quACK wire form, inferring t from
// the buffer length. The decoded last_value is always marked present,
// mirroring the Rust reference's deserialize.
func PowerSumFromBytes(data []byte) (*PowerSum, error) {
	if len(data) < 8 || (len(data)-8)%4 != 0 {
		return nil, fmt.Errorf("quack: malformed power-sum buffer of length %d", len(data))
	}
	t := (len(data) - 8) / 4
	q := &PowerSum{P: make([]field.Elem, t), T: t}
	q.Count = binary.LittleEndian.Uint32(data[0:4])
	q.LastValue = binary.LittleEndian.Uint32(data[4:8])
	q.HasLastValue = true
	for j := 0; j < t; j++ {
		q.P[j] = field.Elem(binary.LittleEndian.Uint32(data[8+4*j : 12+4*j]))
	}
	return q, nil
}
