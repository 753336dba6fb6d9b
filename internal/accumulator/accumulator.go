// Package accumulator implements the four interchangeable digest
// strategies (naive, power-sum, CBF, IBLT) spec.md describes, all built on
// the AMH as the shared correctness anchor. Each strategy is its own type
// implementing the Accumulator interface rather than a single "god" struct
// with mode branches, per the strategy-polymorphism design note — callers
// select a concrete type at construction and program against the
// interface from then on.
package accumulator

// Result is the outcome of validating an accumulator against a candidate
// log (spec.md §6's ValidationResult enum).
type Result int

const (
	Valid Result = iota
	Invalid
	PsumExceedsThreshold
	PsumErrorFindingRoots
	PsumCollisionsValid
	PsumCollisionsInvalid
	IbltIlpValid
	IbltIlpInvalid
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "Valid"
	case Invalid:
		return "Invalid"
	case PsumExceedsThreshold:
		return "PsumExceedsThreshold"
	case PsumErrorFindingRoots:
		return "PsumErrorFindingRoots"
	case PsumCollisionsValid:
		return "PsumCollisionsValid"
	case PsumCollisionsInvalid:
		return "PsumCollisionsInvalid"
	case IbltIlpValid:
		return "IbltIlpValid"
	case IbltIlpInvalid:
		return "IbltIlpInvalid"
	default:
		return "Unknown"
	}
}

// IsValid collapses the three "accepted" outcomes to true; every other
// Result is a rejection or an undecidable state.
func (r Result) IsValid() bool {
	switch r {
	case Valid, PsumCollisionsValid, IbltIlpValid:
		return true
	default:
		return false
	}
}

// Accumulator is the trait every digest strategy implements (spec.md §6).
type Accumulator interface {
	Insert(elem []byte)
	ProcessBatch(elems [][]byte)
	Total() uint32
	Validate(log [][]byte) (Result, error)
	ToBytes() []byte
	FromBytes(data []byte) error
	Reset()
}
