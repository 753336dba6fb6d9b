package accumulator

var (
	_ Accumulator = (*Naive)(nil)
	_ Accumulator = (*PowerSum)(nil)
	_ Accumulator = (*CBFAccumulator)(nil)
	_ Accumulator = (*IBLTAccumulator)(nil)
)
