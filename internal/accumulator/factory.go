package accumulator

import (
	"fmt"

	"github.com/rawblock/quack-go/internal/cbf"
	"github.com/rawblock/quack-go/internal/iblt"
	"github.com/rawblock/quack-go/internal/seed"
)

// StrategyConfig names a digest strategy and whatever sizing parameters
// it needs, so the router and verifier CLIs can agree on one from a flag
// or config file rather than hard-coding a concrete type.
type StrategyConfig struct {
	Kind string // "naive", "powersum", "cbf", or "iblt"

	PowerSumThreshold int

	CBFCells, CBFWidth, CBFK int

	IBLTCells, IBLTWidth, IBLTK int
}

// New builds the Accumulator cfg.Kind names, seeded from src.
func New(cfg StrategyConfig, src seed.Source) (Accumulator, error) {
	switch cfg.Kind {
	case "naive":
		return NewNaive(src), nil
	case "powersum":
		return NewPowerSum(cfg.PowerSumThreshold, src, nil), nil
	case "cbf":
		filter := cbf.New(cfg.CBFCells, cfg.CBFWidth, cfg.CBFK, src.Uint64())
		return NewCBFAccumulator(src, filter, nil), nil
	case "iblt":
		sketch := iblt.New(cfg.IBLTCells, cfg.IBLTWidth, cfg.IBLTK, src.Uint64())
		return NewIBLTAccumulator(src, sketch, nil), nil
	default:
		return nil, fmt.Errorf("accumulator: unknown strategy %q", cfg.Kind)
	}
}
