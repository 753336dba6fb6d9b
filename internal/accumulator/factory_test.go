package accumulator

import (
	"testing"

	"github.com/rawblock/quack-go/internal/seed"
)

func TestFactoryBuildsEachKnownStrategy(t *testing.T) {
	cfg := StrategyConfig{
		Kind:              "naive",
		PowerSumThreshold: 4,
		CBFCells:          256, CBFWidth: 8, CBFK: 4,
		IBLTCells: 256, IBLTWidth: 8, IBLTK: 4,
	}
	for _, kind := range []string{"naive", "powersum", "cbf", "iblt"} {
		cfg.Kind = kind
		acc, err := New(cfg, seed.Deterministic(1))
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		log := packets(5)
		acc.ProcessBatch(log)
		res, err := acc.Validate(log)
		if err != nil {
			t.Fatalf("%s: Validate: %v", kind, err)
		}
		if !res.IsValid() {
			t.Fatalf("%s: expected a valid exact-match result, got %v", kind, res)
		}
	}
}

func TestFactoryRejectsUnknownStrategy(t *testing.T) {
	if _, err := New(StrategyConfig{Kind: "bogus"}, seed.Deterministic(1)); err == nil {
		t.Fatalf("expected an error for an unknown strategy")
	}
}
