// Package shadow runs a candidate digest strategy alongside the
// production one over the same observations and records where they
// disagree, so a new strategy can be evaluated against live traffic
// before a deployment switches to it.
package shadow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/quack-go/internal/accumulator"
	"github.com/rawblock/quack-go/internal/seed"
)

// Runner compares a production strategy against a candidate ("shadow")
// strategy over identical input, persisting every comparison and
// flagging the ones where the two disagree on validity.
type Runner struct {
	pool       *pgxpool.Pool
	snapshotID int64
	production accumulator.StrategyConfig
	shadow     accumulator.StrategyConfig
	src        seed.Source
}

// Comparison captures the production/shadow verdicts for one observed
// batch against one candidate log.
type Comparison struct {
	SnapshotID       int64
	ProductionKind   string
	ShadowKind       string
	ProductionResult string
	ShadowResult     string
	ProductionValid  bool
	ShadowValid      bool
	Diverged         bool
	CreatedAt        time.Time
}

// NewRunner builds a Runner. pool may be nil, in which case comparisons
// are computed (divergences still logged) but not persisted.
func NewRunner(pool *pgxpool.Pool, snapshotID int64, production, shadow accumulator.StrategyConfig, src seed.Source) *Runner {
	return &Runner{
		pool:       pool,
		snapshotID: snapshotID,
		production: production,
		shadow:     shadow,
		src:        src,
	}
}

// Compare runs both strategies over observed and validates each against
// log, persisting the result when the Runner has a pool. Only divergences
// (one strategy calls the batch valid and the other doesn't) are logged,
// since they indicate the candidate strategy disagrees with
// production on ground truth it has no business disagreeing on.
func (r *Runner) Compare(ctx context.Context, observed, log2 [][]byte) (*Comparison, error) {
	prodAcc, err := accumulator.New(r.production, r.src)
	if err != nil {
		return nil, fmt.Errorf("shadow: production strategy: %w", err)
	}
	shadowAcc, err := accumulator.New(r.shadow, r.src)
	if err != nil {
		return nil, fmt.Errorf("shadow: shadow strategy: %w", err)
	}

	prodAcc.ProcessBatch(observed)
	shadowAcc.ProcessBatch(observed)

	prodResult, err := prodAcc.Validate(log2)
	if err != nil {
		return nil, fmt.Errorf("shadow: production validate: %w", err)
	}
	shadowResult, err := shadowAcc.Validate(log2)
	if err != nil {
		return nil, fmt.Errorf("shadow: shadow validate: %w", err)
	}

	comparison := &Comparison{
		SnapshotID:       r.snapshotID,
		ProductionKind:   r.production.Kind,
		ShadowKind:       r.shadow.Kind,
		ProductionResult: prodResult.String(),
		ShadowResult:     shadowResult.String(),
		ProductionValid:  prodResult.IsValid(),
		ShadowValid:      shadowResult.IsValid(),
		Diverged:         prodResult.IsValid() != shadowResult.IsValid(),
		CreatedAt:        time.Now(),
	}

	if comparison.Diverged {
		log.Printf("[shadow] DIVERGENCE on snapshot %d: production(%s)=%s shadow(%s)=%s",
			r.snapshotID, comparison.ProductionKind, comparison.ProductionResult,
			comparison.ShadowKind, comparison.ShadowResult)
	}

	if r.pool != nil {
		if err := r.persist(ctx, comparison); err != nil {
			return comparison, err
		}
	}

	return comparison, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS shadow_comparisons (
	id                SERIAL PRIMARY KEY,
	snapshot_id       BIGINT NOT NULL,
	production_kind   TEXT NOT NULL,
	shadow_kind       TEXT NOT NULL,
	production_result TEXT NOT NULL,
	shadow_result     TEXT NOT NULL,
	diverged          BOOLEAN NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// InitSchema creates the shadow_comparisons table if it does not already
// exist. A no-op if the Runner has no pool.
func (r *Runner) InitSchema(ctx context.Context) error {
	if r.pool == nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("shadow: schema init: %w", err)
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, c *Comparison) error {
	const insertSQL = `
		INSERT INTO shadow_comparisons
			(snapshot_id, production_kind, shadow_kind, production_result, shadow_result, diverged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, insertSQL,
		c.SnapshotID, c.ProductionKind, c.ShadowKind, c.ProductionResult, c.ShadowResult, c.Diverged, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("shadow: persist comparison: %w", err)
	}
	return nil
}

// DriftReport summarizes divergence rate across every comparison
// recorded for this Runner's snapshot.
type DriftReport struct {
	TotalRuns   int
	Divergences int
}

// DivergenceRate returns the fraction of comparisons where production
// and shadow disagreed, or 0 if no comparisons have run.
func (d DriftReport) DivergenceRate() float64 {
	if d.TotalRuns == 0 {
		return 0
	}
	return float64(d.Divergences) / float64(d.TotalRuns)
}

// GenerateDriftReport queries accumulated divergence statistics for this
// Runner's snapshot.
func (r *Runner) GenerateDriftReport(ctx context.Context) (DriftReport, error) {
	if r.pool == nil {
		return DriftReport{}, fmt.Errorf("shadow: no database configured")
	}
	const querySQL = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE diverged) AS divergences
		FROM shadow_comparisons
		WHERE snapshot_id = $1
	`
	row := r.pool.QueryRow(ctx, querySQL, r.snapshotID)
	var report DriftReport
	if err := row.Scan(&report.TotalRuns, &report.Divergences); err != nil {
		return DriftReport{}, fmt.Errorf("shadow: drift report: %w", err)
	}
	return report, nil
}
