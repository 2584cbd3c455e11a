package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/pipeline"
	embedsql "github.com/regulahealth/parity/internal/sql"
)

const copyBatchSize = 1024

// RunMeta carries provenance the pipeline result does not know: which
// claims file produced it and against which table versions it ran.
type RunMeta struct {
	ClaimsFile     string
	FileSHA256     string
	RateVersion    string
	GeoVersion     string
	ToleranceCents int64
}

// SaveResult persists a completed run: the run row, every evaluated claim
// via COPY, every quarantined claim, and the summary groups.
func SaveResult(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, res *pipeline.Result, meta RunMeta) error {
	start := time.Now()

	if _, err := pool.Exec(ctx, embedsql.InsertRun,
		res.RunID,
		string(res.State),
		meta.ClaimsFile,
		meta.FileSHA256,
		meta.RateVersion,
		meta.GeoVersion,
		meta.ToleranceCents,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stored, err := copyResults(ctx, pool, res)
	if err != nil {
		return fmt.Errorf("copy claim results: %w", err)
	}

	for _, q := range res.Quarantined {
		if _, err := pool.Exec(ctx, embedsql.InsertQuarantine,
			res.RunID,
			q.Claim.ClaimID,
			q.Claim.PayerID,
			q.Claim.ServiceCode,
			q.Kind(),
			q.Err.Error(),
		); err != nil {
			return fmt.Errorf("insert quarantined claim %q: %w", q.Claim.ClaimID, err)
		}
	}

	if res.Summary != nil {
		dims := []struct {
			name   string
			groups []model.GroupSummary
		}{
			{"payer", res.Summary.ByPayer},
			{"category", res.Summary.ByCategory},
			{"month", res.Summary.ByMonth},
		}
		for _, d := range dims {
			for _, g := range d.groups {
				if _, err := pool.Exec(ctx, embedsql.InsertSummaryGroup,
					res.RunID,
					d.name,
					g.Key,
					g.Claims,
					g.Violations,
					int64(g.Recoverable),
					g.ViolationRateBps,
					int64(g.AvgUnderpayment),
				); err != nil {
					return fmt.Errorf("insert summary group %s/%s: %w", d.name, g.Key, err)
				}
			}
		}
	}

	var violations, recoverable int64
	if res.Summary != nil {
		violations = res.Summary.Violations
		recoverable = int64(res.Summary.Recoverable)
	}
	if _, err := pool.Exec(ctx, embedsql.FinalizeRun,
		res.RunID,
		string(res.State),
		int64(len(res.Evaluated)),
		int64(len(res.Quarantined)),
		violations,
		recoverable,
		res.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}

	log.Info().
		Str("run_id", res.RunID.String()).
		Int64("results_stored", stored).
		Int("quarantined", len(res.Quarantined)).
		Str("duration", time.Since(start).String()).
		Msg("run persisted")

	return nil
}

// copyResults streams evaluated claims through a channel-backed COPY into
// parity.claim_results.
func copyResults(ctx context.Context, pool *pgxpool.Pool, res *pipeline.Result) (int64, error) {
	if len(res.Evaluated) == 0 {
		return 0, nil
	}

	ch := make(chan *ResultRow, copyBatchSize)
	go func() {
		defer close(ch)
		for _, ec := range res.Evaluated {
			select {
			case ch <- NewResultRow(res.RunID, ec):
			case <-ctx.Done():
				return
			}
		}
	}()

	return pool.CopyFrom(ctx,
		pgx.Identifier{"parity", "claim_results"},
		ResultColumns(),
		NewChannelSource(ch),
	)
}
