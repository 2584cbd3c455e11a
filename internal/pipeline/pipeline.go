package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/regulahealth/parity/internal/aggregate"
	"github.com/regulahealth/parity/internal/detect"
	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/payer"
	"github.com/regulahealth/parity/internal/rates"
	"github.com/regulahealth/parity/internal/resolve"
)

// PhaseError wraps an error with the pipeline phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// ErrNoEvaluatedClaims reports a batch where nothing could be evaluated:
// either the batch was empty or every claim was quarantined. When Run returns
// it alongside a Result, the Result still carries the quarantine list.
var ErrNoEvaluatedClaims = errors.New("no claims could be evaluated")

// State is the terminal status of a run.
type State string

const (
	StateCompleted       State = "completed"
	StatePartiallyFailed State = "partially_failed"
	StateFailed          State = "failed"
)

// Tables bundles the immutable reference tables a run evaluates against.
// Build each table once, then share the bundle freely across workers.
type Tables struct {
	Rates  *rates.Table
	Geo    *rates.GeoTable
	Payers *payer.Registry
}

// Validate reports missing tables. Content validation already happened at
// table construction.
func (t *Tables) Validate() error {
	if t == nil {
		return fmt.Errorf("tables not loaded")
	}
	if t.Rates == nil {
		return fmt.Errorf("rate table not loaded")
	}
	if t.Geo == nil {
		return fmt.Errorf("geo table not loaded")
	}
	if t.Payers == nil {
		return fmt.Errorf("payer registry not loaded")
	}
	return nil
}

// Options tunes one run.
type Options struct {
	// Workers caps the evaluation goroutines; <= 0 uses GOMAXPROCS.
	Workers int
	// Tolerance is applied as given; detect.DefaultTolerance is the
	// conventional one-cent allowance.
	Tolerance money.Cents
}

// Result is the complete outcome of one batch run.
type Result struct {
	RunID       uuid.UUID
	State       State
	Evaluated   []model.EnrichedClaim
	Quarantined []model.QuarantinedClaim
	Summary     *model.AggregateSummary
	Duration    time.Duration
}

// Run executes the compliance pipeline over one claim batch: validate →
// evaluate (parallel resolve+detect with per-claim quarantine) → aggregate.
// Worker count never changes the output: evaluated claims keep batch order
// and the aggregate is merged from per-worker partials deterministically.
func Run(ctx context.Context, log zerolog.Logger, tables *Tables, claims []model.Claim, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	log = log.With().Str("run_id", runID.String()).Logger()

	if err := tables.Validate(); err != nil {
		return nil, &PhaseError{Phase: "validate", Err: err}
	}
	if len(claims) == 0 {
		return nil, &PhaseError{Phase: "validate", Err: fmt.Errorf("empty claim batch: %w", ErrNoEvaluatedClaims)}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	log.Info().
		Int("claims", len(claims)).
		Int("workers", workers).
		Str("rate_version", tables.Rates.Version()).
		Str("geo_version", tables.Geo.Version()).
		Int("payers", tables.Payers.Len()).
		Int64("tolerance_cents", int64(opts.Tolerance)).
		Msg("starting compliance run")

	resolver := &resolve.Resolver{Rates: tables.Rates, Geo: tables.Geo, Payers: tables.Payers}
	detector := detect.New(opts.Tolerance)

	outs, err := evaluateAll(ctx, log, resolver, detector, claims, workers)
	if err != nil {
		return nil, &PhaseError{Phase: "evaluate", Err: err}
	}

	// Concatenate per-partition outputs in partition order so the batch
	// order survives, and merge partials the same way.
	merged := aggregate.NewPartial()
	var evaluated []model.EnrichedClaim
	var quarantined []model.QuarantinedClaim
	for i := range outs {
		evaluated = append(evaluated, outs[i].evaluated...)
		quarantined = append(quarantined, outs[i].quarantined...)
		merged.Merge(outs[i].partial)
	}

	res := &Result{
		RunID:       runID,
		Evaluated:   evaluated,
		Quarantined: quarantined,
	}

	if len(evaluated) == 0 {
		res.State = StateFailed
		res.Duration = time.Since(start)
		log.Error().Int("quarantined", len(quarantined)).Msg("every claim in the batch was quarantined")
		return res, &PhaseError{Phase: "evaluate", Err: ErrNoEvaluatedClaims}
	}

	res.Summary = merged.Summary()
	res.State = StateCompleted
	if len(quarantined) > 0 {
		res.State = StatePartiallyFailed
	}
	res.Duration = time.Since(start)

	log.Info().
		Int("evaluated", len(evaluated)).
		Int("quarantined", len(quarantined)).
		Int64("violations", res.Summary.Violations).
		Str("recoverable", res.Summary.Recoverable.String()).
		Str("state", string(res.State)).
		Str("duration", res.Duration.String()).
		Msg("compliance run complete")

	return res, nil
}
