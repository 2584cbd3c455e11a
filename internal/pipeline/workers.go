package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/regulahealth/parity/internal/aggregate"
	"github.com/regulahealth/parity/internal/detect"
	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/resolve"
)

// workerOutput collects one partition's results. Workers share nothing; the
// orchestrator concatenates outputs in partition order after the WaitGroup
// settles.
type workerOutput struct {
	evaluated   []model.EnrichedClaim
	quarantined []model.QuarantinedClaim
	partial     *aggregate.Partial
}

// evaluateAll fans the batch out over contiguous partitions, one goroutine
// each. A claim that fails screening, resolution, or detection is quarantined
// in place and never stops its neighbors; only context cancellation aborts.
func evaluateAll(ctx context.Context, log zerolog.Logger, r *resolve.Resolver, det detect.Detector, claims []model.Claim, workers int) ([]workerOutput, error) {
	spans := partition(len(claims), workers)
	outs := make([]workerOutput, len(spans))
	errCh := make(chan error, len(spans))

	var wg sync.WaitGroup
	for i, span := range spans {
		wg.Add(1)
		go func(out *workerOutput, lo, hi int) {
			defer wg.Done()
			out.partial = aggregate.NewPartial()
			for _, c := range claims[lo:hi] {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}
				pair, evalErr := evaluateOne(r, det, c)
				if evalErr != nil {
					log.Warn().
						Str("claim_id", c.ClaimID).
						Str("kind", model.QuarantineKind(evalErr)).
						Err(evalErr).
						Msg("claim quarantined")
					out.quarantined = append(out.quarantined, model.QuarantinedClaim{Claim: c, Err: evalErr})
					continue
				}
				out.evaluated = append(out.evaluated, pair)
				out.partial.Add(pair)
			}
		}(&outs[i], span[0], span[1])
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return nil, err
	}
	return outs, nil
}

// evaluateOne runs the per-claim sequence: data-quality screen, mandate
// resolution, violation detection.
func evaluateOne(r *resolve.Resolver, det detect.Detector, c model.Claim) (model.EnrichedClaim, error) {
	if err := screen(c); err != nil {
		return model.EnrichedClaim{}, err
	}
	res, err := r.Resolve(c)
	if err != nil {
		return model.EnrichedClaim{}, err
	}
	verdict, err := det.Detect(c, res)
	if err != nil {
		return model.EnrichedClaim{}, err
	}
	return model.EnrichedClaim{Claim: c, Resolution: res, Verdict: verdict}, nil
}

// screen rejects claims whose own fields are unusable before any table work.
func screen(c model.Claim) error {
	switch {
	case c.ClaimID == "":
		return &model.DataQualityError{Reason: "missing claim id"}
	case c.ServiceCode == "":
		return &model.DataQualityError{Reason: "missing service code"}
	case c.ServiceDate.IsZero():
		return &model.DataQualityError{Reason: "missing service date"}
	case c.Units <= 0:
		return &model.DataQualityError{Reason: "units must be positive"}
	case c.Paid < 0:
		return &model.DataQualityError{Reason: "negative paid amount"}
	}
	return nil
}

// partition splits n items into at most k contiguous near-equal spans.
func partition(n, k int) [][2]int {
	if k > n {
		k = n
	}
	spans := make([][2]int, 0, k)
	base, rem := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		spans = append(spans, [2]int{start, start + size})
		start += size
	}
	return spans
}
