package aggregate

import (
	"sort"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// Partial is a shard-independent accumulator of violation findings. Merging
// two Partials is associative and commutative over integer counts and cents,
// so per-worker partials fold into identical totals no matter how the batch
// was split. Derived fields (rates, averages) are computed only at Summary
// time, never carried through a merge.
type Partial struct {
	claims      int64
	violations  int64
	recoverable money.Cents

	byPayer    map[string]*bucket
	byCategory map[string]*bucket
	byMonth    map[string]*bucket
}

type bucket struct {
	claims      int64
	violations  int64
	recoverable money.Cents
}

// NewPartial returns an empty accumulator.
func NewPartial() *Partial {
	return &Partial{
		byPayer:    make(map[string]*bucket),
		byCategory: make(map[string]*bucket),
		byMonth:    make(map[string]*bucket),
	}
}

// Add folds one evaluated claim into the partial.
func (p *Partial) Add(e model.EnrichedClaim) {
	isViolation := e.Verdict.IsViolation
	rec := e.Verdict.Recoverable()

	p.claims++
	if isViolation {
		p.violations++
		p.recoverable += rec
	}
	bump(p.byPayer, e.Resolution.PayerID, isViolation, rec)
	bump(p.byCategory, e.Resolution.Category, isViolation, rec)
	bump(p.byMonth, e.Claim.Month(), isViolation, rec)
}

func bump(m map[string]*bucket, key string, isViolation bool, rec money.Cents) {
	b := m[key]
	if b == nil {
		b = &bucket{}
		m[key] = b
	}
	b.claims++
	if isViolation {
		b.violations++
		b.recoverable += rec
	}
}

// Merge folds other into p. other is left untouched and should be discarded.
func (p *Partial) Merge(other *Partial) {
	p.claims += other.claims
	p.violations += other.violations
	p.recoverable += other.recoverable
	mergeBuckets(p.byPayer, other.byPayer)
	mergeBuckets(p.byCategory, other.byCategory)
	mergeBuckets(p.byMonth, other.byMonth)
}

func mergeBuckets(dst, src map[string]*bucket) {
	for key, s := range src {
		d := dst[key]
		if d == nil {
			d = &bucket{}
			dst[key] = d
		}
		d.claims += s.claims
		d.violations += s.violations
		d.recoverable += s.recoverable
	}
}

// Summary finalizes the partial into the reporting shape. Group lists are
// sorted by recoverable amount descending with ties broken by key ascending,
// so equal inputs always render identically.
func (p *Partial) Summary() *model.AggregateSummary {
	return &model.AggregateSummary{
		Claims:           p.claims,
		Violations:       p.violations,
		Recoverable:      p.recoverable,
		ViolationRateBps: money.RatioBps(p.violations, p.claims),
		AvgUnderpayment:  money.DivRound(p.recoverable, p.violations),
		ByPayer:          finalizeGroups(p.byPayer),
		ByCategory:       finalizeGroups(p.byCategory),
		ByMonth:          finalizeGroups(p.byMonth),
	}
}

func finalizeGroups(m map[string]*bucket) []model.GroupSummary {
	out := make([]model.GroupSummary, 0, len(m))
	for key, b := range m {
		out = append(out, model.GroupSummary{
			Key:              key,
			Claims:           b.claims,
			Violations:       b.violations,
			Recoverable:      b.recoverable,
			ViolationRateBps: money.RatioBps(b.violations, b.claims),
			AvgUnderpayment:  money.DivRound(b.recoverable, b.violations),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Recoverable != out[j].Recoverable {
			return out[i].Recoverable > out[j].Recoverable
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Fold aggregates claims in a single sequential pass. The parallel pipeline's
// merged partials must produce exactly this.
func Fold(claims []model.EnrichedClaim) *model.AggregateSummary {
	p := NewPartial()
	for _, e := range claims {
		p.Add(e)
	}
	return p.Summary()
}
