package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// enriched builds an evaluated claim with a hand-rolled verdict.
func enriched(payerID, category string, month time.Month, paid, mandate money.Cents) model.EnrichedClaim {
	delta := paid - mandate
	v := model.ViolationVerdict{
		Mandate: mandate,
		Paid:    paid,
		Delta:   delta,
	}
	if delta < -1 {
		v.IsViolation = true
		v.ViolationBps = money.RatioBps(int64(-delta), int64(mandate))
	}
	return model.EnrichedClaim{
		Claim: model.Claim{
			ServiceDate: time.Date(2025, month, 15, 0, 0, 0, 0, time.UTC),
			Paid:        paid,
			Units:       1,
		},
		Resolution: model.MandateResolution{
			PayerID:  payerID,
			Category: category,
			Allowed:  mandate,
		},
		Verdict: v,
	}
}

func sampleClaims() []model.EnrichedClaim {
	return []model.EnrichedClaim{
		enriched("medicaid-ny", "psychotherapy", time.January, 13000, 17305), // -4305
		enriched("medicaid-ny", "psychotherapy", time.January, 17305, 17305), // compliant
		enriched("medicaid-ny", "evaluation", time.February, 15000, 17997),   // -2997
		enriched("aetna", "psychotherapy", time.January, 10000, 14000),       // -4000
		enriched("aetna", "evaluation", time.February, 14000, 14000),         // compliant
		enriched("medicare-b", "psychotherapy", time.March, 17575, 17575),    // compliant
	}
}

func TestFold_Totals(t *testing.T) {
	s := Fold(sampleClaims())

	if s.Claims != 6 {
		t.Errorf("Claims = %d, want 6", s.Claims)
	}
	if s.Violations != 3 {
		t.Errorf("Violations = %d, want 3", s.Violations)
	}
	if s.Recoverable != 4305+2997+4000 {
		t.Errorf("Recoverable = %d, want %d", s.Recoverable, 4305+2997+4000)
	}
	// 3/6 = 50.00%
	if s.ViolationRateBps != 5000 {
		t.Errorf("ViolationRateBps = %d, want 5000", s.ViolationRateBps)
	}
	// 11302/3 = 3767.33 -> 3767
	if s.AvgUnderpayment != 3767 {
		t.Errorf("AvgUnderpayment = %d, want 3767", s.AvgUnderpayment)
	}
}

func TestFold_GroupOrdering(t *testing.T) {
	s := Fold(sampleClaims())

	// medicaid-ny recovers 7302, aetna 4000, medicare-b 0.
	if len(s.ByPayer) != 3 {
		t.Fatalf("ByPayer has %d groups, want 3", len(s.ByPayer))
	}
	wantOrder := []string{"medicaid-ny", "aetna", "medicare-b"}
	for i, want := range wantOrder {
		if s.ByPayer[i].Key != want {
			t.Errorf("ByPayer[%d] = %s, want %s", i, s.ByPayer[i].Key, want)
		}
	}

	top := s.ByPayer[0]
	if top.Claims != 3 || top.Violations != 2 || top.Recoverable != 7302 {
		t.Errorf("medicaid-ny group = %+v", top)
	}
	// 2/3 violations = 66.67%
	if top.ViolationRateBps != 6667 {
		t.Errorf("medicaid-ny rate = %d bps, want 6667", top.ViolationRateBps)
	}
	// 7302/2 = 3651
	if top.AvgUnderpayment != 3651 {
		t.Errorf("medicaid-ny avg = %d, want 3651", top.AvgUnderpayment)
	}

	// Months: 2025-01 recovers 8305, 2025-02 2997, 2025-03 0.
	wantMonths := []string{"2025-01", "2025-02", "2025-03"}
	for i, want := range wantMonths {
		if s.ByMonth[i].Key != want {
			t.Errorf("ByMonth[%d] = %s, want %s", i, s.ByMonth[i].Key, want)
		}
	}
}

func TestFold_TieBreaksByKey(t *testing.T) {
	s := Fold([]model.EnrichedClaim{
		enriched("zeta", "psychotherapy", time.January, 10000, 12000),
		enriched("alpha", "psychotherapy", time.January, 10000, 12000),
	})

	if s.ByPayer[0].Key != "alpha" || s.ByPayer[1].Key != "zeta" {
		t.Errorf("equal recoverable should order by key: %s, %s", s.ByPayer[0].Key, s.ByPayer[1].Key)
	}
}

func TestFold_Empty(t *testing.T) {
	s := Fold(nil)
	if s.Claims != 0 || s.Violations != 0 || s.Recoverable != 0 {
		t.Errorf("empty fold totals = %+v", s)
	}
	if s.ViolationRateBps != 0 || s.AvgUnderpayment != 0 {
		t.Errorf("empty fold derived fields = %d bps, %d avg", s.ViolationRateBps, s.AvgUnderpayment)
	}
	if len(s.ByPayer) != 0 || len(s.ByCategory) != 0 || len(s.ByMonth) != 0 {
		t.Errorf("empty fold has groups")
	}
}

func TestMerge_MatchesSequentialFold(t *testing.T) {
	claims := sampleClaims()
	want := Fold(claims)

	splits := [][2]int{{0, 2}, {2, 3}, {3, 6}}
	parts := make([]*Partial, 0, len(splits))
	for _, sp := range splits {
		p := NewPartial()
		for _, e := range claims[sp[0]:sp[1]] {
			p.Add(e)
		}
		parts = append(parts, p)
	}

	// Merge in a scrambled order; totals must not care.
	merged := NewPartial()
	for _, i := range []int{2, 0, 1} {
		merged.Merge(parts[i])
	}

	if got := merged.Summary(); !reflect.DeepEqual(got, want) {
		t.Errorf("merged summary differs from sequential fold:\n got: %+v\nwant: %+v", got, want)
	}
}

func TestMerge_Associative(t *testing.T) {
	claims := sampleClaims()

	mk := func(lo, hi int) *Partial {
		p := NewPartial()
		for _, e := range claims[lo:hi] {
			p.Add(e)
		}
		return p
	}

	// (a + b) + c
	left := NewPartial()
	ab := mk(0, 2)
	ab.Merge(mk(2, 4))
	left.Merge(ab)
	left.Merge(mk(4, 6))

	// a + (b + c)
	right := mk(0, 2)
	bc := mk(2, 4)
	bc.Merge(mk(4, 6))
	right.Merge(bc)

	if !reflect.DeepEqual(left.Summary(), right.Summary()) {
		t.Error("merge is not associative")
	}
}

func TestMerge_EmptyIsIdentity(t *testing.T) {
	p := NewPartial()
	for _, e := range sampleClaims() {
		p.Add(e)
	}
	want := p.Summary()

	p.Merge(NewPartial())
	if !reflect.DeepEqual(p.Summary(), want) {
		t.Error("merging an empty partial changed the summary")
	}
}
