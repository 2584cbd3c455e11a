package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/payer"
	"github.com/regulahealth/parity/internal/rates"
)

func mustFactor(t *testing.T, s string) money.Factor {
	t.Helper()
	f, err := money.ParseFactor(s)
	if err != nil {
		t.Fatalf("ParseFactor(%q): %v", s, err)
	}
	return f
}

func testTables(t *testing.T) *Tables {
	t.Helper()

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rt, err := rates.NewTable("2025.1", []model.ServiceCode{
		{Code: "90837", Description: "Psychotherapy, 60 minutes", Category: "psychotherapy", BaseRate: 15350, COLARate: 16249, EffectiveFrom: from},
		{Code: "90832", Description: "Psychotherapy, 30 minutes", Category: "psychotherapy", BaseRate: 8550, COLARate: 8741, EffectiveFrom: from},
		{Code: "90791", Description: "Psychiatric diagnostic evaluation", Category: "evaluation", BaseRate: 17000, COLARate: 17997, EffectiveFrom: from},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	gt, err := rates.NewGeoTable("ny-2025", []model.GeoRegion{
		{RegionID: "nyc", Name: "New York City metro", Multiplier: mustFactor(t, "1.065")},
		{RegionID: "upstate", Name: "Upstate", Multiplier: mustFactor(t, "1.000")},
	})
	if err != nil {
		t.Fatalf("NewGeoTable: %v", err)
	}

	reg, err := payer.NewRegistry([]*payer.Profile{
		{ID: "medicaid-ny", Name: "NY Medicaid", Aliases: []string{"Medicaid"}, Kind: payer.KindGeoCOLA},
		{ID: "aetna", Name: "Aetna Better Health", Kind: payer.KindContract,
			ContractRates: map[string]money.Cents{"90837": 14000, "90832": 0}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	return &Tables{Rates: rt, Geo: gt, Payers: reg}
}

func claim(id, payerID, code, region string, date time.Time, paid money.Cents, units int64) model.Claim {
	return model.Claim{
		ClaimID:     id,
		PayerID:     payerID,
		ServiceCode: code,
		ServiceDate: date,
		GeoRegion:   region,
		Paid:        paid,
		Units:       units,
	}
}

func mixedBatch() []model.Claim {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	return []model.Claim{
		claim("CLM001", "Medicaid", "90837", "nyc", jan, 13000, 1),              // -4305 violation
		claim("CLM002", "Medicaid", "90837", "nyc", jan, 17305, 1),              // compliant
		claim("CLM003", "Medicaid", "99999", "nyc", jan, 9000, 1),               // unknown code
		claim("CLM004", "Aetna Better Health", "90837", "nyc", feb, 12000, 1),   // -2000 violation
		claim("CLM005", "Medicaid", "90791", "upstate", mar, 17997, 1),          // compliant
		claim("CLM006", "Medicaid", "90832", "nyc", jan, 8000, 0),               // bad units
		claim("CLM007", "Aetna Better Health", "90832", "nyc", jan, 5000, 1),    // zero mandate, paid > 0
		claim("CLM008", "Medicaid", "90837", "albany", jan, 13000, 1),           // unknown region
	}
}

func TestRun_MixedBatch(t *testing.T) {
	res, err := Run(context.Background(), zerolog.Nop(), testTables(t), mixedBatch(), Options{Workers: 1, Tolerance: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == uuid.Nil {
		t.Error("RunID is nil")
	}
	if res.State != StatePartiallyFailed {
		t.Errorf("State = %s, want %s", res.State, StatePartiallyFailed)
	}

	wantEvaluated := []string{"CLM001", "CLM002", "CLM004", "CLM005"}
	if len(res.Evaluated) != len(wantEvaluated) {
		t.Fatalf("evaluated %d claims, want %d", len(res.Evaluated), len(wantEvaluated))
	}
	for i, want := range wantEvaluated {
		if got := res.Evaluated[i].Claim.ClaimID; got != want {
			t.Errorf("Evaluated[%d] = %s, want %s", i, got, want)
		}
	}

	wantQuarantine := map[string]string{
		"CLM003": "unknown_code",
		"CLM006": "data_quality",
		"CLM007": "data_quality",
		"CLM008": "unknown_region",
	}
	if len(res.Quarantined) != len(wantQuarantine) {
		t.Fatalf("quarantined %d claims, want %d", len(res.Quarantined), len(wantQuarantine))
	}
	for _, q := range res.Quarantined {
		want, ok := wantQuarantine[q.Claim.ClaimID]
		if !ok {
			t.Errorf("unexpected quarantined claim %s", q.Claim.ClaimID)
			continue
		}
		if q.Kind() != want {
			t.Errorf("claim %s quarantine kind = %s, want %s", q.Claim.ClaimID, q.Kind(), want)
		}
	}

	s := res.Summary
	if s == nil {
		t.Fatal("Summary is nil")
	}
	if s.Claims != 4 || s.Violations != 2 {
		t.Errorf("summary counts = %d claims / %d violations, want 4/2", s.Claims, s.Violations)
	}
	if s.Recoverable != 6305 {
		t.Errorf("Recoverable = %d, want 6305", s.Recoverable)
	}
	if s.ViolationRateBps != 5000 {
		t.Errorf("ViolationRateBps = %d, want 5000", s.ViolationRateBps)
	}
	if s.AvgUnderpayment != 3153 {
		t.Errorf("AvgUnderpayment = %d, want 3153", s.AvgUnderpayment)
	}

	if len(s.ByPayer) != 2 || s.ByPayer[0].Key != "medicaid-ny" || s.ByPayer[1].Key != "aetna" {
		t.Errorf("ByPayer order wrong: %+v", s.ByPayer)
	}
	if s.ByPayer[0].Recoverable != 4305 || s.ByPayer[1].Recoverable != 2000 {
		t.Errorf("ByPayer recoverable = %d/%d, want 4305/2000",
			s.ByPayer[0].Recoverable, s.ByPayer[1].Recoverable)
	}
	if len(s.ByMonth) != 3 || s.ByMonth[0].Key != "2025-01" || s.ByMonth[1].Key != "2025-02" {
		t.Errorf("ByMonth order wrong: %+v", s.ByMonth)
	}
}

func TestRun_CanonicalViolation(t *testing.T) {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	res, err := Run(context.Background(), zerolog.Nop(), testTables(t),
		[]model.Claim{claim("CLM001", "Medicaid", "90837", "nyc", jan, 13000, 1)},
		Options{Workers: 1, Tolerance: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateCompleted {
		t.Errorf("State = %s, want %s", res.State, StateCompleted)
	}

	v := res.Evaluated[0].Verdict
	if v.Mandate != 17305 {
		t.Errorf("Mandate = %d, want 17305", v.Mandate)
	}
	if v.Delta != -4305 || !v.IsViolation {
		t.Errorf("Delta = %d IsViolation = %v, want -4305/true", v.Delta, v.IsViolation)
	}
	if v.ViolationBps != 2488 {
		t.Errorf("ViolationBps = %d, want 2488 (24.88%%)", v.ViolationBps)
	}

	r := res.Evaluated[0].Resolution
	if r.RateVersion != "2025.1" || r.GeoVersion != "ny-2025" || r.AdapterName != "geo_cola" {
		t.Errorf("provenance = %q/%q/%q", r.RateVersion, r.GeoVersion, r.AdapterName)
	}
}

func TestRun_WorkerCountInvariance(t *testing.T) {
	tables := testTables(t)
	batch := mixedBatch()

	base, err := Run(context.Background(), zerolog.Nop(), tables, batch, Options{Workers: 1, Tolerance: 1})
	if err != nil {
		t.Fatalf("Run workers=1: %v", err)
	}

	for _, workers := range []int{2, 4, 16} {
		got, err := Run(context.Background(), zerolog.Nop(), tables, batch, Options{Workers: workers, Tolerance: 1})
		if err != nil {
			t.Fatalf("Run workers=%d: %v", workers, err)
		}
		if !reflect.DeepEqual(got.Evaluated, base.Evaluated) {
			t.Errorf("workers=%d changed evaluated claims", workers)
		}
		if !reflect.DeepEqual(got.Quarantined, base.Quarantined) {
			t.Errorf("workers=%d changed quarantine", workers)
		}
		if !reflect.DeepEqual(got.Summary, base.Summary) {
			t.Errorf("workers=%d changed summary:\n got: %+v\nwant: %+v", workers, got.Summary, base.Summary)
		}
		if got.State != base.State {
			t.Errorf("workers=%d changed state: %s vs %s", workers, got.State, base.State)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	tables := testTables(t)
	batch := mixedBatch()
	opts := Options{Workers: 4, Tolerance: 1}

	first, err := Run(context.Background(), zerolog.Nop(), tables, batch, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(context.Background(), zerolog.Nop(), tables, batch, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Error("re-running the same batch changed the summary")
	}
	if !reflect.DeepEqual(first.Evaluated, second.Evaluated) {
		t.Error("re-running the same batch changed the evaluated claims")
	}
}

func TestRun_AllQuarantined(t *testing.T) {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	batch := []model.Claim{
		claim("CLM001", "Medicaid", "99998", "nyc", jan, 9000, 1),
		claim("CLM002", "Medicaid", "99999", "nyc", jan, 9000, 1),
	}

	res, err := Run(context.Background(), zerolog.Nop(), testTables(t), batch, Options{Workers: 2, Tolerance: 1})
	if !errors.Is(err, ErrNoEvaluatedClaims) {
		t.Fatalf("err = %v, want ErrNoEvaluatedClaims", err)
	}
	if res == nil {
		t.Fatal("total failure should still return the quarantine report")
	}
	if res.State != StateFailed {
		t.Errorf("State = %s, want %s", res.State, StateFailed)
	}
	if len(res.Quarantined) != 2 {
		t.Errorf("quarantined %d, want 2", len(res.Quarantined))
	}
	if res.Summary != nil {
		t.Error("failed run should not carry a summary")
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	_, err := Run(context.Background(), zerolog.Nop(), testTables(t), nil, Options{})
	if !errors.Is(err, ErrNoEvaluatedClaims) {
		t.Fatalf("err = %v, want ErrNoEvaluatedClaims", err)
	}
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != "validate" {
		t.Errorf("err = %v, want validate phase error", err)
	}
}

func TestRun_MissingTables(t *testing.T) {
	tables := testTables(t)
	tables.Geo = nil

	_, err := Run(context.Background(), zerolog.Nop(), tables, mixedBatch(), Options{})
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != "validate" {
		t.Fatalf("err = %v, want validate phase error", err)
	}
}

func TestRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, zerolog.Nop(), testTables(t), mixedBatch(), Options{Workers: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != "evaluate" {
		t.Errorf("err = %v, want evaluate phase error", err)
	}
}

func TestRun_OrderPreservedAcrossPartitions(t *testing.T) {
	jan := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	var batch []model.Claim
	for i := 0; i < 23; i++ {
		batch = append(batch, claim(fmt.Sprintf("CLM%03d", i), "Medicaid", "90837", "nyc", jan, 13000, 1))
	}

	res, err := Run(context.Background(), zerolog.Nop(), testTables(t), batch, Options{Workers: 5, Tolerance: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, e := range res.Evaluated {
		if want := fmt.Sprintf("CLM%03d", i); e.Claim.ClaimID != want {
			t.Fatalf("Evaluated[%d] = %s, want %s", i, e.Claim.ClaimID, want)
		}
	}
}

func TestPartition(t *testing.T) {
	cases := []struct {
		n, k      int
		wantSpans int
	}{
		{10, 3, 3},
		{5, 8, 5},
		{6, 1, 1},
		{1, 1, 1},
	}
	for _, tc := range cases {
		spans := partition(tc.n, tc.k)
		if len(spans) != tc.wantSpans {
			t.Errorf("partition(%d, %d) made %d spans, want %d", tc.n, tc.k, len(spans), tc.wantSpans)
		}
		next := 0
		total := 0
		for _, s := range spans {
			if s[0] != next {
				t.Errorf("partition(%d, %d): span starts at %d, want %d", tc.n, tc.k, s[0], next)
			}
			if s[1] <= s[0] {
				t.Errorf("partition(%d, %d): empty span %v", tc.n, tc.k, s)
			}
			total += s[1] - s[0]
			next = s[1]
		}
		if total != tc.n {
			t.Errorf("partition(%d, %d) covers %d items", tc.n, tc.k, total)
		}
	}
}

func TestSnapshotHolder(t *testing.T) {
	first := testTables(t)
	h, err := NewSnapshotHolder(first)
	if err != nil {
		t.Fatalf("NewSnapshotHolder: %v", err)
	}
	if h.Load() != first {
		t.Error("Load() did not return the seeded tables")
	}

	second := testTables(t)
	old, err := h.Swap(second)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if old != first {
		t.Error("Swap did not return the displaced tables")
	}
	if h.Load() != second {
		t.Error("Load() did not return the swapped tables")
	}

	// A replacement that fails validation must leave the current set alone.
	if _, err := h.Swap(&Tables{}); err == nil {
		t.Fatal("expected validation error")
	}
	if h.Load() != second {
		t.Error("failed swap displaced the current tables")
	}
}

func TestNewSnapshotHolder_RejectsInvalid(t *testing.T) {
	if _, err := NewSnapshotHolder(&Tables{}); err == nil {
		t.Error("expected validation error")
	}
	if _, err := NewSnapshotHolder(nil); err == nil {
		t.Error("expected validation error for nil tables")
	}
}
