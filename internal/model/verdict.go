package model

import "github.com/regulahealth/parity/internal/money"

// ViolationVerdict is the outcome of comparing a paid amount against its
// resolved mandate. Delta is paid minus mandate, so underpayments are
// negative.
type ViolationVerdict struct {
	ClaimID string

	Mandate money.Cents
	Paid    money.Cents
	Delta   money.Cents

	IsViolation  bool
	ViolationBps int32 // underpayment as basis points of the mandate, 0 unless IsViolation
}

// Recoverable returns the amount owed back to the provider: the magnitude of
// the underpayment, or 0 for compliant claims.
func (v ViolationVerdict) Recoverable() money.Cents {
	if !v.IsViolation {
		return 0
	}
	return -v.Delta
}

// EnrichedClaim bundles a claim with its resolution and verdict. This is the
// unit that aggregation, persistence, and export all consume.
type EnrichedClaim struct {
	Claim      Claim
	Resolution MandateResolution
	Verdict    ViolationVerdict
}

// QuarantinedClaim records a claim the pipeline could not evaluate, with the
// error that sidelined it.
type QuarantinedClaim struct {
	Claim Claim
	Err   error
}

// Kind returns the quarantine bucket for reporting and storage.
func (q QuarantinedClaim) Kind() string {
	return QuarantineKind(q.Err)
}
