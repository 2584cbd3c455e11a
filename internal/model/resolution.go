package model

import "github.com/regulahealth/parity/internal/money"

// ValidationIssue is a non-fatal oddity a payer adapter observed on a claim.
// Issues never block resolution; they ride along for reporting.
type ValidationIssue struct {
	Code    string // machine key, e.g. "paid_exceeds_billed"
	Message string
}

// MandateResolution is a computed mandate amount together with the full
// provenance needed to reproduce it: which table versions, which region
// factor, and which adapter produced the number.
type MandateResolution struct {
	ClaimID     string
	PayerID     string
	PayerName   string
	AdapterName string

	ServiceCode string
	Category    string

	Allowed money.Cents // the mandate: minimum the payer must reimburse

	GeoRegion string
	GeoFactor money.Factor

	RateVersion string
	GeoVersion  string

	Issues []ValidationIssue
}
