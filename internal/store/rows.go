package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/regulahealth/parity/internal/model"
)

// ResultRow is the DB-ready flattening of one evaluated claim. Money
// values are int64 cents; the violation ratio is int32 basis points.
type ResultRow struct {
	RunID uuid.UUID

	ClaimID      string
	PayerID      string
	PayerName    string
	Adapter      string
	ServiceCode  string
	Category     string
	ServiceDate  time.Time
	ServiceMonth string
	GeoRegion    string
	Units        int64

	PaidCents    int64
	BilledCents  *int64
	MandateCents int64
	DeltaCents   int64
	IsViolation  bool
	ViolationBPS int32

	RateVersion string
	GeoVersion  string
	Issues      []string
}

// NewResultRow flattens an evaluated claim for persistence.
func NewResultRow(runID uuid.UUID, ec model.EnrichedClaim) *ResultRow {
	row := &ResultRow{
		RunID:        runID,
		ClaimID:      ec.Claim.ClaimID,
		PayerID:      ec.Resolution.PayerID,
		PayerName:    ec.Resolution.PayerName,
		Adapter:      ec.Resolution.AdapterName,
		ServiceCode:  ec.Resolution.ServiceCode,
		Category:     ec.Resolution.Category,
		ServiceDate:  ec.Claim.ServiceDate,
		ServiceMonth: ec.Claim.Month(),
		GeoRegion:    ec.Resolution.GeoRegion,
		Units:        ec.Claim.Units,
		PaidCents:    int64(ec.Claim.Paid),
		MandateCents: int64(ec.Verdict.Mandate),
		DeltaCents:   int64(ec.Verdict.Delta),
		IsViolation:  ec.Verdict.IsViolation,
		ViolationBPS: ec.Verdict.ViolationBps,
		RateVersion:  ec.Resolution.RateVersion,
		GeoVersion:   ec.Resolution.GeoVersion,
	}
	if ec.Claim.Billed != nil {
		b := int64(*ec.Claim.Billed)
		row.BilledCents = &b
	}
	for _, issue := range ec.Resolution.Issues {
		row.Issues = append(row.Issues, issue.Code)
	}
	return row
}

// ResultColumns returns the ordered column names for COPY into
// parity.claim_results.
func ResultColumns() []string {
	return []string{
		"run_id",
		"claim_id",
		"payer_id",
		"payer_name",
		"adapter",
		"service_code",
		"category",
		"service_date",
		"service_month",
		"geo_region",
		"units",
		"paid_cents",
		"billed_cents",
		"mandate_cents",
		"delta_cents",
		"is_violation",
		"violation_bps",
		"rate_version",
		"geo_version",
		"issues",
	}
}

// CopyValues returns the row values in the same order as ResultColumns(),
// suitable for pgx CopyFromSource.
func (r *ResultRow) CopyValues() []any {
	return []any{
		r.RunID,
		r.ClaimID,
		r.PayerID,
		r.PayerName,
		r.Adapter,
		r.ServiceCode,
		r.Category,
		r.ServiceDate,
		r.ServiceMonth,
		r.GeoRegion,
		r.Units,
		r.PaidCents,
		r.BilledCents,
		r.MandateCents,
		r.DeltaCents,
		r.IsViolation,
		r.ViolationBPS,
		r.RateVersion,
		r.GeoVersion,
		r.Issues,
	}
}
