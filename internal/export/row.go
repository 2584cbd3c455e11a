// Package export writes evaluated claims to Parquet for downstream
// analysis tooling.
package export

import (
	"strings"

	"github.com/regulahealth/parity/internal/model"
)

// EnrichedRow mirrors the Parquet schema for one evaluated claim. Money
// stays integer cents in the file; ratios stay basis points.
type EnrichedRow struct {
	ClaimID      string `parquet:"claim_id"`
	PayerID      string `parquet:"payer_id"`
	PayerName    string `parquet:"payer_name"`
	Adapter      string `parquet:"adapter"`
	ServiceCode  string `parquet:"service_code"`
	Category     string `parquet:"category"`
	ServiceDate  string `parquet:"service_date"`
	ServiceMonth string `parquet:"service_month"`
	GeoRegion    string `parquet:"geo_region"`
	Units        int64  `parquet:"units"`

	PaidCents        int64  `parquet:"paid_cents"`
	BilledCents      *int64 `parquet:"billed_cents,optional"`
	MandateCents     int64  `parquet:"mandate_cents"`
	DeltaCents       int64  `parquet:"delta_cents"`
	IsViolation      bool   `parquet:"is_violation"`
	ViolationBPS     int32  `parquet:"violation_bps"`
	RecoverableCents int64  `parquet:"recoverable_cents"`

	RateVersion string  `parquet:"rate_version"`
	GeoVersion  string  `parquet:"geo_version"`
	Issues      *string `parquet:"issues,optional"` // comma-joined issue codes
}

// FromEnriched flattens one evaluated claim into its export row.
func FromEnriched(ec model.EnrichedClaim) EnrichedRow {
	row := EnrichedRow{
		ClaimID:      ec.Claim.ClaimID,
		PayerID:      ec.Resolution.PayerID,
		PayerName:    ec.Resolution.PayerName,
		Adapter:      ec.Resolution.AdapterName,
		ServiceCode:  ec.Resolution.ServiceCode,
		Category:     ec.Resolution.Category,
		ServiceDate:  ec.Claim.ServiceDate.Format("2006-01-02"),
		ServiceMonth: ec.Claim.Month(),
		GeoRegion:    ec.Resolution.GeoRegion,
		Units:        ec.Claim.Units,

		PaidCents:        int64(ec.Claim.Paid),
		MandateCents:     int64(ec.Verdict.Mandate),
		DeltaCents:       int64(ec.Verdict.Delta),
		IsViolation:      ec.Verdict.IsViolation,
		ViolationBPS:     ec.Verdict.ViolationBps,
		RecoverableCents: int64(ec.Verdict.Recoverable()),

		RateVersion: ec.Resolution.RateVersion,
		GeoVersion:  ec.Resolution.GeoVersion,
	}
	if ec.Claim.Billed != nil {
		b := int64(*ec.Claim.Billed)
		row.BilledCents = &b
	}
	if len(ec.Resolution.Issues) > 0 {
		codes := make([]string, len(ec.Resolution.Issues))
		for i, issue := range ec.Resolution.Issues {
			codes[i] = issue.Code
		}
		joined := strings.Join(codes, ",")
		row.Issues = &joined
	}
	return row
}
