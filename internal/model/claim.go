package model

import (
	"time"

	"github.com/regulahealth/parity/internal/money"
)

// ServiceCode is one entry of the mandate rate table: a billable service with
// its state-published reimbursement floors and the date range the entry
// governs.
type ServiceCode struct {
	Code        string
	Description string
	Category    string // e.g. "psychotherapy", "evaluation"

	BaseRate money.Cents // published base rate
	COLARate money.Cents // cost-of-living adjusted rate, the mandate input

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended
}

// GeoRegion is a geographic rate locality with its wage-cost multiplier.
type GeoRegion struct {
	RegionID   string // canonical lowercase id, e.g. "nyc"
	Name       string
	Multiplier money.Factor
}

// Claim is a single adjudicated service line from a remittance file.
// Claim IDs are unique within a batch; amounts are integer cents.
type Claim struct {
	ClaimID     string
	PayerID     string // payer name or alias as it appeared in the source
	ServiceCode string
	ServiceDate time.Time
	GeoRegion   string

	Paid   money.Cents
	Billed *money.Cents // provider-billed amount when the source carries one
	Units  int64

	Modifiers []string
	PatientID *string
}

// Month returns the claim's service month as "YYYY-MM", the aggregation key.
func (c Claim) Month() string {
	return c.ServiceDate.UTC().Format("2006-01")
}
