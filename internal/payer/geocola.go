package payer

import (
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// Appeal window for state-program payers that track the fee schedule.
const geoCOLAAppealDays = 120

// GeoCOLAAdapter prices a claim as COLA-adjusted rate x geo multiplier x
// units, optionally scaled by a payer-specific multiplier. This is the
// default strategy for payers that follow the state schedule directly.
type GeoCOLAAdapter struct {
	appealDays int
}

func newGeoCOLA(p *Profile) (*GeoCOLAAdapter, error) {
	return &GeoCOLAAdapter{appealDays: appealWindow(p, geoCOLAAppealDays)}, nil
}

func (a *GeoCOLAAdapter) Name() string { return string(KindGeoCOLA) }

func (a *GeoCOLAAdapter) AppealWindowDays() int { return a.appealDays }

func (a *GeoCOLAAdapter) ComputeAllowedAmount(claim model.Claim, sc model.ServiceCode, region model.GeoRegion, p *Profile) (money.Cents, error) {
	mult := p.Multiplier
	if mult.IsZero() {
		mult = money.One
	}
	amount, err := money.Mul(sc.COLARate, claim.Units, region.Multiplier, mult)
	if err != nil {
		return 0, fmt.Errorf("price code %s: %w", sc.Code, err)
	}
	return amount, nil
}

func (a *GeoCOLAAdapter) ValidateClaim(claim model.Claim) []model.ValidationIssue {
	issues := baselineIssues(claim)
	if len(claim.Modifiers) > 0 {
		issues = append(issues, model.ValidationIssue{
			Code:    "modifiers_ignored",
			Message: "schedule-tracking payers do not recognize pricing modifiers",
		})
	}
	return issues
}
