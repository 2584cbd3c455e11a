package payer

import (
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// Appeal window for fee-schedule formula payers.
const formulaAppealDays = 120

// RVU is the relative-value-unit triplet for one service code.
type RVU struct {
	Work money.Factor `yaml:"work"`
	PE   money.Factor `yaml:"pe"`
	MP   money.Factor `yaml:"mp"`
}

// GPCI is the geographic practice cost index triplet for one locality.
type GPCI struct {
	Work money.Factor `yaml:"work"`
	PE   money.Factor `yaml:"pe"`
	MP   money.Factor `yaml:"mp"`
}

// Pricing modifiers recognized by formula payers and their payment weights.
// The first recognized modifier on a claim wins; the rest are ignored.
var modifierWeights = map[string]money.Factor{
	"26": mustFactor("0.40"), // professional component
	"TC": mustFactor("0.60"), // technical component
	"50": mustFactor("1.50"), // bilateral procedure
}

// FormulaAdapter prices a claim with the resource-based fee schedule formula
// sum(RVU_i x GPCI_i) x conversion factor, scaled by units and any recognized
// pricing modifier. The COLA rate from the rate table is ignored; the formula
// is the mandate for these payers.
type FormulaAdapter struct {
	appealDays int
}

func newFormula(p *Profile) (*FormulaAdapter, error) {
	if p.ConversionFactor <= 0 {
		return nil, fmt.Errorf("payer %s: formula adapter requires a positive conversion_factor", p.ID)
	}
	if len(p.RVUs) == 0 {
		return nil, fmt.Errorf("payer %s: formula adapter requires rvus", p.ID)
	}
	if len(p.GPCI) == 0 {
		return nil, fmt.Errorf("payer %s: formula adapter requires gpci", p.ID)
	}
	return &FormulaAdapter{appealDays: appealWindow(p, formulaAppealDays)}, nil
}

func (a *FormulaAdapter) Name() string { return string(KindFormula) }

func (a *FormulaAdapter) AppealWindowDays() int { return a.appealDays }

func (a *FormulaAdapter) ComputeAllowedAmount(claim model.Claim, sc model.ServiceCode, region model.GeoRegion, p *Profile) (money.Cents, error) {
	rvu, ok := p.RVUs[sc.Code]
	if !ok {
		return 0, fmt.Errorf("no RVU data for code %s: %w", sc.Code, ErrUnresolvable)
	}
	gpci, ok := p.GPCI[region.RegionID]
	if !ok {
		return 0, fmt.Errorf("no GPCI data for region %s: %w", region.RegionID, ErrUnresolvable)
	}
	if p.ConversionFactor <= 0 {
		return 0, fmt.Errorf("conversion factor not set: %w", ErrUnresolvable)
	}

	// Each RVU x GPCI term carries scale 10^8; the modifier weight adds 10^4.
	// All products stay exact in int64, so the only rounding is the final
	// division inside MulScaled.
	total := rvu.Work.Scaled()*gpci.Work.Scaled() +
		rvu.PE.Scaled()*gpci.PE.Scaled() +
		rvu.MP.Scaled()*gpci.MP.Scaled()

	weight := money.One
	for _, m := range claim.Modifiers {
		if w, ok := modifierWeights[m]; ok {
			weight = w
			break
		}
	}

	const termScale = int64(money.FactorScale) * money.FactorScale
	amount, err := money.MulScaled(p.ConversionFactor, claim.Units, total*weight.Scaled(), termScale*money.FactorScale)
	if err != nil {
		return 0, fmt.Errorf("price code %s: %w", sc.Code, err)
	}
	return amount, nil
}

func (a *FormulaAdapter) ValidateClaim(claim model.Claim) []model.ValidationIssue {
	issues := baselineIssues(claim)
	for _, m := range claim.Modifiers {
		if _, ok := modifierWeights[m]; !ok {
			issues = append(issues, model.ValidationIssue{
				Code:    "unknown_modifier",
				Message: fmt.Sprintf("modifier %s has no pricing weight", m),
			})
		}
	}
	return issues
}
