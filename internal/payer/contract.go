package payer

import (
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// Appeal window for commercial contract payers.
const contractAppealDays = 180

// ContractAdapter prices a claim from the payer's negotiated per-code rate
// schedule. A code missing from the schedule cannot be priced at all, which
// is different from a code missing from the state rate table.
type ContractAdapter struct {
	appealDays int
}

func newContract(p *Profile) (*ContractAdapter, error) {
	if len(p.ContractRates) == 0 {
		return nil, fmt.Errorf("payer %s: contract adapter requires contract_rates", p.ID)
	}
	return &ContractAdapter{appealDays: appealWindow(p, contractAppealDays)}, nil
}

func (a *ContractAdapter) Name() string { return string(KindContract) }

func (a *ContractAdapter) AppealWindowDays() int { return a.appealDays }

func (a *ContractAdapter) ComputeAllowedAmount(claim model.Claim, sc model.ServiceCode, _ model.GeoRegion, p *Profile) (money.Cents, error) {
	rate, ok := p.ContractRates[sc.Code]
	if !ok {
		return 0, fmt.Errorf("no contract rate for code %s: %w", sc.Code, ErrUnresolvable)
	}
	amount, err := money.Mul(rate, claim.Units)
	if err != nil {
		return 0, fmt.Errorf("price code %s: %w", sc.Code, err)
	}
	return amount, nil
}

func (a *ContractAdapter) ValidateClaim(claim model.Claim) []model.ValidationIssue {
	issues := baselineIssues(claim)
	if claim.Billed == nil {
		issues = append(issues, model.ValidationIssue{
			Code:    "missing_billed",
			Message: "contract reconciliation works best with the billed amount present",
		})
	}
	return issues
}
