package payer

import (
	"errors"
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// Kind selects one of the supported payer pricing strategies.
type Kind string

const (
	KindGeoCOLA  Kind = "geo_cola"
	KindFormula  Kind = "formula"
	KindContract Kind = "contract"
)

// AllKinds lists the supported adapter kinds in canonical order.
var AllKinds = []Kind{KindGeoCOLA, KindFormula, KindContract}

// KindByName returns the Kind for the given name, or ok=false.
func KindByName(name string) (Kind, bool) {
	for _, k := range AllKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// ErrUnresolvable marks a claim the adapter cannot price from its profile
// parameters (missing contract rate, RVU, or GPCI data). Lookup misses against
// the shared rate and geo tables are reported by the resolver, not here.
var ErrUnresolvable = errors.New("adapter cannot resolve claim")

// Adapter computes the mandated allowed amount for one payer pricing
// strategy. Implementations are stateless with respect to claims and safe for
// concurrent use.
type Adapter interface {
	// Name identifies the adapter variant in provenance and logs.
	Name() string

	// ComputeAllowedAmount returns the minimum the payer must reimburse for
	// the claim, given the resolved rate entry, the claim's geographic
	// region, and the payer's profile parameters. Never negative.
	ComputeAllowedAmount(claim model.Claim, sc model.ServiceCode, region model.GeoRegion, p *Profile) (money.Cents, error)

	// ValidateClaim reports non-fatal oddities worth surfacing alongside the
	// resolution. It never blocks pricing.
	ValidateClaim(claim model.Claim) []model.ValidationIssue

	// AppealWindowDays is the payer's appeal filing window in days.
	AppealWindowDays() int
}

// New constructs the adapter variant for the profile's kind, failing fast
// when the profile lacks the parameters that kind needs.
func New(p *Profile) (Adapter, error) {
	switch p.Kind {
	case KindGeoCOLA:
		return newGeoCOLA(p)
	case KindFormula:
		return newFormula(p)
	case KindContract:
		return newContract(p)
	default:
		return nil, fmt.Errorf("payer %s: unknown adapter kind %q", p.ID, p.Kind)
	}
}

// appealWindow picks the profile override when set, else the kind default.
func appealWindow(p *Profile, def int) int {
	if p.AppealWindowDays > 0 {
		return p.AppealWindowDays
	}
	return def
}

// baselineIssues holds the checks every adapter performs.
func baselineIssues(claim model.Claim) []model.ValidationIssue {
	var issues []model.ValidationIssue
	if claim.Billed != nil && claim.Paid > *claim.Billed {
		issues = append(issues, model.ValidationIssue{
			Code:    "paid_exceeds_billed",
			Message: fmt.Sprintf("paid %s exceeds billed %s", claim.Paid, *claim.Billed),
		})
	}
	return issues
}

// mustFactor parses a factor literal known at compile time.
func mustFactor(s string) money.Factor {
	f, err := money.ParseFactor(s)
	if err != nil {
		panic(err)
	}
	return f
}
