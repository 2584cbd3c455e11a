package detect

import (
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

// DefaultTolerance is the conventional rounding allowance: an underpayment
// must exceed one minor unit before it counts as a violation.
const DefaultTolerance money.Cents = 1

// Detector compares paid amounts against resolved mandates. It is pure: no
// I/O, no clock, no mutation of its inputs.
type Detector struct {
	// Tolerance is applied as given; a delta of exactly -Tolerance is still
	// compliant. Zero means strict comparison.
	Tolerance money.Cents
}

// New returns a Detector, clamping negative tolerances to zero.
func New(tolerance money.Cents) Detector {
	if tolerance < 0 {
		tolerance = 0
	}
	return Detector{Tolerance: tolerance}
}

// Detect renders the verdict for one claim against its resolution. A paid
// amount against a zero mandate is a data-quality problem, not a compliant
// claim; both paid and mandate at zero is vacuous compliance.
func (d Detector) Detect(claim model.Claim, res model.MandateResolution) (model.ViolationVerdict, error) {
	if res.Allowed == 0 && claim.Paid > 0 {
		return model.ViolationVerdict{}, &model.DataQualityError{
			Reason: fmt.Sprintf("claim %s: paid %s against a zero mandate", claim.ClaimID, claim.Paid),
		}
	}

	delta := claim.Paid - res.Allowed
	v := model.ViolationVerdict{
		ClaimID: claim.ClaimID,
		Mandate: res.Allowed,
		Paid:    claim.Paid,
		Delta:   delta,
	}
	if delta < -d.Tolerance {
		v.IsViolation = true
		v.ViolationBps = money.RatioBps(int64(-delta), int64(res.Allowed))
	}
	return v, nil
}
