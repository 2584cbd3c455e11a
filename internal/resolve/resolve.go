package resolve

import (
	"fmt"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/payer"
	"github.com/regulahealth/parity/internal/rates"
)

// Resolver computes mandate amounts for claims against one immutable set of
// reference tables. It holds no mutable state, so a single Resolver is shared
// across pipeline workers.
type Resolver struct {
	Rates  *rates.Table
	Geo    *rates.GeoTable
	Payers *payer.Registry
}

// Resolve walks the resolution sequence for one claim: rate entry effective
// on the service date, then geographic region, then payer adapter, then the
// adapter's pricing. Failures come back as *model.ResolutionError with the
// kind callers dispatch on; the claim itself is never mutated.
func (r *Resolver) Resolve(claim model.Claim) (model.MandateResolution, error) {
	sc, ok := r.Rates.Lookup(claim.ServiceCode, claim.ServiceDate)
	if !ok {
		return model.MandateResolution{}, &model.ResolutionError{
			Kind:   model.UnknownCode,
			Detail: fmt.Sprintf("no rate for code %q effective %s", claim.ServiceCode, claim.ServiceDate.Format("2006-01-02")),
		}
	}

	region, ok := r.Geo.Lookup(claim.GeoRegion)
	if !ok {
		return model.MandateResolution{}, &model.ResolutionError{
			Kind:   model.UnknownRegion,
			Detail: fmt.Sprintf("region %q not in geo table %s", claim.GeoRegion, r.Geo.Version()),
		}
	}

	profile, adapter, ok := r.Payers.Lookup(claim.PayerID)
	if !ok {
		return model.MandateResolution{}, &model.ResolutionError{
			Kind:   model.UnknownPayer,
			Detail: fmt.Sprintf("payer %q is not registered", claim.PayerID),
		}
	}

	allowed, err := adapter.ComputeAllowedAmount(claim, sc, region, profile)
	if err != nil {
		return model.MandateResolution{}, &model.ResolutionError{
			Kind:   model.AdapterUnresolvable,
			Detail: fmt.Sprintf("adapter %s: %v", adapter.Name(), err),
		}
	}

	return model.MandateResolution{
		ClaimID:     claim.ClaimID,
		PayerID:     profile.ID,
		PayerName:   profile.Name,
		AdapterName: adapter.Name(),
		ServiceCode: sc.Code,
		Category:    sc.Category,
		Allowed:     allowed,
		GeoRegion:   region.RegionID,
		GeoFactor:   region.Multiplier,
		RateVersion: r.Rates.Version(),
		GeoVersion:  r.Geo.Version(),
		Issues:      adapter.ValidateClaim(claim),
	}, nil
}
