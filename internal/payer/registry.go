package payer

import (
	"fmt"

	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
)

// Profile describes one payer: identity, the names remittance files know it
// by, which pricing strategy applies, and that strategy's parameters.
type Profile struct {
	ID      string
	Name    string
	Aliases []string

	Kind             Kind
	AppealWindowDays int // 0 = kind default

	// geo_cola: payer-specific haircut or uplift, identity when unset.
	Multiplier money.Factor

	// formula
	ConversionFactor money.Cents
	RVUs             map[string]RVU
	GPCI             map[string]GPCI

	// contract
	ContractRates map[string]money.Cents
}

// Registry resolves payer identifiers and aliases to profiles and their
// constructed adapters. Keys are normalized the same way claim payer names
// are, so "Aetna Better Health" and "AETNA  BETTER HEALTH" both match.
type Registry struct {
	entries []registryEntry
	byKey   map[string]int
}

type registryEntry struct {
	profile *Profile
	adapter Adapter
}

// NewRegistry builds adapters for every profile and indexes ids, names, and
// aliases. Construction fails on unknown kinds, missing strategy parameters,
// or keys claimed by two payers.
func NewRegistry(profiles []*Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("payer registry: no profiles")
	}

	r := &Registry{byKey: make(map[string]int)}
	for _, p := range profiles {
		if p.ID == "" {
			return nil, fmt.Errorf("payer registry: profile with empty id")
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		adapter, err := New(p)
		if err != nil {
			return nil, fmt.Errorf("payer registry: %w", err)
		}

		idx := len(r.entries)
		r.entries = append(r.entries, registryEntry{profile: p, adapter: adapter})

		keys := append([]string{p.ID, p.Name}, p.Aliases...)
		for _, k := range keys {
			norm := normalize.NormalizeName(k)
			if norm == "" {
				return nil, fmt.Errorf("payer registry: payer %s: blank alias", p.ID)
			}
			if prev, dup := r.byKey[norm]; dup {
				if prev != idx {
					return nil, fmt.Errorf("payer registry: alias %q claimed by both %s and %s",
						norm, r.entries[prev].profile.ID, p.ID)
				}
				continue
			}
			r.byKey[norm] = idx
		}
	}
	return r, nil
}

// Lookup resolves a payer identifier as it appeared in a claim. The match is
// case- and whitespace-insensitive across ids, display names, and aliases.
func (r *Registry) Lookup(identifier string) (*Profile, Adapter, bool) {
	norm := normalize.NormalizeName(identifier)
	if norm == "" {
		return nil, nil, false
	}
	idx, ok := r.byKey[norm]
	if !ok {
		return nil, nil, false
	}
	e := r.entries[idx]
	return e.profile, e.adapter, true
}

// Len returns the number of registered payers.
func (r *Registry) Len() int { return len(r.entries) }

// Profiles returns the registered profiles in registration order.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.profile
	}
	return out
}
