package rates

import (
	"fmt"
	"sort"
	"time"

	"github.com/regulahealth/parity/internal/model"
)

// Table is an immutable, versioned mandate rate table. Entries for a code are
// indexed by effective-date range; lookups select the entry covering the
// requested service date. Dates are compared at day granularity, so callers
// supply midnight-UTC values on both sides.
type Table struct {
	version string
	byCode  map[string][]model.ServiceCode
	count   int
}

// NewTable validates entries and builds the lookup index. Construction fails
// on the first defect rather than loading a partial table: empty codes or
// categories, negative rates, inverted or overlapping effective ranges.
func NewTable(version string, entries []model.ServiceCode) (*Table, error) {
	if version == "" {
		return nil, fmt.Errorf("rate table: version is required")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("rate table %s: no entries", version)
	}

	byCode := make(map[string][]model.ServiceCode)
	for i, e := range entries {
		if e.Code == "" {
			return nil, fmt.Errorf("rate table %s: entry %d: empty service code", version, i)
		}
		if e.Category == "" {
			return nil, fmt.Errorf("rate table %s: code %s: empty category", version, e.Code)
		}
		if e.BaseRate < 0 || e.COLARate < 0 {
			return nil, fmt.Errorf("rate table %s: code %s: negative rate", version, e.Code)
		}
		if e.EffectiveFrom.IsZero() {
			return nil, fmt.Errorf("rate table %s: code %s: missing effective_from", version, e.Code)
		}
		if e.EffectiveTo != nil && e.EffectiveTo.Before(e.EffectiveFrom) {
			return nil, fmt.Errorf("rate table %s: code %s: effective_to %s precedes effective_from %s",
				version, e.Code, e.EffectiveTo.Format("2006-01-02"), e.EffectiveFrom.Format("2006-01-02"))
		}
		byCode[e.Code] = append(byCode[e.Code], e)
	}

	for code, list := range byCode {
		sort.Slice(list, func(i, j int) bool {
			return list[i].EffectiveFrom.Before(list[j].EffectiveFrom)
		})
		for i := 1; i < len(list); i++ {
			prev := list[i-1]
			if prev.EffectiveTo == nil || !prev.EffectiveTo.Before(list[i].EffectiveFrom) {
				return nil, fmt.Errorf("rate table %s: code %s: overlapping effective ranges", version, code)
			}
		}
	}

	return &Table{version: version, byCode: byCode, count: len(entries)}, nil
}

// Version returns the table's version label, carried into result provenance.
func (t *Table) Version() string { return t.version }

// Len returns the number of rate entries.
func (t *Table) Len() int { return t.count }

// Codes returns the distinct service codes in the table, sorted.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.byCode))
	for c := range t.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the rate entry for code whose effective range covers asOf.
// Range endpoints are inclusive; a nil EffectiveTo is open-ended.
func (t *Table) Lookup(code string, asOf time.Time) (model.ServiceCode, bool) {
	for _, e := range t.byCode[code] {
		if asOf.Before(e.EffectiveFrom) {
			continue
		}
		if e.EffectiveTo == nil || !asOf.After(*e.EffectiveTo) {
			return e, true
		}
	}
	return model.ServiceCode{}, false
}
