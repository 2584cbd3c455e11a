package rates

import (
	"fmt"
	"sort"

	"github.com/regulahealth/parity/internal/model"
)

// GeoTable is an immutable, versioned set of geographic rate localities.
type GeoTable struct {
	version string
	regions map[string]model.GeoRegion
}

// NewGeoTable validates regions and builds the lookup index. Every region
// needs a unique id and a positive multiplier; a zero multiplier would
// silently zero out every mandate in that locality.
func NewGeoTable(version string, regions []model.GeoRegion) (*GeoTable, error) {
	if version == "" {
		return nil, fmt.Errorf("geo table: version is required")
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("geo table %s: no regions", version)
	}

	byID := make(map[string]model.GeoRegion, len(regions))
	for i, r := range regions {
		if r.RegionID == "" {
			return nil, fmt.Errorf("geo table %s: region %d: empty region id", version, i)
		}
		if r.Multiplier.Scaled() <= 0 {
			return nil, fmt.Errorf("geo table %s: region %s: multiplier must be positive", version, r.RegionID)
		}
		if _, dup := byID[r.RegionID]; dup {
			return nil, fmt.Errorf("geo table %s: duplicate region id %s", version, r.RegionID)
		}
		byID[r.RegionID] = r
	}

	return &GeoTable{version: version, regions: byID}, nil
}

// Version returns the table's version label.
func (g *GeoTable) Version() string { return g.version }

// Len returns the number of regions.
func (g *GeoTable) Len() int { return len(g.regions) }

// Lookup returns the region for the given id.
func (g *GeoTable) Lookup(regionID string) (model.GeoRegion, bool) {
	r, ok := g.regions[regionID]
	return r, ok
}

// Regions returns all regions sorted by id, for reports.
func (g *GeoTable) Regions() []model.GeoRegion {
	out := make([]model.GeoRegion, 0, len(g.regions))
	for _, r := range g.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out
}
