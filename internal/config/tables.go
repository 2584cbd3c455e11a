package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
	"github.com/regulahealth/parity/internal/payer"
	"github.com/regulahealth/parity/internal/pipeline"
	"github.com/regulahealth/parity/internal/rates"
)

// On-disk YAML structure for the mandated rate table. Money fields decode
// through the fixed-point parsers, so "162.49" never touches a float.
type rateFile struct {
	Version string      `yaml:"version"`
	Rates   []rateEntry `yaml:"rates"`
}

type rateEntry struct {
	Code          string      `yaml:"code"`
	Description   string      `yaml:"description"`
	Category      string      `yaml:"category"`
	BaseRate      money.Cents `yaml:"base_rate"`
	COLARate      money.Cents `yaml:"cola_rate"`
	EffectiveFrom string      `yaml:"effective_from"`
	EffectiveTo   string      `yaml:"effective_to"`
}

type geoFile struct {
	Version string     `yaml:"version"`
	Regions []geoEntry `yaml:"regions"`
}

type geoEntry struct {
	ID         string       `yaml:"id"`
	Name       string       `yaml:"name"`
	Multiplier money.Factor `yaml:"multiplier"`
}

type payerFile struct {
	Payers []payerEntry `yaml:"payers"`
}

type payerEntry struct {
	ID               string                 `yaml:"id"`
	Name             string                 `yaml:"name"`
	Aliases          []string               `yaml:"aliases"`
	Adapter          string                 `yaml:"adapter"`
	AppealWindowDays int                    `yaml:"appeal_window_days"`
	Multiplier       money.Factor           `yaml:"multiplier"`
	ConversionFactor money.Cents            `yaml:"conversion_factor"`
	RVUs             map[string]payer.RVU   `yaml:"rvus"`
	GPCI             map[string]payer.GPCI  `yaml:"gpci"`
	ContractRates    map[string]money.Cents `yaml:"contract_rates"`
}

// LoadRateTable reads, normalizes, and validates a rate table file.
func LoadRateTable(path string) (*rates.Table, error) {
	var rf rateFile
	if err := readYAML(path, &rf); err != nil {
		return nil, fmt.Errorf("rate table: %w", err)
	}

	entries := make([]model.ServiceCode, 0, len(rf.Rates))
	for i, e := range rf.Rates {
		sc := model.ServiceCode{
			Code:        normalize.NormalizeCode(e.Code),
			Description: e.Description,
			Category:    e.Category,
			BaseRate:    e.BaseRate,
			COLARate:    e.COLARate,
		}
		from := normalize.ParseDate(e.EffectiveFrom)
		if from == nil {
			return nil, fmt.Errorf("rate table entry %d (%s): bad effective_from %q", i, e.Code, e.EffectiveFrom)
		}
		sc.EffectiveFrom = *from
		if e.EffectiveTo != "" {
			to := normalize.ParseDate(e.EffectiveTo)
			if to == nil {
				return nil, fmt.Errorf("rate table entry %d (%s): bad effective_to %q", i, e.Code, e.EffectiveTo)
			}
			sc.EffectiveTo = to
		}
		entries = append(entries, sc)
	}

	t, err := rates.NewTable(rf.Version, entries)
	if err != nil {
		return nil, fmt.Errorf("rate table %s: %w", path, err)
	}
	return t, nil
}

// LoadGeoTable reads, normalizes, and validates a geo multiplier file.
func LoadGeoTable(path string) (*rates.GeoTable, error) {
	var gf geoFile
	if err := readYAML(path, &gf); err != nil {
		return nil, fmt.Errorf("geo table: %w", err)
	}

	regions := make([]model.GeoRegion, 0, len(gf.Regions))
	for _, e := range gf.Regions {
		name := e.Name
		if name == "" {
			name = e.ID
		}
		regions = append(regions, model.GeoRegion{
			RegionID:   normalize.NormalizeName(e.ID),
			Name:       name,
			Multiplier: e.Multiplier,
		})
	}

	t, err := rates.NewGeoTable(gf.Version, regions)
	if err != nil {
		return nil, fmt.Errorf("geo table %s: %w", path, err)
	}
	return t, nil
}

// LoadPayerRegistry reads payer profiles and builds their adapters. An
// entry without an adapter name gets the default geo COLA strategy.
func LoadPayerRegistry(path string) (*payer.Registry, error) {
	var pf payerFile
	if err := readYAML(path, &pf); err != nil {
		return nil, fmt.Errorf("payer registry: %w", err)
	}

	profiles := make([]*payer.Profile, 0, len(pf.Payers))
	for i, e := range pf.Payers {
		kind := payer.KindGeoCOLA
		if e.Adapter != "" {
			k, ok := payer.KindByName(e.Adapter)
			if !ok {
				return nil, fmt.Errorf("payer entry %d (%s): unknown adapter %q", i, e.ID, e.Adapter)
			}
			kind = k
		}
		profiles = append(profiles, &payer.Profile{
			ID:               e.ID,
			Name:             e.Name,
			Aliases:          e.Aliases,
			Kind:             kind,
			AppealWindowDays: e.AppealWindowDays,
			Multiplier:       e.Multiplier,
			ConversionFactor: e.ConversionFactor,
			RVUs:             normalizeKeys(e.RVUs, normalize.NormalizeCode),
			GPCI:             normalizeKeys(e.GPCI, normalize.NormalizeName),
			ContractRates:    normalizeKeys(e.ContractRates, normalize.NormalizeCode),
		})
	}

	reg, err := payer.NewRegistry(profiles)
	if err != nil {
		return nil, fmt.Errorf("payer registry %s: %w", path, err)
	}
	return reg, nil
}

// LoadTables loads all three reference tables into a pipeline snapshot.
func LoadTables(c *Config) (*pipeline.Tables, error) {
	rt, err := LoadRateTable(c.RatesPath)
	if err != nil {
		return nil, err
	}
	gt, err := LoadGeoTable(c.GeoPath)
	if err != nil {
		return nil, err
	}
	pr, err := LoadPayerRegistry(c.PayersPath)
	if err != nil {
		return nil, err
	}
	return &pipeline.Tables{Rates: rt, Geo: gt, Payers: pr}, nil
}

// normalizeKeys rewrites map keys with the given normalizer so lookups
// match however the claim side was normalized.
func normalizeKeys[V any](m map[string]V, norm func(string) string) map[string]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[norm(k)] = v
	}
	return out
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
