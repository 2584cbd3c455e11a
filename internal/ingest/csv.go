package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
)

// Header spellings accepted for each claim field. Claim exports are not
// standardized; these cover the systems seen so far.
var csvHeaderAliases = map[string]string{
	"claim_id":      "claim_id",
	"claim":         "claim_id",
	"payer":         "payer",
	"payer_id":      "payer",
	"payer_name":    "payer",
	"code":          "code",
	"cpt":           "code",
	"cpt_code":      "code",
	"service_code":  "code",
	"paid":          "paid",
	"paid_amount":   "paid",
	"billed":        "billed",
	"billed_amount": "billed",
	"units":         "units",
	"quantity":      "units",
	"date":          "date",
	"dos":           "date",
	"service_date":  "date",
	"region":        "region",
	"geo_region":    "region",
	"locality":      "region",
	"modifiers":     "modifiers",
	"modifier":      "modifiers",
	"patient_id":    "patient_id",
	"patient":       "patient_id",
}

var csvRequiredColumns = []string{"claim_id", "payer", "code", "paid", "date"}

// DecodeCSV parses a header-mapped claims export. Column order is free;
// headers are matched case-insensitively against csvHeaderAliases. Rows
// that cannot be turned into a claim are returned as Rejects keyed by
// their 1-based record number.
func DecodeCSV(r io.Reader, defaultRegion string) ([]model.Claim, []Reject, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		canon, ok := csvHeaderAliases[key]
		if !ok {
			continue
		}
		if _, dup := cols[canon]; !dup {
			cols[canon] = i
		}
	}
	for _, req := range csvRequiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, nil, fmt.Errorf("csv: missing required column %s", req)
		}
	}

	var (
		claims  []model.Claim
		rejects []Reject
		seen    = make(map[string]bool)
	)
	record := 1 // the header
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		record++
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				rejects = append(rejects, Reject{Line: record, Reason: "wrong number of fields"})
				continue
			}
			return nil, nil, fmt.Errorf("read csv record %d: %w", record, err)
		}

		claim, reason := csvClaim(rec, cols, defaultRegion)
		if reason != "" {
			rejects = append(rejects, Reject{Line: record, Reason: reason})
			continue
		}
		if seen[claim.ClaimID] {
			rejects = append(rejects, Reject{Line: record, Reason: fmt.Sprintf("duplicate claim id %s", claim.ClaimID)})
			continue
		}
		seen[claim.ClaimID] = true
		claims = append(claims, claim)
	}
	return claims, rejects, nil
}

func csvClaim(rec []string, cols map[string]int, defaultRegion string) (model.Claim, string) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var c model.Claim

	c.ClaimID = get("claim_id")
	if c.ClaimID == "" {
		return c, "missing claim_id"
	}
	c.PayerID = get("payer")
	if c.PayerID == "" {
		return c, "missing payer"
	}
	c.ServiceCode = normalize.NormalizeCode(get("code"))
	if c.ServiceCode == "" {
		return c, "missing service code"
	}

	paid := get("paid")
	v, err := money.ParseCents(paid)
	if err != nil {
		return c, fmt.Sprintf("bad paid amount %q", paid)
	}
	c.Paid = v

	if b := get("billed"); b != "" {
		v, err := money.ParseCents(b)
		if err != nil {
			return c, fmt.Sprintf("bad billed amount %q", b)
		}
		c.Billed = &v
	}

	c.Units = 1
	if u := get("units"); u != "" {
		n, err := strconv.ParseInt(u, 10, 64)
		if err != nil {
			return c, fmt.Sprintf("bad units %q", u)
		}
		c.Units = n
	}

	d := get("date")
	ts := normalize.ParseDate(d)
	if ts == nil {
		return c, fmt.Sprintf("bad service date %q", d)
	}
	c.ServiceDate = *ts

	region := get("region")
	if region == "" {
		region = defaultRegion
	}
	c.GeoRegion = normalize.NormalizeName(region)

	if mods := get("modifiers"); mods != "" {
		for _, m := range strings.Split(mods, "|") {
			if mod := normalize.NormalizeCode(m); mod != "" {
				c.Modifiers = append(c.Modifiers, mod)
			}
		}
	}
	if pid := get("patient_id"); pid != "" {
		c.PatientID = &pid
	}
	return c, ""
}
