package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
)

// DTM qualifiers that carry a usable service date: 472 service date,
// 150 service period start, 232 claim statement period start.
var serviceDateQualifiers = map[string]bool{
	"472": true,
	"150": true,
	"232": true,
}

type ediLine struct {
	segment   int
	code      string
	modifiers []string
	billed    *money.Cents
	paid      money.Cents
	units     int64
	date      *time.Time
}

type ediClaim struct {
	segment   int
	id        string
	payer     string
	patientID *string
	date      *time.Time
	lines     []ediLine
}

// DecodeEDI parses an X12 835 remittance into one claim per SVC service
// line. Only the segments the engine needs are read: N1*PR for the payer,
// CLP for the claim envelope, NM1*QC for the patient, SVC for priced
// lines, and DTM for service dates. Everything else is skipped.
//
// A DTM following an SVC dates that line; a DTM before any line dates the
// whole claim and fills lines without their own. When a CLP carries more
// than one SVC, line claims get an ordinal suffix ("CLM100/2") so ids stay
// unique within the batch.
func DecodeEDI(r io.Reader, defaultRegion string) ([]model.Claim, []Reject, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read edi: %w", err)
	}
	content := strings.TrimPrefix(string(data), "\uFEFF")
	if strings.TrimSpace(content) == "" {
		return nil, nil, fmt.Errorf("edi: empty document")
	}
	defaultRegion = normalize.NormalizeName(defaultRegion)

	var (
		claims  []model.Claim
		rejects []Reject
		payer   string
		cur     *ediClaim
		seen    = make(map[string]bool)
	)

	flush := func() {
		if cur == nil {
			return
		}
		c := cur
		cur = nil
		if len(c.lines) == 0 {
			rejects = append(rejects, Reject{Line: c.segment, Reason: fmt.Sprintf("claim %s has no service lines", c.id)})
			return
		}
		multi := len(c.lines) > 1
		for n, line := range c.lines {
			id := c.id
			if multi {
				id = fmt.Sprintf("%s/%d", c.id, n+1)
			}
			date := line.date
			if date == nil {
				date = c.date
			}
			switch {
			case date == nil:
				rejects = append(rejects, Reject{Line: line.segment, Reason: fmt.Sprintf("claim %s: no service date (DTM missing)", id)})
			case c.payer == "":
				rejects = append(rejects, Reject{Line: line.segment, Reason: fmt.Sprintf("claim %s: no payer in scope (N1*PR missing)", id)})
			case seen[id]:
				rejects = append(rejects, Reject{Line: line.segment, Reason: fmt.Sprintf("duplicate claim id %s", id)})
			default:
				seen[id] = true
				claims = append(claims, model.Claim{
					ClaimID:     id,
					PayerID:     c.payer,
					ServiceCode: line.code,
					ServiceDate: *date,
					GeoRegion:   defaultRegion,
					Paid:        line.paid,
					Billed:      line.billed,
					Units:       line.units,
					Modifiers:   line.modifiers,
					PatientID:   c.patientID,
				})
			}
		}
	}

	for i, raw := range strings.Split(content, "~") {
		seg := strings.TrimSpace(raw)
		if seg == "" {
			continue
		}
		segNum := i + 1
		elems := strings.Split(seg, "*")

		switch strings.ToUpper(strings.TrimSpace(elems[0])) {
		case "N1":
			if len(elems) > 2 && strings.EqualFold(strings.TrimSpace(elems[1]), "PR") {
				flush()
				payer = strings.TrimSpace(elems[2])
			}
		case "CLP":
			flush()
			if len(elems) < 2 || strings.TrimSpace(elems[1]) == "" {
				rejects = append(rejects, Reject{Line: segNum, Reason: "CLP segment missing claim id"})
				continue
			}
			cur = &ediClaim{segment: segNum, id: strings.TrimSpace(elems[1]), payer: payer}
		case "NM1":
			if cur != nil && len(elems) > 9 && strings.EqualFold(strings.TrimSpace(elems[1]), "QC") {
				if pid := strings.TrimSpace(elems[9]); pid != "" {
					cur.patientID = &pid
				}
			}
		case "SVC":
			if cur == nil {
				rejects = append(rejects, Reject{Line: segNum, Reason: "SVC segment outside a claim"})
				continue
			}
			line, reason := parseSVC(elems)
			if reason != "" {
				rejects = append(rejects, Reject{Line: segNum, Reason: reason})
				continue
			}
			line.segment = segNum
			cur.lines = append(cur.lines, line)
		case "DTM":
			if cur == nil || len(elems) < 3 || !serviceDateQualifiers[strings.TrimSpace(elems[1])] {
				continue
			}
			ts := normalize.ParseDate(elems[2])
			if ts == nil {
				rejects = append(rejects, Reject{Line: segNum, Reason: fmt.Sprintf("DTM date %q unparseable", strings.TrimSpace(elems[2]))})
				continue
			}
			if n := len(cur.lines); n > 0 && cur.lines[n-1].date == nil {
				cur.lines[n-1].date = ts
			} else if cur.date == nil {
				cur.date = ts
			}
		}
	}
	flush()

	return claims, rejects, nil
}

// parseSVC reads a priced service line. Layout follows the 835 SVC
// segment: SVC01 is the HC composite (code plus modifiers), SVC02 the
// billed charge, SVC03 the paid amount, SVC05 the units.
func parseSVC(elems []string) (ediLine, string) {
	var line ediLine
	if len(elems) < 4 {
		return line, "SVC segment too short"
	}

	comp := strings.Split(elems[1], ":")
	if len(comp) < 2 {
		return line, "SVC composite missing procedure code"
	}
	code := normalize.NormalizeCode(comp[1])
	if code == "" {
		return line, "SVC composite has blank procedure code"
	}
	line.code = code
	for _, m := range comp[2:] {
		if mod := normalize.NormalizeCode(m); mod != "" {
			line.modifiers = append(line.modifiers, mod)
		}
	}

	if b := strings.TrimSpace(elems[2]); b != "" {
		v, err := money.ParseCents(b)
		if err != nil {
			return line, fmt.Sprintf("bad billed amount %q", b)
		}
		line.billed = &v
	}

	paid := strings.TrimSpace(elems[3])
	if paid == "" {
		return line, "SVC missing paid amount"
	}
	v, err := money.ParseCents(paid)
	if err != nil {
		return line, fmt.Sprintf("bad paid amount %q", paid)
	}
	line.paid = v

	line.units = 1
	if len(elems) > 5 {
		if u := strings.TrimSpace(elems[5]); u != "" {
			n, err := strconv.ParseInt(u, 10, 64)
			if err != nil {
				return line, fmt.Sprintf("bad units %q", u)
			}
			line.units = n
		}
	}
	return line, ""
}
