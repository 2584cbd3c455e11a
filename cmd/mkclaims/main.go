// mkclaims generates a synthetic claims batch priced against real reference
// tables, with a configurable share of deliberate underpayments. Useful for
// demos and for load-testing check runs end to end.
// Usage: go run ./cmd/mkclaims --rates testdata/rates.yaml --geo testdata/geo.yaml \
//   --payers testdata/payers.yaml --out claims.csv --n 500 --violation-pct 30
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/regulahealth/parity/internal/config"
	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
	"github.com/regulahealth/parity/internal/resolve"
)

func main() {
	ratesPath := flag.String("rates", "testdata/rates.yaml", "rate table YAML")
	geoPath := flag.String("geo", "testdata/geo.yaml", "geo table YAML")
	payersPath := flag.String("payers", "testdata/payers.yaml", "payer registry YAML")
	out := flag.String("out", "claims.csv", "output file; .csv or .835/.edi")
	n := flag.Int("n", 500, "claims to generate")
	vioPct := flag.Int("violation-pct", 30, "percent of claims underpaid below the mandate")
	seed := flag.Uint64("seed", 1, "rng seed")
	region := flag.String("region", "", "pin all claims to one geo region (required for .835 output)")
	start := flag.String("start", "2025-01-01", "first service date (YYYY-MM-DD)")
	days := flag.Int("days", 180, "service date spread in days")
	flag.Parse()

	edi := isEDIPath(*out)
	if edi && *region == "" {
		fmt.Fprintln(os.Stderr, "--region is required for .835 output: remittances carry no geo region")
		os.Exit(1)
	}
	if *vioPct < 0 || *vioPct > 100 {
		fmt.Fprintln(os.Stderr, "--violation-pct must be between 0 and 100")
		os.Exit(1)
	}

	c := config.Config{RatesPath: *ratesPath, GeoPath: *geoPath, PayersPath: *payersPath}
	tables, err := config.LoadTables(&c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load tables: %v\n", err)
		os.Exit(1)
	}

	var regionIDs []string
	if *region != "" {
		id := normalize.NormalizeName(*region)
		if _, ok := tables.Geo.Lookup(id); !ok {
			fmt.Fprintf(os.Stderr, "region %q not in geo table\n", *region)
			os.Exit(1)
		}
		regionIDs = []string{id}
	} else {
		for _, r := range tables.Geo.Regions() {
			regionIDs = append(regionIDs, r.RegionID)
		}
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad --start date: %v\n", err)
		os.Exit(1)
	}
	if *days < 1 {
		*days = 1
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	codes := tables.Rates.Codes()
	profiles := tables.Payers.Profiles()
	resolver := &resolve.Resolver{Rates: tables.Rates, Geo: tables.Geo, Payers: tables.Payers}

	var (
		claims     []model.Claim
		violations int
		planted    money.Cents // total deliberate shortfall
		totalPaid  money.Cents
	)

	// Draw candidates and keep only ones the resolver can price, so every
	// generated claim is evaluable. Contract payers reject codes outside
	// their fee schedule, which is why a draw can miss.
	attempts := 0
	maxAttempts := *n * 50
	for len(claims) < *n {
		attempts++
		if attempts > maxAttempts {
			fmt.Fprintf(os.Stderr, "gave up after %d draws with %d/%d claims priced; check the date window and payer coverage\n",
				attempts-1, len(claims), *n)
			os.Exit(1)
		}

		profile := profiles[rng.IntN(len(profiles))]
		units := int64(1)
		if rng.IntN(10) == 0 {
			units = int64(2 + rng.IntN(2))
		}
		var mods []string
		if rng.IntN(100) < 15 {
			mods = []string{[]string{"GT", "95"}[rng.IntN(2)]}
		}

		claim := model.Claim{
			ClaimID:     fmt.Sprintf("CLM%05d", len(claims)+1),
			PayerID:     profile.Name,
			ServiceCode: codes[rng.IntN(len(codes))],
			ServiceDate: startDate.AddDate(0, 0, rng.IntN(*days)),
			GeoRegion:   regionIDs[rng.IntN(len(regionIDs))],
			Units:       units,
			Modifiers:   mods,
		}

		res, err := resolver.Resolve(claim)
		if err != nil {
			continue
		}
		mandate := int64(res.Allowed)
		if mandate == 0 {
			continue
		}

		// All pricing in integer basis points of the mandate.
		var paid int64
		if rng.IntN(100) < *vioPct {
			short := mandate * int64(1100+rng.IntN(3400)) / 10_000
			if short < 2 {
				short = 2
			}
			if short > mandate {
				short = mandate
			}
			paid = mandate - short
			planted += money.Cents(short)
			violations++
		} else {
			paid = mandate + mandate*int64(rng.IntN(1200))/10_000
		}
		billed := money.Cents(paid + mandate*int64(2000+rng.IntN(6000))/10_000)
		patient := fmt.Sprintf("MBR%05d", 10_000+rng.IntN(90_000))

		claim.Paid = money.Cents(paid)
		claim.Billed = &billed
		claim.PatientID = &patient
		totalPaid += claim.Paid
		claims = append(claims, claim)
	}

	if edi {
		err = writeEDI(*out, claims)
	} else {
		err = writeCSV(*out, claims)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", *out, err)
		os.Exit(1)
	}

	payerCounts := make(map[string]int)
	for _, c := range claims {
		payerCounts[c.PayerID]++
	}

	fmt.Printf("Wrote %d claims to %s (%d draws)\n", len(claims), *out, attempts)
	fmt.Printf("  %-12s %d\n", "violations", violations)
	fmt.Printf("  %-12s %d\n", "compliant", len(claims)-violations)
	fmt.Println("Payer distribution:")
	for _, p := range profiles {
		if ct := payerCounts[p.Name]; ct > 0 {
			fmt.Printf("  %-24s %d\n", p.Name, ct)
		}
	}
	fmt.Printf("Total paid:          $%s\n", totalPaid)
	fmt.Printf("Planted recoverable: $%s\n", planted)
}

func isEDIPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".835", ".edi", ".x12", ".era":
		return true
	}
	return false
}

func writeCSV(path string, claims []model.Claim) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"claim_id", "payer", "code", "paid", "billed", "units", "service_date", "region", "modifiers", "patient_id"})
	for _, c := range claims {
		var billed, patient string
		if c.Billed != nil {
			billed = c.Billed.String()
		}
		if c.PatientID != nil {
			patient = *c.PatientID
		}
		_ = w.Write([]string{
			c.ClaimID,
			c.PayerID,
			c.ServiceCode,
			c.Paid.String(),
			billed,
			strconv.FormatInt(c.Units, 10),
			c.ServiceDate.Format("2006-01-02"),
			c.GeoRegion,
			strings.Join(c.Modifiers, "|"),
			patient,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeEDI emits a minimal but well-formed 835: one N1*PR block per payer in
// first-seen order, one CLP per claim, one SVC per CLP so claim ids survive
// the round trip unchanged.
func writeEDI(path string, claims []model.Claim) error {
	var totalPaid money.Cents
	for _, c := range claims {
		totalPaid += c.Paid
	}

	var payerOrder []string
	grouped := make(map[string][]model.Claim)
	for _, c := range claims {
		if _, ok := grouped[c.PayerID]; !ok {
			payerOrder = append(payerOrder, c.PayerID)
		}
		grouped[c.PayerID] = append(grouped[c.PayerID], c)
	}

	// body holds ST through the last claim segment; SE closes it with a
	// count that includes ST and SE themselves.
	body := []string{
		"ST*835*0001",
		"BPR*I*" + totalPaid.String() + "*C*ACH",
		"TRN*1*MKCLAIMS0001*1000000000",
	}
	for _, payer := range payerOrder {
		body = append(body, "N1*PR*"+payer)
		for _, c := range grouped[payer] {
			billed := c.Paid
			if c.Billed != nil {
				billed = *c.Billed
			}
			body = append(body, fmt.Sprintf("CLP*%s*1*%s*%s", c.ClaimID, billed, c.Paid))
			if c.PatientID != nil {
				body = append(body, "NM1*QC*1*SYNTHETIC*MEMBER****MI*"+*c.PatientID)
			}
			proc := "HC:" + c.ServiceCode
			for _, m := range c.Modifiers {
				proc += ":" + m
			}
			body = append(body, fmt.Sprintf("SVC*%s*%s*%s**%d", proc, billed, c.Paid, c.Units))
			body = append(body, "DTM*472*"+c.ServiceDate.Format("20060102"))
		}
	}
	body = append(body, fmt.Sprintf("SE*%d*0001", len(body)+1))

	segments := []string{
		"ISA*00*          *00*          *ZZ*MKCLAIMS       *ZZ*PARITYCHECK    *250101*0000*^*00501*000000001*0*T*:",
		"GS*HP*MKCLAIMS*PARITYCHECK*20250101*0000*1*X*005010X221A1",
	}
	segments = append(segments, body...)
	segments = append(segments, "GE*1*1", "IEA*1*000000001")

	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg)
		b.WriteString("~\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
