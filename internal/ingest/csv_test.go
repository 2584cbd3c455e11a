package ingest

import (
	"strings"
	"testing"

	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
)

func TestDecodeCSV_FullExport(t *testing.T) {
	// BOM-prefixed, mixed-case headers, alias spellings.
	doc := "\uFEFFClaim_ID,Payer,CPT_Code,Paid_Amount,Billed_Amount,Units,Service_Date,Geo_Region,Modifiers,Patient_ID\n" +
		"CLM001,Medicaid NY,90837,130.00,150.00,1,2025-01-15,NYC,,P001\n" +
		"CLM002,Medicaid NY,90834,95.00,120.00,1,01/16/2025,,GT|95,\n" +
		"CLM003,Aetna Better Health,H0038,43.50,,3,2025-02-03,Upstate,,P003\n"

	claims, rejects, err := DecodeCSV(strings.NewReader(doc), "upstate")
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(rejects) != 0 {
		t.Fatalf("rejects = %+v, want none", rejects)
	}
	if len(claims) != 3 {
		t.Fatalf("got %d claims, want 3", len(claims))
	}

	billed := func(c money.Cents) *money.Cents { return &c }
	p001 := "P001"
	p003 := "P003"
	want := []model.Claim{
		{
			ClaimID:     "CLM001",
			PayerID:     "Medicaid NY",
			ServiceCode: "90837",
			ServiceDate: day(2025, 1, 15),
			GeoRegion:   "nyc",
			Paid:        13000,
			Billed:      billed(15000),
			Units:       1,
			PatientID:   &p001,
		},
		{
			ClaimID:     "CLM002",
			PayerID:     "Medicaid NY",
			ServiceCode: "90834",
			ServiceDate: day(2025, 1, 16),
			GeoRegion:   "upstate",
			Paid:        9500,
			Billed:      billed(12000),
			Units:       1,
			Modifiers:   []string{"GT", "95"},
		},
		{
			ClaimID:     "CLM003",
			PayerID:     "Aetna Better Health",
			ServiceCode: "H0038",
			ServiceDate: day(2025, 2, 3),
			GeoRegion:   "upstate",
			Paid:        4350,
			Units:       3,
			PatientID:   &p003,
		},
	}
	for i, w := range want {
		assertClaim(t, claims[i], w)
	}
}

func TestDecodeCSV_MinimalHeader(t *testing.T) {
	doc := "claim_id,payer,cpt,paid,service_date\n" +
		"A1,Medicaid NY,90837,130.00,2025-01-15\n"

	claims, rejects, err := DecodeCSV(strings.NewReader(doc), "nyc")
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(rejects) != 0 {
		t.Fatalf("rejects = %+v, want none", rejects)
	}
	if len(claims) != 1 {
		t.Fatalf("got %d claims, want 1", len(claims))
	}
	c := claims[0]
	if c.Units != 1 {
		t.Errorf("Units = %d, want default 1", c.Units)
	}
	if c.GeoRegion != "nyc" {
		t.Errorf("GeoRegion = %q, want default nyc", c.GeoRegion)
	}
	if c.Billed != nil {
		t.Errorf("Billed = %d, want nil", *c.Billed)
	}
	if c.PatientID != nil {
		t.Errorf("PatientID = %q, want nil", *c.PatientID)
	}
}

func TestDecodeCSV_RowRejects(t *testing.T) {
	doc := "claim_id,payer,cpt,paid,service_date\n" +
		"B1,Medicaid NY,90837,130.00,2025-01-15\n" +
		",Medicaid NY,90837,130.00,2025-01-15\n" +
		"B2,,90837,130.00,2025-01-15\n" +
		"B3,Medicaid NY,,130.00,2025-01-15\n" +
		"B4,Medicaid NY,90837,abc,2025-01-15\n" +
		"B5,Medicaid NY,90837,130.00,someday\n" +
		"B6,Medicaid NY,90837,130.00\n" +
		"B1,Medicaid NY,90837,130.00,2025-01-15\n"

	claims, rejects, err := DecodeCSV(strings.NewReader(doc), "nyc")
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(claims) != 1 || claims[0].ClaimID != "B1" {
		t.Fatalf("claims = %+v, want just B1", claims)
	}

	wantReasons := map[int]string{
		3: "missing claim_id",
		4: "missing payer",
		5: "missing service code",
		6: `bad paid amount "abc"`,
		7: `bad service date "someday"`,
		8: "wrong number of fields",
		9: "duplicate claim id B1",
	}
	if len(rejects) != len(wantReasons) {
		t.Fatalf("got %d rejects %+v, want %d", len(rejects), rejects, len(wantReasons))
	}
	for _, rej := range rejects {
		want, ok := wantReasons[rej.Line]
		if !ok {
			t.Errorf("unexpected reject at record %d: %q", rej.Line, rej.Reason)
			continue
		}
		if rej.Reason != want {
			t.Errorf("record %d reason = %q, want %q", rej.Line, rej.Reason, want)
		}
	}
}

func TestDecodeCSV_MissingRequiredColumn(t *testing.T) {
	doc := "claim_id,payer,cpt,paid\nA1,Medicaid NY,90837,130.00\n"
	_, _, err := DecodeCSV(strings.NewReader(doc), "nyc")
	if err == nil || !strings.Contains(err.Error(), "missing required column date") {
		t.Fatalf("err = %v, want missing column error for date", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		path, format string
		want         string
		wantErr      bool
	}{
		{"claims.csv", "auto", FormatCSV, false},
		{"remit.835", "", FormatEDI, false},
		{"remit.EDI", "auto", FormatEDI, false},
		{"remit.x12", "auto", FormatEDI, false},
		{"era_2025.era", "auto", FormatEDI, false},
		{"claims.dat", "csv", FormatCSV, false},
		{"claims.dat", "auto", "", true},
		{"claims.csv", "parquet", "", true},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.path, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Errorf("DetectFormat(%q, %q): want error", tc.path, tc.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("DetectFormat(%q, %q): %v", tc.path, tc.format, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DetectFormat(%q, %q) = %q, want %q", tc.path, tc.format, got, tc.want)
		}
	}
}
