// Package ingest reads claim batches from payer remittance files.
//
// Two source formats are supported: CSV exports from claim systems and
// X12 835 electronic remittance advice. Both decoders are lenient at the
// row level: a malformed row or segment becomes a Reject with a reason,
// never an aborted batch. Structural problems (unreadable file, missing
// required CSV columns) fail the whole read.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regulahealth/parity/internal/model"
)

// Claim file formats accepted by DetectFormat.
const (
	FormatCSV = "csv"
	FormatEDI = "edi"
)

// Reject records a source row or segment that could not be turned into a
// claim. Line is the 1-based CSV record number or EDI segment number.
type Reject struct {
	Line   int
	Reason string
}

// DetectFormat resolves the claims file format. An explicit format wins;
// "auto" (or empty) falls back to the file extension.
func DetectFormat(path, format string) (string, error) {
	switch format {
	case FormatCSV, FormatEDI:
		return format, nil
	case "", "auto":
	default:
		return "", fmt.Errorf("unknown claims format %q", format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".835", ".edi", ".x12", ".era":
		return FormatEDI, nil
	}
	return "", fmt.Errorf("cannot detect claims format from %q; pass --format", filepath.Base(path))
}

// ReadClaimsFile loads a claims batch from path, logging every rejected
// row. defaultRegion fills the geo region for sources that do not carry
// one (all EDI, CSV rows with a blank region column).
func ReadClaimsFile(path, format, defaultRegion string, log zerolog.Logger) ([]model.Claim, error) {
	detected, err := DetectFormat(path, format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open claims file: %w", err)
	}
	defer f.Close()

	var (
		claims  []model.Claim
		rejects []Reject
	)
	switch detected {
	case FormatCSV:
		claims, rejects, err = DecodeCSV(f, defaultRegion)
	case FormatEDI:
		claims, rejects, err = DecodeEDI(f, defaultRegion)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s claims: %w", detected, err)
	}

	for _, rej := range rejects {
		log.Warn().
			Int("line", rej.Line).
			Str("reason", rej.Reason).
			Msg("claim row rejected")
	}
	log.Info().
		Str("file", path).
		Str("format", detected).
		Int("claims", len(claims)).
		Int("rejected", len(rejects)).
		Msg("claims loaded")

	return claims, nil
}
