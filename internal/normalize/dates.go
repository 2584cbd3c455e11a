package normalize

import (
	"strings"
	"time"
)

// Date formats seen across claim exports and 835 remittances. The compact
// CCYYMMDD form is what DTM segments carry.
var dateFormats = []string{
	"2006-01-02",
	"20060102",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// ParseDate attempts to parse a date string in multiple common formats.
// Results are truncated to midnight UTC; service dates are day-granular
// and rate effective ranges compare at day boundaries.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}
