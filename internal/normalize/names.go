package normalize

import "strings"

// NormalizeName lowercases and collapses runs of whitespace to single
// spaces so payer and region identifiers compare by content rather than
// by the formatting of whichever file they arrived in.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
