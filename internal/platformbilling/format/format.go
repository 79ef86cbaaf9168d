// Package format renders platform invoice numbers from a series template.
// It is pure string work; persistence and sequencing live in the billing
// service.
package format

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSeriesFormat is used when the configured template is unusable.
const DefaultSeriesFormat = "{PREFIX}-{FY}-{NNNNN}"

// SequenceToken must appear in every series template; a template without it
// would mint the same invoice number forever.
const SequenceToken = "{NNNNN}"

// FinancialYearLabel returns the Indian financial year the date falls in,
// e.g. "2025-26". The year boundary is April 1.
func FinancialYearLabel(date time.Time) string {
	d := date.UTC()
	start := d.Year()
	if d.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// HasSequenceToken reports whether the template contains {NNNNN}.
func HasSequenceToken(template string) bool {
	return strings.Contains(template, SequenceToken)
}

// Render substitutes {PREFIX}, {FY}, {YYYY} and {NNNNN} into the template.
// The sequence is zero-padded to the given width; wider sequences keep all
// their digits rather than truncating.
func Render(template, prefix string, date time.Time, seq int64, padding int) string {
	if padding <= 0 {
		padding = 1
	}
	return strings.NewReplacer(
		"{PREFIX}", prefix,
		"{FY}", FinancialYearLabel(date),
		"{YYYY}", fmt.Sprintf("%d", date.UTC().Year()),
		SequenceToken, fmt.Sprintf("%0*d", padding, seq),
	).Replace(template)
}
