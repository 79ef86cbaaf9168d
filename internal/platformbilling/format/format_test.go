package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFinancialYearLabel(t *testing.T) {
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC), "2025-26"},
		{time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), "2026-27"},
		{time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), "2025-26"},
		{time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "2025-26"},
		// Century rollover keeps the two-digit suffix.
		{time.Date(2099, time.June, 1, 0, 0, 0, 0, time.UTC), "2099-00"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FinancialYearLabel(tc.date), tc.date.String())
	}
}

func TestRender(t *testing.T) {
	date := time.Date(2025, time.August, 29, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "VEN-2025-26-00042",
		Render(DefaultSeriesFormat, "VEN", date, 42, 5))
	assert.Equal(t, "INV/2025/7",
		Render("INV/{YYYY}/{NNNNN}", "ignored", date, 7, 1))

	// A sequence wider than the padding keeps all its digits.
	assert.Equal(t, "VEN-2025-26-123456",
		Render(DefaultSeriesFormat, "VEN", date, 123456, 5))
}

func TestHasSequenceToken(t *testing.T) {
	assert.True(t, HasSequenceToken(DefaultSeriesFormat))
	assert.False(t, HasSequenceToken("{PREFIX}-{FY}"))
}
