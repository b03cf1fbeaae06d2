package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSumByType(t *testing.T) {
	entries := []Entry{
		{Type: "TRAVEL", Currency: "USD", Amount: decimal.RequireFromString("100")},
		{Type: "TRAVEL", Currency: "EUR", Amount: decimal.RequireFromString("50")},
		{Type: "EQUIPMENT", Currency: "USD", Amount: decimal.RequireFromString("999")},
		{Type: "TRAVEL", Currency: "XAU", Amount: decimal.RequireFromString("1")}, // unknown currency, skipped
	}

	got := SumByType(entries, "TRAVEL", IllustrativeRates)
	// 100 + 50 * 1.08
	assert.True(t, got.Equal(decimal.RequireFromString("154")), "got %s", got)

	assert.True(t, SumByType(entries, "SOFTWARE", IllustrativeRates).IsZero())
	assert.True(t, SumByType(nil, "TRAVEL", IllustrativeRates).IsZero())
}

func TestBucketByMonth(t *testing.T) {
	type row struct {
		name string
		at   time.Time
	}
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows := []row{
		{"before", start.Add(-time.Second)},
		{"first instant", start},
		{"mid month", start.AddDate(0, 0, 14)},
		{"last instant", end.Add(-time.Nanosecond)},
		{"next month", end},
	}

	got := BucketByMonth(rows, func(r row) time.Time { return r.at }, start, end)

	names := make([]string, 0, len(got))
	for _, r := range got {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{"first instant", "mid month", "last instant"}, names)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2026, time.August, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), end)

	// December rolls into the next year.
	start, end = MonthRange(time.Date(2026, time.December, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestOutstanding(t *testing.T) {
	total := decimal.RequireFromString("1000")

	// Partial payment leaves the remainder outstanding.
	afterFirst := Outstanding(total, decimal.RequireFromString("400"))
	assert.True(t, afterFirst.Equal(decimal.RequireFromString("600")), "got %s", afterFirst)

	// Paying the remainder zeroes it out exactly.
	afterSecond := Outstanding(total, decimal.RequireFromString("400").Add(decimal.RequireFromString("600")))
	assert.True(t, afterSecond.IsZero())

	// Decimal arithmetic keeps cents exact.
	cents := Outstanding(decimal.RequireFromString("0.30"), decimal.RequireFromString("0.10"))
	assert.True(t, cents.Equal(decimal.RequireFromString("0.20")), "got %s", cents)
}
