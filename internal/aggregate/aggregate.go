// Package aggregate holds the pure summing and bucketing helpers behind the
// dashboard and leaderboard endpoints.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"
)

// IllustrativeRates converts one unit of a currency to USD. These are fixed
// approximations for dashboard display, not a financial-grade rate source.
var IllustrativeRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("1.08"),
	"GBP": decimal.RequireFromString("1.27"),
	"JPY": decimal.RequireFromString("0.0067"),
	"VND": decimal.RequireFromString("0.000039"),
}

// Entry is a money amount tagged with a category and currency.
type Entry struct {
	Type     string
	Currency string
	Amount   decimal.Decimal
}

// SumByType totals the entries of the given type, converted to USD using the
// rate table. Entries in an unknown currency are skipped rather than guessed.
func SumByType(entries []Entry, typ string, rates map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Type != typ {
			continue
		}
		rate, ok := rates[e.Currency]
		if !ok {
			continue
		}
		total = total.Add(e.Amount.Mul(rate))
	}
	return total
}

// BucketByMonth returns the items whose timestamp (via at) falls inside
// [monthStart, monthEnd), preserving input order.
func BucketByMonth[T any](items []T, at func(T) time.Time, monthStart, monthEnd time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		ts := at(item)
		if !ts.Before(monthStart) && ts.Before(monthEnd) {
			out = append(out, item)
		}
	}
	return out
}

// MonthRange returns the start of t's month and the start of the next month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// Outstanding is the amount still owed on an invoice. It is always derived
// from total and paid, never stored independently.
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}
