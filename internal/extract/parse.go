package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// parseMileage accepts digits with optional thousands separators. Negative
// or unparseable values yield nil.
func parseMileage(s string) *int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// parseCost parses a money amount to two decimal places.
func parseCost(s string) *decimal.Decimal {
	s = strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	d = d.Round(2)
	return &d
}

func parseISODate(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// civilDate builds a UTC midnight date, rejecting values time.Date would
// normalize (Feb 30) and years outside a plausible service window.
func civilDate(year, month, day int) *time.Time {
	if year < 1980 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return nil
	}
	return &t
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
