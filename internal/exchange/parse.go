package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parsePrice returns nil for empty, unparsable or non-positive prices so the
// side is treated as absent.
func parsePrice(s string) *float64 {
	d, ok := parseDecimal(s)
	if !ok || !d.IsPositive() {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// parseRate parses a fee rate expressed as a fraction. Negative rates (maker
// rebates) and rates >= 1 are rejected.
func parseRate(s string) *float64 {
	d, ok := parseDecimal(s)
	if !ok || d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// fractionToPct converts "0.0123" into 1.23.
func fractionToPct(s string) *float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return nil
	}
	f := d.Mul(decimal.NewFromInt(100)).InexactFloat64()
	return &f
}

// parsePct parses a value that is already a percentage.
func parsePct(s string) *float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

// changePct computes (last - open) / open * 100.
func changePct(last, open string) *float64 {
	l, ok := parseDecimal(last)
	if !ok {
		return nil
	}
	o, ok := parseDecimal(open)
	if !ok || !o.IsPositive() {
		return nil
	}
	f := l.Sub(o).Div(o).Mul(decimal.NewFromInt(100)).InexactFloat64()
	return &f
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func rate(v float64) *float64 {
	return &v
}
