package exchange

import (
	"fmt"
	"strings"
)

// SplitSymbol splits a canonical "BASE/QUOTE" symbol.
func SplitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(symbol)), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid symbol %q, expected BASE/QUOTE", symbol)
	}
	return parts[0], parts[1], nil
}

// venueSymbol rewrites a canonical symbol with the venue's separator,
// e.g. ETH/BRL -> ETHBRL, ETH-BRL or ETH_BRL.
func venueSymbol(symbol, sep string) (string, error) {
	base, quote, err := SplitSymbol(symbol)
	if err != nil {
		return "", err
	}
	return base + sep + quote, nil
}
