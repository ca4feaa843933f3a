package parse

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarkers = []string{"R$", "US$", "$", "€", "£", "¥", "USD", "EUR", "BRL", "GBP"}

// Amount converts spreadsheet money text into a decimal. Currency symbols,
// thousands separators and whitespace are stripped first; parenthesized
// values are treated as negative. Empty or unparseable input yields zero —
// the import pipeline counts those rows as skipped instead of failing.
func Amount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")

	// European style: 1.234,56 uses dot for thousands and comma for decimals.
	if lastComma := strings.LastIndex(s, ","); lastComma > strings.LastIndex(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}
