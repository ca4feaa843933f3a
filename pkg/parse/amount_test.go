package parse

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"$50.00", "50"},
		{"1,234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"R$ 2.327,00", "2327"},
		{"1.234,56", "1234.56"},
		{"(12.50)", "-12.5"},
		{"-42", "-42"},
		{"0", "0"},
		{"", "0"},
		{"abc", "0"},
		{"USD 99.90", "99.9"},
		{"  7 ", "7"},
	}
	for _, c := range cases {
		got := Amount(c.raw)
		want, _ := decimal.NewFromString(c.want)
		if !got.Equal(want) {
			t.Errorf("Amount(%q): expected %s, got %s", c.raw, want, got)
		}
	}
}
