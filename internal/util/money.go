package util

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount rounded to whole pesos with dot thousands
// separators, e.g. "$1.250.000".
func FormatMoney(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}
