package textutils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// ParseFloat coerces a cell's text to a number. Text that is already a number,
// including exponent notation, is taken as is. Otherwise whitespace is removed, a
// decimal comma becomes a dot and any character other than a digit, dot or minus is
// dropped. Blank or still-malformed input yields 0.
func ParseFloat(s string) float64 {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// ParseDecimal is ParseFloat returning the exact decimal; ok is false when the
// cleaned text is blank or malformed.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(s)
	// numbers stored by the spreadsheet, exponent form included, come through as is
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return d, true
	}

	cleaned := strings.ReplaceAll(trimmed, ",", ".")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	cleaned = nonNumeric.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatNumber renders f without a trailing ".0" or exponent (1400, 12.5, -3.25).
func FormatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}
