// Package format renders computed values as decimal, currency, or
// percentage text.
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// Type selects how a value is rendered.
type Type string

const (
	Decimal    Type = "decimal"
	Currency   Type = "currency"
	Percentage Type = "percentage"
)

const (
	MinPrecision     = 0
	MaxPrecision     = 10
	DefaultPrecision = 2
	DefaultCurrency  = "USD"

	// Placeholder is shown wherever no value can be rendered.
	Placeholder = "—"
)

// symbols lists the currencies rendered with a prefix symbol. Every other
// code is printed as "CODE 12.00".
var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CNY": "¥",
}

// Spec is the formatting configuration of one computed field.
type Spec struct {
	Type         Type   `json:"type" yaml:"type"`
	Precision    int    `json:"precision" yaml:"precision"`
	CurrencyCode string `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// DefaultSpec is the formatting a newly created computed field starts with.
func DefaultSpec() Spec {
	return Spec{Type: Decimal, Precision: DefaultPrecision, CurrencyCode: DefaultCurrency}
}

// FromParts assembles a Spec from loosely typed configuration. A nil
// precision means DefaultPrecision; the result is normalized.
func FromParts(typ string, precision *int, currencyCode string) Spec {
	s := Spec{
		Type:         Type(strings.ToLower(strings.TrimSpace(typ))),
		Precision:    DefaultPrecision,
		CurrencyCode: currencyCode,
	}
	if precision != nil {
		s.Precision = *precision
	}
	return s.Normalize()
}

// Normalize returns a copy of s with an unknown type replaced by Decimal,
// the precision clamped to [MinPrecision, MaxPrecision], and the currency
// code canonicalized. A zero precision is kept as zero.
func (s Spec) Normalize() Spec {
	switch s.Type {
	case Decimal, Currency, Percentage:
	default:
		s.Type = Decimal
	}
	s.Precision = min(max(s.Precision, MinPrecision), MaxPrecision)
	s.CurrencyCode = CanonicalCurrency(s.CurrencyCode)
	return s
}

// CanonicalCurrency upper-cases a currency code, resolving it through the
// ISO 4217 table when possible. An empty code becomes DefaultCurrency.
func CanonicalCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	return unit.String()
}

// Format renders value according to spec. It never panics; non-finite
// values render as Placeholder.
func Format(value float64, spec Spec) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Placeholder
	}
	spec = spec.Normalize()

	switch spec.Type {
	case Percentage:
		return fixed(value*100, spec.Precision) + "%"
	case Currency:
		return formatCurrency(value, spec)
	default:
		return fixed(value, spec.Precision)
	}
}

// FormatPtr renders a possibly missing value.
func FormatPtr(value *float64, spec Spec) string {
	if value == nil {
		return Placeholder
	}
	return Format(*value, spec)
}

func formatCurrency(value float64, spec Spec) string {
	amount := fixed(value, spec.Precision)
	symbol, ok := symbols[spec.CurrencyCode]
	if !ok {
		return spec.CurrencyCode + " " + amount
	}
	if negative, found := strings.CutPrefix(amount, "-"); found {
		return "-" + symbol + negative
	}
	return symbol + amount
}

// fixed renders value with exactly precision fractional digits, rounding
// halves away from zero on the shortest decimal form of value, so 2.5
// becomes "3" and 0.125 becomes "0.13". It never produces a negative zero
// such as "-0.00".
func fixed(value float64, precision int) string {
	digits := strconv.FormatFloat(math.Abs(value), 'f', -1, 64)
	whole, frac, _ := strings.Cut(digits, ".")

	roundUp := len(frac) > precision && frac[precision] >= '5'
	if len(frac) > precision {
		frac = frac[:precision]
	} else {
		frac += strings.Repeat("0", precision-len(frac))
	}
	num := whole + frac
	if roundUp {
		num = increment(num)
	}

	out := num[:len(num)-precision]
	if precision > 0 {
		out += "." + num[len(num)-precision:]
	}
	if math.Signbit(value) && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}

// increment adds one to a string of decimal digits.
func increment(num string) string {
	b := []byte(num)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return string(b)
		}
		b[i] = '0'
	}
	return "1" + string(b)
}
