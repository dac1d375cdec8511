// Package format renders and parses locale-aware numbers and currency amounts.
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/credit-simulator/pkg/constants"
	"golang.org/x/text/language"
)

// ErrEmptyNumber is returned when parsing a blank numeric string.
var ErrEmptyNumber = errors.New("empty numeric value")

// ErrNotANumber is returned when a string is not a plain decimal number.
var ErrNotANumber = errors.New("not a decimal number")

// Locale describes how numbers are written for a language/region.
type Locale struct {
	Tag         language.Tag
	Decimal     string
	Group       string
	SymbolSpace bool
	Symbols     map[string]string // currency code -> symbol
}

var (
	// English formats like "$1,234.56".
	English = Locale{
		Tag:     language.AmericanEnglish,
		Decimal: ".",
		Group:   ",",
		Symbols: map[string]string{constants.CurrencyUSD: "$", constants.CurrencyARS: "ARS$"},
	}

	// Argentina formats like "$ 1.234,56".
	Argentina = Locale{
		Tag:         language.MustParse("es-AR"),
		Decimal:     ",",
		Group:       ".",
		SymbolSpace: true,
		Symbols:     map[string]string{constants.CurrencyARS: "$", constants.CurrencyUSD: "US$"},
	}

	supported = []Locale{English, Argentina}
	matcher   = language.NewMatcher([]language.Tag{English.Tag, Argentina.Tag})
)

// ForTag resolves a BCP-47 tag to the closest supported locale, defaulting to English.
func ForTag(tag string) Locale {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return English
	}
	_, idx, confidence := matcher.Match(parsed)
	if confidence == language.No || idx < 0 || idx >= len(supported) {
		return English
	}
	return supported[idx]
}

// Number formats value with the given number of decimals and locale separators.
func (l Locale) Number(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	sign := ""
	if value < 0 && math.Abs(value) >= 0.5*math.Pow(10, -float64(decimals)) {
		sign = "-"
	}
	formatted := strconv.FormatFloat(math.Abs(value), 'f', decimals, 64)
	intPart, decPart, _ := strings.Cut(formatted, ".")
	intPart = groupDigits(intPart, l.Group)
	if decPart == "" {
		return sign + intPart
	}
	return sign + intPart + l.Decimal + decPart
}

// Money formats an amount in the given currency, e.g. "US$ 1.234,56".
func (l Locale) Money(amount float64, code string) string {
	symbol, ok := l.Symbols[code]
	if !ok {
		symbol = code
	}
	number := l.Number(math.Abs(amount), 2)
	sign := ""
	if amount < 0 && number != l.Number(0, 2) {
		sign = "-"
	}
	if l.SymbolSpace {
		return sign + symbol + " " + number
	}
	return sign + symbol + number
}

// Percent formats a percentage value (already multiplied by 100).
func (l Locale) Percent(value float64, decimals int) string {
	if l.SymbolSpace {
		return l.Number(value, decimals) + " %"
	}
	return l.Number(value, decimals) + "%"
}

// ParseNumber reads a number written in this locale. Currency symbols, codes,
// percent signs and group separators are ignored.
func (l Locale) ParseNumber(input string) (float64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrEmptyNumber
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	for _, code := range []string{constants.CurrencyUSD, constants.CurrencyARS} {
		s = strings.TrimPrefix(s, code)
	}
	for _, symbol := range l.Symbols {
		s = strings.TrimPrefix(s, symbol)
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return 0, ErrEmptyNumber
	}

	s = strings.ReplaceAll(s, l.Group, "")
	if l.Decimal != "." {
		s = strings.Replace(s, l.Decimal, ".", 1)
	}
	if !plainDecimal(s) {
		return 0, fmt.Errorf("invalid number %q: %w", input, ErrNotANumber)
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", input, err)
	}
	if negative {
		value = -value
	}
	return value, nil
}

// plainDecimal reports whether s is digits with at most one decimal point,
// which keeps "NaN", "Inf", exponents and hex floats out of ParseFloat.
func plainDecimal(s string) bool {
	digits, points := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	return English.Money(amount, constants.CurrencyUSD)
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	return English.Number(amount, 2)
}

func groupDigits(intPart, sep string) string {
	if len(intPart) <= 3 || sep == "" {
		return intPart
	}
	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteString(sep)
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}
