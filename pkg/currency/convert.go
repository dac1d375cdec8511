// Package currency converts payment amounts between pesos and dollars.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iwvelando/credit-simulator/pkg/constants"
)

// Code is an ISO 4217 currency code.
type Code string

// Supported currencies. ARS is quoted in units per USD.
const (
	ARS Code = constants.CurrencyARS
	USD Code = constants.CurrencyUSD
)

var (
	// ErrInvalidExchangeRate is returned when a conversion is requested
	// without a positive exchange rate.
	ErrInvalidExchangeRate = errors.New("exchange rate must be provided and greater than zero")

	// ErrUnsupportedCurrency is returned for currency codes other than ARS and USD.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Conversion is the outcome of ConvertPayment.
type Conversion struct {
	From               Code     `json:"from"`
	To                 Code     `json:"to"`
	OriginalAmount     float64  `json:"originalAmount"`
	ConvertedAmount    float64  `json:"convertedAmount"`
	RequiresConversion bool     `json:"requiresConversion"`
	ExchangeRate       *float64 `json:"exchangeRate,omitempty"`
}

// ParseCode normalizes a currency code and checks it is supported.
func ParseCode(s string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurrency, s)
	}
	return code, nil
}

// Supported reports whether c is ARS or USD.
func (c Code) Supported() bool {
	return c == ARS || c == USD
}

// ConvertPayment converts amount from one currency to another. rate is the
// number of pesos per dollar: dollars are multiplied by it and pesos divided.
// Identical currencies are returned unchanged without consulting rate.
// Results are rounded to cents.
func ConvertPayment(amount float64, from, to Code, rate *float64) (Conversion, error) {
	conversion := Conversion{
		From:            from,
		To:              to,
		OriginalAmount:  amount,
		ConvertedAmount: amount,
	}
	if from == to {
		return conversion, nil
	}
	if !from.Supported() {
		return Conversion{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, from)
	}
	if !to.Supported() {
		return Conversion{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, to)
	}
	if rate == nil || !(*rate > 0) || math.IsInf(*rate, 0) {
		return Conversion{}, ErrInvalidExchangeRate
	}

	value := decimal.NewFromFloat(amount)
	r := decimal.NewFromFloat(*rate)
	switch from {
	case USD:
		value = value.Mul(r)
	case ARS:
		value = value.Div(r)
	}

	converted, _ := value.Round(2).Float64()
	applied := *rate
	conversion.ConvertedAmount = converted
	conversion.RequiresConversion = true
	conversion.ExchangeRate = &applied
	return conversion, nil
}
