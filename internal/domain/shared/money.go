package shared

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// minorUnitExponent is the scale used for all stored amounts (cents, santim).
const minorUnitExponent = -2

// FormatMinorUnits renders an amount stored in minor units as a fixed two-decimal string,
// e.g. 10050 -> "100.50".
func FormatMinorUnits(amount int64) string {
	return decimal.New(amount, minorUnitExponent).StringFixed(2)
}

// ParseMajorUnits converts a decimal string such as "100.5" into minor units.
func ParseMajorUnits(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return d.Shift(-minorUnitExponent).Round(0).IntPart(), nil
}

// NormalizeCurrency upper-cases a currency code and checks its format.
func NormalizeCurrency(currency string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return "", ErrInvalidCurrencyFormat
	}
	return c, nil
}
