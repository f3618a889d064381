package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that cannot be represented in paise.
var ErrInvalidAmount = errors.New("invalid amount")

// Rupees renders paise as a rupee decimal with two places, e.g. 123800 -> "1238.00".
func Rupees(m Money) string {
	return decimal.New(m, -2).StringFixed(2)
}

// FormatINR renders paise for display, e.g. 123800 -> "₹1238.00".
func FormatINR(m Money) string {
	return "₹" + Rupees(m)
}

// ParseRupees converts a rupee string with at most two decimals into paise.
func ParseRupees(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	paise := d.Shift(2)
	if !paise.Equal(paise.Truncate(0)) {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidAmount)
	}
	return paise.IntPart(), nil
}
