package stellar

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the fixed exponent of ledger amounts.
const AmountDecimals = 7

var amountPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Amount is a non-negative decimal value held as an integer number of
// 10^-decimals units. The zero value is zero with AmountDecimals places.
type Amount struct {
	units    *big.Int
	decimals int
}

// ParseAmount parses s with AmountDecimals places.
func ParseAmount(s string) (Amount, error) {
	return ParseAmountDecimals(s, AmountDecimals)
}

// ParseAmountDecimals parses a plain decimal string ("0", "123", "123.4567")
// into a scaled integer. Signs, exponents and extra fractional digits are rejected.
func ParseAmountDecimals(s string, decimals int) (Amount, error) {
	if decimals < 0 {
		return Amount{}, fmt.Errorf("%w: negative decimals %d", ErrInvalidFormat, decimals)
	}

	normalized := strings.TrimSpace(s)
	if normalized == "" || !amountPattern.MatchString(normalized) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	whole, fraction, _ := strings.Cut(normalized, ".")
	if len(fraction) > decimals {
		return Amount{}, fmt.Errorf("%w: %q has %d fractional digits, max %d", ErrExceedsPrecision, s, len(fraction), decimals)
	}

	digits := whole + fraction + strings.Repeat("0", decimals-len(fraction))
	units, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	return Amount{units: units, decimals: decimals}, nil
}

// Units returns a copy of the scaled integer value.
func (a Amount) Units() *big.Int {
	if a.units == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.units)
}

// Decimals returns the number of fractional places of the scale.
func (a Amount) Decimals() int {
	if a.units == nil {
		return AmountDecimals
	}
	return a.decimals
}

// Sign returns 0 for zero and 1 for positive amounts.
func (a Amount) Sign() int {
	if a.units == nil {
		return 0
	}
	return a.units.Sign()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.Sign() == 0
}

// Cmp compares two amounts of the same scale by their integer units.
func (a Amount) Cmp(b Amount) int {
	return a.Units().Cmp(b.Units())
}

// Equal reports exact equality of scale and units.
func (a Amount) Equal(b Amount) bool {
	return a.Decimals() == b.Decimals() && a.Cmp(b) == 0
}

// String returns the canonical decimal form without trailing zeros, e.g. "2.5".
func (a Amount) String() string {
	return decimal.NewFromBigInt(a.Units(), -int32(a.Decimals())).String()
}

// StringFixed returns the decimal form with all fractional places, e.g. "2.5000000".
func (a Amount) StringFixed() string {
	return decimal.NewFromBigInt(a.Units(), -int32(a.Decimals())).StringFixed(int32(a.Decimals()))
}
