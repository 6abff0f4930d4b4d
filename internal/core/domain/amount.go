package domain

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be an integer within the signed 128-bit range")

var (
	// MaxAmount is 2^127 - 1.
	MaxAmount = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)), 0)
	// MinAmount is -2^127.
	MinAmount = decimal.NewFromBigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)), 0)
)

// IsAmount reports whether d is an integer representable as a signed 128-bit value.
func IsAmount(d decimal.Decimal) bool {
	return d.IsInteger() && d.Cmp(MinAmount) >= 0 && d.Cmp(MaxAmount) <= 0
}

// ParseAmount parses a base-10 integer amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !IsAmount(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CheckedAdd returns a+b, or ErrInvalidAmount when the sum leaves the signed
// 128-bit range.
func CheckedAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if !IsAmount(sum) {
		return decimal.Zero, ErrInvalidAmount
	}
	return sum, nil
}

// ValidatePositive requires an amount strictly greater than zero.
func ValidatePositive(d decimal.Decimal) error {
	if !IsAmount(d) || !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateNonNegative requires an amount of zero or more.
func ValidateNonNegative(d decimal.Decimal) error {
	if !IsAmount(d) || d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
