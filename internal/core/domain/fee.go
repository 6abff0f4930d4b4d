package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrFeeExceedsAmount = errors.New("fee exceeds amount")

// FeeEntry is the per-token deduction applied at settlement.
type FeeEntry struct {
	Token     Token           `json:"token"`
	Fee       decimal.Decimal `json:"fee"`
	UpdatedBy Principal       `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FeeFor returns the configured fee, or zero when no entry exists.
func FeeFor(entry *FeeEntry) decimal.Decimal {
	if entry == nil {
		return decimal.Zero
	}
	return entry.Fee
}

// NetOfFee returns amount - fee. It never goes below zero.
func NetOfFee(amount, fee decimal.Decimal) (decimal.Decimal, error) {
	if fee.GreaterThan(amount) {
		return decimal.Zero, ErrFeeExceedsAmount
	}
	return amount.Sub(fee), nil
}
