package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the available amount of one tracked token for a merchant account.
// A row exists only for tracked tokens and stays at zero rather than being removed.
type Balance struct {
	MerchantID uint64          `json:"merchant_id"`
	Token      Token           `json:"token"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Account holds per-merchant withdrawal settings.
type Account struct {
	MerchantID        uint64     `json:"merchant_id"`
	WithdrawalAddress *Principal `json:"withdrawal_address,omitempty"`
	Restricted        bool       `json:"restricted"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DefaultAccount is the settings of an account nobody has configured yet.
func DefaultAccount(merchantID uint64) *Account {
	return &Account{MerchantID: merchantID}
}

// Destination is where a withdrawal by caller is paid out.
func (a *Account) Destination(caller Principal) Principal {
	if a.WithdrawalAddress != nil {
		return *a.WithdrawalAddress
	}
	return caller
}

// Withdrawal is the outcome of a successful withdrawal.
type Withdrawal struct {
	MerchantID uint64          `json:"merchant_id"`
	Token      Token           `json:"token"`
	Amount     decimal.Decimal `json:"amount"`
	Remaining  decimal.Decimal `json:"remaining"`
	From       Principal       `json:"from"`
	To         Principal       `json:"to"`
	Reference  string          `json:"reference"`
	CreatedAt  time.Time       `json:"created_at"`
}
