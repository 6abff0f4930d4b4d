package dto

import "encoding/json"

// Amounts travel as base-10 integer strings.

// SessionResponse is the response body of a session exchange.
type SessionResponse struct {
	Principal string `json:"principal"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // Unix timestamp
}

// InitializeRequest is the request body for ledger initialization.
type InitializeRequest struct {
	Admin string `json:"admin" binding:"required,stellar_address"`
}

// RoleRequest is the request body for role grants and revocations.
type RoleRequest struct {
	Principal string `json:"principal" binding:"required,stellar_address"`
	Role      string `json:"role" binding:"required,ledger_role"`
}

// RolesResponse lists the roles a principal holds.
type RolesResponse struct {
	Principal string   `json:"principal"`
	Roles     []string `json:"roles"`
}

// HasRoleResponse answers a single membership query.
type HasRoleResponse struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
	HasRole   bool   `json:"has_role"`
}

// RegisterMerchantRequest is the request body for merchant registration.
type RegisterMerchantRequest struct {
	MerchantAddress string `json:"merchant_address" binding:"required,stellar_address"`
	ManagerAddress  string `json:"manager_address" binding:"required,stellar_address"`
}

// UpdateMerchantRequest changes the fields that are present.
type UpdateMerchantRequest struct {
	Address *string `json:"address,omitempty" binding:"omitempty,stellar_address"`
	Manager *string `json:"manager,omitempty" binding:"omitempty,stellar_address"`
}

// MerchantResponse is the public view of a merchant.
type MerchantResponse struct {
	ID        uint64 `json:"id"`
	Address   string `json:"address"`
	Manager   string `json:"manager"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MerchantLookupResponse answers a by-address lookup.
type MerchantLookupResponse struct {
	IsMerchant bool              `json:"is_merchant"`
	Merchant   *MerchantResponse `json:"merchant,omitempty"`
}

// CreateInvoiceRequest is the request body for invoice creation.
type CreateInvoiceRequest struct {
	MerchantAddress string `json:"merchant_address" binding:"required,stellar_address"`
	Description     string `json:"description" binding:"max=256"`
	Amount          string `json:"amount" binding:"required,int_amount"`
	Token           string `json:"token" binding:"required,token_id"`
}

// InvoiceListQuery is the query string of GET /invoices.
type InvoiceListQuery struct {
	Status    string `form:"status" binding:"omitempty,oneof=PENDING PAID CANCELLED pending paid cancelled"`
	Merchant  string `form:"merchant" binding:"omitempty,stellar_address"`
	MinAmount string `form:"min_amount" binding:"omitempty,int_amount"`
	MaxAmount string `form:"max_amount" binding:"omitempty,int_amount"`
}

// InvoiceResponse is the public view of an invoice.
type InvoiceResponse struct {
	ID          uint64  `json:"id"`
	MerchantID  uint64  `json:"merchant_id"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Token       string  `json:"token"`
	Status      string  `json:"status"`
	Payer       *string `json:"payer,omitempty"`
	DateCreated string  `json:"date_created"`
	DatePaid    *string `json:"date_paid,omitempty"`
}

// SetFeeRequest is the request body for fee configuration.
type SetFeeRequest struct {
	Fee string `json:"fee" binding:"required,int_amount"`
}

// FeeResponse is one entry of the fee schedule.
type FeeResponse struct {
	Token      string  `json:"token"`
	Fee        string  `json:"fee"`
	Configured bool    `json:"configured"`
	UpdatedBy  *string `json:"updated_by,omitempty"`
	UpdatedAt  *string `json:"updated_at,omitempty"`
}

// AddTokenRequest is the request body for tracking a token.
type AddTokenRequest struct {
	Token string `json:"token" binding:"required,token_id"`
}

// WithdrawRequest is the request body for a withdrawal.
type WithdrawRequest struct {
	Token  string `json:"token" binding:"required,token_id"`
	Amount string `json:"amount" binding:"required,int_amount"`
}

// WithdrawalResponse is the outcome of a withdrawal.
type WithdrawalResponse struct {
	MerchantID uint64 `json:"merchant_id"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Remaining  string `json:"remaining"`
	From       string `json:"from"`
	To         string `json:"to"`
	Reference  string `json:"reference"`
	CreatedAt  string `json:"created_at"`
}

// WithdrawalAddressRequest sets the payout destination.
type WithdrawalAddressRequest struct {
	Address string `json:"address" binding:"required,stellar_address"`
}

// RestrictionRequest flips the restricted flag.
type RestrictionRequest struct {
	Restricted *bool `json:"restricted" binding:"required"`
}

// BalanceResponse is one tracked token balance.
type BalanceResponse struct {
	MerchantID uint64 `json:"merchant_id"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
}

// AccountResponse is an account's settings and balances.
type AccountResponse struct {
	MerchantID        uint64            `json:"merchant_id"`
	Owner             string            `json:"owner"`
	Manager           string            `json:"manager"`
	WithdrawalAddress *string           `json:"withdrawal_address,omitempty"`
	Restricted        bool              `json:"restricted"`
	Balances          []BalanceResponse `json:"balances"`
}

// EventListQuery is the query string of GET /events.
type EventListQuery struct {
	Topic string `form:"topic"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// EventResponse is one entry of the event log.
type EventResponse struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}
