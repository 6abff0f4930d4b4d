package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EventTopic names a ledger state change.
type EventTopic string

const (
	EventInvoiceCreated     EventTopic = "InvoiceCreated"
	EventInvoicePaid        EventTopic = "InvoicePaid"
	EventInvoiceCancelled   EventTopic = "InvoiceCancelled"
	EventWithdrawal         EventTopic = "Withdrawal"
	EventTokenAdded         EventTopic = "TokenAdded"
	EventAccountRestricted  EventTopic = "AccountRestricted"
	EventMerchantRegistered EventTopic = "MerchantRegistered"
	EventMerchantUpdated    EventTopic = "MerchantUpdated"
	EventRoleGranted        EventTopic = "RoleGranted"
	EventRoleRevoked        EventTopic = "RoleRevoked"
	EventFeeUpdated         EventTopic = "FeeUpdated"
)

// Event is an append-only notification of a committed change.
type Event struct {
	ID        string          `json:"id"`
	Topic     EventTopic      `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type InvoiceCreatedPayload struct {
	InvoiceID       uint64          `json:"invoice_id"`
	MerchantAddress Principal       `json:"merchant_address"`
	Amount          decimal.Decimal `json:"amount"`
	Token           Token           `json:"token"`
}

type InvoicePaidPayload struct {
	InvoiceID  uint64          `json:"invoice_id"`
	MerchantID uint64          `json:"merchant_id"`
	Payer      Principal       `json:"payer"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	Token      Token           `json:"token"`
	Reference  string          `json:"reference,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type InvoiceCancelledPayload struct {
	InvoiceID   uint64    `json:"invoice_id"`
	MerchantID  uint64    `json:"merchant_id"`
	CancelledBy Principal `json:"cancelled_by"`
	Timestamp   time.Time `json:"timestamp"`
}

type WithdrawalPayload struct {
	MerchantID uint64          `json:"merchant_id"`
	Token      Token           `json:"token"`
	Amount     decimal.Decimal `json:"amount"`
	To         Principal       `json:"to"`
	Reference  string          `json:"reference"`
	Timestamp  time.Time       `json:"timestamp"`
}

type TokenAddedPayload struct {
	MerchantID uint64    `json:"merchant_id"`
	Token      Token     `json:"token"`
	AddedBy    Principal `json:"added_by"`
}

type AccountRestrictedPayload struct {
	MerchantID uint64    `json:"merchant_id"`
	Restricted bool      `json:"restricted"`
	ChangedBy  Principal `json:"changed_by"`
}

type MerchantPayload struct {
	MerchantID uint64    `json:"merchant_id"`
	Address    Principal `json:"address"`
	Manager    Principal `json:"manager"`
	ChangedBy  Principal `json:"changed_by"`
}

type RolePayload struct {
	Principal Principal `json:"principal"`
	Role      Role      `json:"role"`
	ChangedBy Principal `json:"changed_by"`
}

type FeeUpdatedPayload struct {
	Token     Token           `json:"token"`
	Fee       decimal.Decimal `json:"fee"`
	UpdatedBy Principal       `json:"updated_by"`
}
