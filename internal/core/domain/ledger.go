package domain

// Counter names a ledger-wide sequence. Values start at 1 and only move forward.
type Counter string

const (
	CounterMerchantID  Counter = "merchant_id"
	CounterInvoiceID   Counter = "invoice_id"
	CounterInitialized Counter = "initialized"
)
