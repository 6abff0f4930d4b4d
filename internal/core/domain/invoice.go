package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvoiceNotPending = errors.New("invoice is not pending")

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// ParseInvoiceStatus accepts status names case-insensitively.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

// IsTerminal reports whether no further transition is possible.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// Invoice is a request for payment of a fixed amount in one token.
// Amount never changes after creation; Payer and DatePaid are set exactly once, with the move to Paid.
type Invoice struct {
	ID          uint64          `json:"id"`
	MerchantID  uint64          `json:"merchant_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Token       Token           `json:"token"`
	Status      InvoiceStatus   `json:"status"`
	Payer       *Principal      `json:"payer,omitempty"`
	DateCreated time.Time       `json:"date_created"`
	DatePaid    *time.Time      `json:"date_paid,omitempty"`
}

// CanTransitionTo reports whether the state machine allows moving to next.
// Pending is the only state with outgoing edges.
func (i *Invoice) CanTransitionTo(next InvoiceStatus) bool {
	if i.Status != InvoiceStatusPending {
		return false
	}
	return next == InvoiceStatusPaid || next == InvoiceStatusCancelled
}

// MarkPaid moves a pending invoice to Paid and records who paid and when.
func (i *Invoice) MarkPaid(payer Principal, at time.Time) error {
	if !i.CanTransitionTo(InvoiceStatusPaid) {
		return ErrInvoiceNotPending
	}
	i.Status = InvoiceStatusPaid
	i.Payer = &payer
	i.DatePaid = &at
	return nil
}

// Cancel moves a pending invoice to Cancelled.
func (i *Invoice) Cancel() error {
	if !i.CanTransitionTo(InvoiceStatusCancelled) {
		return ErrInvoiceNotPending
	}
	i.Status = InvoiceStatusCancelled
	return nil
}

// InvoiceFilter is a conjunction of optional predicates. The zero value matches everything.
// MerchantID is the already-resolved merchant; callers that cannot resolve a merchant
// address must not scan at all.
type InvoiceFilter struct {
	Status     *InvoiceStatus
	MerchantID *uint64
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// Matches applies every set predicate. Amount bounds are inclusive.
func (f InvoiceFilter) Matches(inv *Invoice) bool {
	if f.Status != nil && inv.Status != *f.Status {
		return false
	}
	if f.MerchantID != nil && inv.MerchantID != *f.MerchantID {
		return false
	}
	if f.MinAmount != nil && inv.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && inv.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// FilterInvoices keeps the input order and returns the matching invoices.
func FilterInvoices(invoices []Invoice, f InvoiceFilter) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for i := range invoices {
		if f.Matches(&invoices[i]) {
			out = append(out, invoices[i])
		}
	}
	return out
}
