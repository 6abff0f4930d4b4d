package ports

import (
	"context"
	"errors"
	"time"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrConflict is returned by repositories when a write collides with a unique key.
var ErrConflict = errors.New("conflicting record")

// RoleRepository stores (principal, role) membership.
type RoleRepository interface {
	HasRole(ctx context.Context, principal domain.Principal, role domain.Role) (bool, error)
	ListByPrincipal(ctx context.Context, principal domain.Principal) ([]domain.RoleAssignment, error)
	// Grant inserts the assignment if absent and reports whether it was added.
	Grant(ctx context.Context, tx pgx.Tx, assignment *domain.RoleAssignment) (bool, error)
	// Revoke removes the assignment if present and reports whether it was removed.
	Revoke(ctx context.Context, tx pgx.Tx, principal domain.Principal, role domain.Role) (bool, error)
}

// CounterRepository holds the ledger-wide sequences.
type CounterRepository interface {
	// Next increments the counter inside tx and returns the new value.
	// A rolled-back tx leaves the counter untouched.
	Next(ctx context.Context, tx pgx.Tx, name domain.Counter) (uint64, error)
	Current(ctx context.Context, name domain.Counter) (uint64, error)
}

// MerchantRepository defines persistence operations for merchants.
type MerchantRepository interface {
	Create(ctx context.Context, tx pgx.Tx, merchant *domain.Merchant) error
	GetByID(ctx context.Context, id uint64) (*domain.Merchant, error)
	GetByAddress(ctx context.Context, address domain.Principal) (*domain.Merchant, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.Merchant, error)
	Update(ctx context.Context, tx pgx.Tx, merchant *domain.Merchant) error
}

// InvoiceRepository defines persistence operations for invoices.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type InvoiceRepository interface {
	Create(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id uint64) (*domain.Invoice, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.Invoice, error)
	// UpdateStatus persists status, payer and date_paid.
	UpdateStatus(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	// ListAll returns every invoice in ascending id order.
	ListAll(ctx context.Context) ([]domain.Invoice, error)
}

// BalanceRepository stores tracked-token balances per merchant account.
type BalanceRepository interface {
	Get(ctx context.Context, merchantID uint64, token domain.Token) (*domain.Balance, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token) (*domain.Balance, error)
	ListByMerchant(ctx context.Context, merchantID uint64) ([]domain.Balance, error)
	// Track creates a zero balance if the token is not tracked yet and reports whether it did.
	Track(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, at time.Time) (bool, error)
	// Credit adds amount, tracking the token first when needed.
	Credit(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error
	SetAmount(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error
}

// AccountRepository stores per-merchant withdrawal settings.
type AccountRepository interface {
	Get(ctx context.Context, merchantID uint64) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uint64) (*domain.Account, error)
	Upsert(ctx context.Context, tx pgx.Tx, account *domain.Account) error
}

// FeeRepository stores the per-token fee schedule.
type FeeRepository interface {
	Get(ctx context.Context, token domain.Token) (*domain.FeeEntry, error)
	List(ctx context.Context) ([]domain.FeeEntry, error)
	Set(ctx context.Context, tx pgx.Tx, entry *domain.FeeEntry) error
}

// EventRepository is the durable, append-only event log.
type EventRepository interface {
	Append(ctx context.Context, event *domain.Event) error
	List(ctx context.Context, params EventListParams) ([]domain.Event, error)
}

// EventListParams filters the event log. Results are newest first.
type EventListParams struct {
	Topic *domain.EventTopic
	Limit int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
