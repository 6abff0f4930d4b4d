package ports

import (
	"context"
	"time"

	"merchant-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// --- Collaborators ---

// Authenticator aborts an operation unless the invoking call was authorized by principal.
type Authenticator interface {
	RequireAuth(ctx context.Context, principal domain.Principal) error
}

// Clock supplies the timestamp of the current call.
type Clock interface {
	Now() time.Time
}

// TokenTransferer moves a fungible amount of a token between two custody addresses.
type TokenTransferer interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferReceipt, error)
}

// TransferRequest describes one token movement.
type TransferRequest struct {
	Token  domain.Token
	From   domain.Principal
	To     domain.Principal
	Amount decimal.Decimal
}

// TransferReceipt identifies a completed movement in the external system.
type TransferReceipt struct {
	Reference string
	Token     domain.Token
	From      domain.Principal
	To        domain.Principal
	Amount    decimal.Decimal
}

// EventSink publishes ledger events. Publishing never fails the caller.
type EventSink interface {
	Publish(ctx context.Context, topic domain.EventTopic, payload any)
}

// EventStream fans events out to off-ledger observers.
type EventStream interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// RoleChecker answers role membership queries.
type RoleChecker interface {
	HasRole(ctx context.Context, principal domain.Principal, role domain.Role) (bool, error)
}

// SignatureService signs and verifies ed25519 request signatures.
type SignatureService interface {
	Sign(seed string, payload string) (string, error)
	Verify(principal domain.Principal, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles JWT session tokens.
type TokenService interface {
	Generate(principal domain.Principal) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Principal domain.Principal
	ExpiresAt time.Time
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, principal string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// AccessControlService maintains role assignments.
type AccessControlService interface {
	RoleChecker
	Initialize(ctx context.Context, admin domain.Principal) error
	GrantRole(ctx context.Context, caller, principal domain.Principal, role domain.Role) error
	RevokeRole(ctx context.Context, caller, principal domain.Principal, role domain.Role) error
	Roles(ctx context.Context, principal domain.Principal) ([]domain.Role, error)
}

// MerchantRegistryService maps principals to merchant records.
type MerchantRegistryService interface {
	Register(ctx context.Context, caller, merchantAddress, managerAddress domain.Principal) (*domain.Merchant, error)
	GetMerchant(ctx context.Context, id uint64) (*domain.Merchant, error)
	GetMerchantByAddress(ctx context.Context, address domain.Principal) (*domain.Merchant, error)
	IsMerchant(ctx context.Context, address domain.Principal) (bool, error)
	UpdateMerchant(ctx context.Context, caller domain.Principal, id uint64, req UpdateMerchantRequest) (*domain.Merchant, error)
}

// UpdateMerchantRequest carries the fields to change; nil leaves a field as is.
type UpdateMerchantRequest struct {
	Address *domain.Principal
	Manager *domain.Principal
}

// InvoiceService owns the invoice state machine and settlement.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id uint64) (*domain.Invoice, error)
	GetInvoices(ctx context.Context, query InvoiceQuery) ([]domain.Invoice, error)
	PayInvoiceAdmin(ctx context.Context, caller domain.Principal, id uint64) (*domain.Invoice, error)
	CancelInvoice(ctx context.Context, caller domain.Principal, id uint64) (*domain.Invoice, error)
}

// CreateInvoiceRequest holds validated input for invoice creation.
type CreateInvoiceRequest struct {
	MerchantAddress domain.Principal
	Description     string
	Amount          decimal.Decimal
	Token           domain.Token
}

// InvoiceQuery is the external form of the invoice filter; Merchant is an address.
type InvoiceQuery struct {
	Status    *domain.InvoiceStatus
	Merchant  *domain.Principal
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// FeeService administers the fee schedule.
type FeeService interface {
	SetFee(ctx context.Context, caller domain.Principal, token domain.Token, fee decimal.Decimal) (*domain.FeeEntry, error)
	// GetFee returns the fee and whether one is configured; unset means zero.
	GetFee(ctx context.Context, token domain.Token) (decimal.Decimal, bool, error)
	ListFees(ctx context.Context) ([]domain.FeeEntry, error)
}

// AccountService covers tracked tokens, balances and withdrawals.
type AccountService interface {
	AddToken(ctx context.Context, caller domain.Principal, merchantID uint64, token domain.Token) error
	GetBalance(ctx context.Context, merchantID uint64, token domain.Token) (decimal.Decimal, error)
	GetBalances(ctx context.Context, merchantID uint64) ([]domain.Balance, error)
	GetAccount(ctx context.Context, merchantID uint64) (*AccountView, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Withdrawal, error)
	SetWithdrawalAddress(ctx context.Context, caller domain.Principal, merchantID uint64, address domain.Principal) (*domain.Account, error)
	SetRestricted(ctx context.Context, caller domain.Principal, merchantID uint64, restricted bool) (*domain.Account, error)
}

// WithdrawRequest holds validated input for a withdrawal.
type WithdrawRequest struct {
	Caller     domain.Principal
	MerchantID uint64
	Token      domain.Token
	Amount     decimal.Decimal
}

// AccountView is an account's settings together with its tracked balances.
type AccountView struct {
	Account  domain.Account
	Merchant domain.Merchant
	Balances []domain.Balance
}

// EventService reads the event log.
type EventService interface {
	ListEvents(ctx context.Context, params EventListParams) ([]domain.Event, error)
}
