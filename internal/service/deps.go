package service

import (
	"context"
	"fmt"
	"time"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"
)

// Deps bundles the repositories and collaborators shared by the ledger services.
type Deps struct {
	Roles      ports.RoleRepository
	Counters   ports.CounterRepository
	Merchants  ports.MerchantRepository
	Invoices   ports.InvoiceRepository
	Balances   ports.BalanceRepository
	Accounts   ports.AccountRepository
	Fees       ports.FeeRepository
	Transactor ports.DBTransactor
	Authn      ports.Authenticator
	Transferer ports.TokenTransferer
	Events     ports.EventSink
	Clock      ports.Clock
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// requireAnyRole returns NotAuthorized unless principal holds at least one of roles.
func requireAnyRole(ctx context.Context, checker ports.RoleChecker, principal domain.Principal, roles ...domain.Role) error {
	for _, r := range roles {
		ok, err := checker.HasRole(ctx, principal, r)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("check role %s: %w", r, err))
		}
		if ok {
			return nil
		}
	}
	return apperror.ErrNotAuthorized()
}

// lookupMerchant loads a merchant by id, mapping absence to NotFound.
func lookupMerchant(ctx context.Context, repo ports.MerchantRepository, id uint64) (*domain.Merchant, error) {
	m, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if m == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return m, nil
}
