package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const accountSelect = `SELECT merchant_id, withdrawal_address, restricted, updated_at FROM accounts`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Get fetches account settings; nil when never configured.
func (r *AccountRepo) Get(ctx context.Context, merchantID uint64) (*domain.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, accountSelect+` WHERE merchant_id = $1`, merchantID), "get account")
}

// GetForUpdate fetches account settings with pessimistic locking.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uint64) (*domain.Account, error) {
	return scanAccount(tx.QueryRow(ctx, accountSelect+` WHERE merchant_id = $1 FOR UPDATE`, merchantID), "get account for update")
}

// Upsert writes the account settings.
func (r *AccountRepo) Upsert(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (merchant_id, withdrawal_address, restricted, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (merchant_id) DO UPDATE SET
			withdrawal_address = EXCLUDED.withdrawal_address,
			restricted = EXCLUDED.restricted,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, query, a.MerchantID, principalPtr(a.WithdrawalAddress), a.Restricted, a.UpdatedAt); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row, op string) (*domain.Account, error) {
	var (
		a    domain.Account
		addr *string
	)
	if err := row.Scan(&a.MerchantID, &addr, &a.Restricted, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if addr != nil {
		p := domain.Principal(*addr)
		a.WithdrawalAddress = &p
	}
	return &a, nil
}
