package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const balanceSelect = `SELECT merchant_id, token, amount::text, created_at, updated_at FROM balances`

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// Get fetches a tracked balance. Untracked tokens return nil.
func (r *BalanceRepo) Get(ctx context.Context, merchantID uint64, token domain.Token) (*domain.Balance, error) {
	query := balanceSelect + ` WHERE merchant_id = $1 AND token = $2`
	return scanBalance(r.pool.QueryRow(ctx, query, merchantID, token.String()), "get balance")
}

// GetForUpdate fetches a tracked balance with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token) (*domain.Balance, error) {
	query := balanceSelect + ` WHERE merchant_id = $1 AND token = $2 FOR UPDATE`
	return scanBalance(tx.QueryRow(ctx, query, merchantID, token.String()), "get balance for update")
}

// ListByMerchant returns all tracked balances ordered by token.
func (r *BalanceRepo) ListByMerchant(ctx context.Context, merchantID uint64) ([]domain.Balance, error) {
	rows, err := r.pool.Query(ctx, balanceSelect+` WHERE merchant_id = $1 ORDER BY token`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	out := []domain.Balance{}
	for rows.Next() {
		b, err := scanBalance(rows, "scan balance")
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// Track creates a zero balance unless one exists.
func (r *BalanceRepo) Track(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, at time.Time) (bool, error) {
	query := `INSERT INTO balances (merchant_id, token, amount, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (merchant_id, token) DO NOTHING`

	tag, err := tx.Exec(ctx, query, merchantID, token.String(), at)
	if err != nil {
		return false, fmt.Errorf("track token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Credit adds amount to the balance, tracking the token when needed. A sum
// past domain.MaxAmount leaves the row untouched and fails.
func (r *BalanceRepo) Credit(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error {
	query := `INSERT INTO balances (merchant_id, token, amount, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $4)
		ON CONFLICT (merchant_id, token)
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
		WHERE balances.amount + EXCLUDED.amount <= $5::numeric`

	tag, err := tx.Exec(ctx, query, merchantID, token.String(), amount.String(), at, domain.MaxAmount.String())
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credit balance: merchant %d token %s: %w", merchantID, token, domain.ErrInvalidAmount)
	}
	return nil
}

// SetAmount overwrites a tracked balance.
func (r *BalanceRepo) SetAmount(ctx context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error {
	query := `UPDATE balances SET amount = $1::numeric, updated_at = $2 WHERE merchant_id = $3 AND token = $4`

	tag, err := tx.Exec(ctx, query, amount.String(), at, merchantID, token.String())
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance not tracked: merchant %d token %s", merchantID, token)
	}
	return nil
}

func scanBalance(row pgx.Row, op string) (*domain.Balance, error) {
	var (
		b      domain.Balance
		amount string
	)
	if err := row.Scan(&b.MerchantID, &b.Token, &amount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%s: parse amount: %w", op, err)
	}
	b.Amount = d
	return &b, nil
}
