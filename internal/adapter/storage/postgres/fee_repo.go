package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const feeSelect = `SELECT token, fee::text, updated_by, updated_at FROM fee_schedule`

// FeeRepo implements ports.FeeRepository.
type FeeRepo struct {
	pool Pool
}

// NewFeeRepo creates a new FeeRepo.
func NewFeeRepo(pool Pool) *FeeRepo {
	return &FeeRepo{pool: pool}
}

// Get fetches the fee entry for token; nil when unset.
func (r *FeeRepo) Get(ctx context.Context, token domain.Token) (*domain.FeeEntry, error) {
	return scanFee(r.pool.QueryRow(ctx, feeSelect+` WHERE token = $1`, token.String()), "get fee")
}

// List returns the fee schedule ordered by token.
func (r *FeeRepo) List(ctx context.Context) ([]domain.FeeEntry, error) {
	rows, err := r.pool.Query(ctx, feeSelect+` ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	out := []domain.FeeEntry{}
	for rows.Next() {
		e, err := scanFee(rows, "scan fee")
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fees: %w", err)
	}
	return out, nil
}

// Set upserts the fee for a token.
func (r *FeeRepo) Set(ctx context.Context, tx pgx.Tx, e *domain.FeeEntry) error {
	query := `INSERT INTO fee_schedule (token, fee, updated_by, updated_at)
		VALUES ($1, $2::numeric, $3, $4)
		ON CONFLICT (token) DO UPDATE SET
			fee = EXCLUDED.fee,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, query, e.Token.String(), e.Fee.String(), e.UpdatedBy.String(), e.UpdatedAt); err != nil {
		return fmt.Errorf("set fee: %w", err)
	}
	return nil
}

func scanFee(row pgx.Row, op string) (*domain.FeeEntry, error) {
	var (
		e   domain.FeeEntry
		fee string
	)
	if err := row.Scan(&e.Token, &fee, &e.UpdatedBy, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d, err := decimal.NewFromString(fee)
	if err != nil {
		return nil, fmt.Errorf("%s: parse fee: %w", op, err)
	}
	e.Fee = d
	return &e, nil
}
