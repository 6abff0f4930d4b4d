package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CounterRepo implements ports.CounterRepository on the ledger_counters table.
type CounterRepo struct {
	pool Pool
}

// NewCounterRepo creates a new CounterRepo.
func NewCounterRepo(pool Pool) *CounterRepo {
	return &CounterRepo{pool: pool}
}

// Next increments the counter within tx. The row lock is held until the tx ends,
// so concurrent creators are serialized and a rollback consumes nothing.
func (r *CounterRepo) Next(ctx context.Context, tx pgx.Tx, name domain.Counter) (uint64, error) {
	query := `INSERT INTO ledger_counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = ledger_counters.value + 1
		RETURNING value`

	var v uint64
	if err := tx.QueryRow(ctx, query, string(name)).Scan(&v); err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return v, nil
}

// Current returns the counter value, zero if it was never incremented.
func (r *CounterRepo) Current(ctx context.Context, name domain.Counter) (uint64, error) {
	query := `SELECT value FROM ledger_counters WHERE name = $1`

	var v uint64
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("current %s: %w", name, err)
	}
	return v, nil
}
