package postgres

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, address, manager, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a new merchant. A taken address yields ports.ErrConflict.
func (r *MerchantRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Merchant) error {
	query := `INSERT INTO merchants (` + merchantColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, m.ID, m.Address.String(), m.Manager.String(), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return mapWriteErr("insert merchant", err)
	}
	return nil
}

// GetByID fetches a merchant by id.
func (r *MerchantRepo) GetByID(ctx context.Context, id uint64) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	return scanMerchant(r.pool.QueryRow(ctx, query, id), "get merchant by id")
}

// GetByAddress fetches a merchant through the address index.
func (r *MerchantRepo) GetByAddress(ctx context.Context, address domain.Principal) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE address = $1`
	return scanMerchant(r.pool.QueryRow(ctx, query, address.String()), "get merchant by address")
}

// GetByIDForUpdate fetches a merchant with pessimistic locking.
// This MUST be called within a transaction.
func (r *MerchantRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1 FOR UPDATE`
	return scanMerchant(tx.QueryRow(ctx, query, id), "get merchant for update")
}

// Update persists address and manager.
func (r *MerchantRepo) Update(ctx context.Context, tx pgx.Tx, m *domain.Merchant) error {
	query := `UPDATE merchants SET address = $1, manager = $2, updated_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, m.Address.String(), m.Manager.String(), m.UpdatedAt, m.ID)
	if err != nil {
		return mapWriteErr("update merchant", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant not found: %d", m.ID)
	}
	return nil
}

func scanMerchant(row pgx.Row, op string) (*domain.Merchant, error) {
	m := &domain.Merchant{}
	err := row.Scan(&m.ID, &m.Address, &m.Manager, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}
