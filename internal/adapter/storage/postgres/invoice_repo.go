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

const invoiceSelect = `SELECT id, merchant_id, description, amount::text, token, status, payer, date_created, date_paid
		FROM invoices`

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct {
	pool Pool
}

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(pool Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// Create inserts a new invoice within a transaction.
func (r *InvoiceRepo) Create(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	query := `INSERT INTO invoices (id, merchant_id, description, amount, token, status, payer, date_created, date_paid)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		inv.ID, inv.MerchantID, inv.Description, inv.Amount.String(), inv.Token.String(),
		string(inv.Status), principalPtr(inv.Payer), inv.DateCreated, inv.DatePaid,
	)
	if err != nil {
		return mapWriteErr("insert invoice", err)
	}
	return nil
}

// GetByID fetches an invoice by id.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uint64) (*domain.Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, invoiceSelect+` WHERE id = $1`, id), "get invoice by id")
}

// GetByIDForUpdate fetches an invoice with pessimistic locking.
// This MUST be called within a transaction.
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*domain.Invoice, error) {
	return scanInvoice(tx.QueryRow(ctx, invoiceSelect+` WHERE id = $1 FOR UPDATE`, id), "get invoice for update")
}

// UpdateStatus persists the status transition with payer and date_paid.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	query := `UPDATE invoices SET status = $1, payer = $2, date_paid = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, string(inv.Status), principalPtr(inv.Payer), inv.DatePaid, inv.ID)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice not found: %d", inv.ID)
	}
	return nil
}

// ListAll returns every invoice in ascending id order.
func (r *InvoiceRepo) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.pool.Query(ctx, invoiceSelect+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows, "scan invoice")
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func scanInvoice(row pgx.Row, op string) (*domain.Invoice, error) {
	var (
		inv      domain.Invoice
		amount   string
		payer    *string
		datePaid *time.Time
	)
	err := row.Scan(
		&inv.ID, &inv.MerchantID, &inv.Description, &amount, &inv.Token,
		&inv.Status, &payer, &inv.DateCreated, &datePaid,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%s: parse amount: %w", op, err)
	}
	if payer != nil {
		p := domain.Principal(*payer)
		inv.Payer = &p
	}
	inv.DatePaid = datePaid
	return &inv, nil
}

func principalPtr(p *domain.Principal) *string {
	if p == nil {
		return nil
	}
	s := p.String()
	return &s
}
