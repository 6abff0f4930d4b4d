package memory

import (
	"context"
	"fmt"
	"sort"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct{ store *Store }

func NewInvoiceRepo(store *Store) *InvoiceRepo { return &InvoiceRepo{store: store} }

func (r *InvoiceRepo) Create(_ context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	return r.store.write(tx, func(d *state) error {
		if _, ok := d.invoices[inv.ID]; ok {
			return fmt.Errorf("invoice %d: %w", inv.ID, ports.ErrConflict)
		}
		d.invoices[inv.ID] = *inv
		return nil
	})
}

func (r *InvoiceRepo) GetByID(_ context.Context, id uint64) (*domain.Invoice, error) {
	var out *domain.Invoice
	r.store.read(func(d *state) {
		if inv, ok := d.invoices[id]; ok {
			out = &inv
		}
	})
	return out, nil
}

func (r *InvoiceRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uint64) (*domain.Invoice, error) {
	var out *domain.Invoice
	err := r.store.write(tx, func(d *state) error {
		if inv, ok := d.invoices[id]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) UpdateStatus(_ context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	return r.store.write(tx, func(d *state) error {
		cur, ok := d.invoices[inv.ID]
		if !ok {
			return fmt.Errorf("invoice %d not found", inv.ID)
		}
		cur.Status = inv.Status
		cur.Payer = inv.Payer
		cur.DatePaid = inv.DatePaid
		d.invoices[inv.ID] = cur
		return nil
	})
}

func (r *InvoiceRepo) ListAll(_ context.Context) ([]domain.Invoice, error) {
	out := []domain.Invoice{}
	r.store.read(func(d *state) {
		for _, inv := range d.invoices {
			out = append(out, inv)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
