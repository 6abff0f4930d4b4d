package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct{ store *Store }

func NewBalanceRepo(store *Store) *BalanceRepo { return &BalanceRepo{store: store} }

func (r *BalanceRepo) Get(_ context.Context, merchantID uint64, token domain.Token) (*domain.Balance, error) {
	var out *domain.Balance
	r.store.read(func(d *state) {
		if b, ok := d.balances[balanceKey{merchantID, token}]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r *BalanceRepo) GetForUpdate(_ context.Context, tx pgx.Tx, merchantID uint64, token domain.Token) (*domain.Balance, error) {
	var out *domain.Balance
	err := r.store.write(tx, func(d *state) error {
		if b, ok := d.balances[balanceKey{merchantID, token}]; ok {
			out = &b
		}
		return nil
	})
	return out, err
}

func (r *BalanceRepo) ListByMerchant(_ context.Context, merchantID uint64) ([]domain.Balance, error) {
	out := []domain.Balance{}
	r.store.read(func(d *state) {
		for k, b := range d.balances {
			if k.merchantID == merchantID {
				out = append(out, b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (r *BalanceRepo) Track(_ context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, at time.Time) (bool, error) {
	var added bool
	err := r.store.write(tx, func(d *state) error {
		k := balanceKey{merchantID, token}
		if _, ok := d.balances[k]; ok {
			return nil
		}
		d.balances[k] = domain.Balance{MerchantID: merchantID, Token: token, Amount: decimal.Zero, CreatedAt: at, UpdatedAt: at}
		added = true
		return nil
	})
	return added, err
}

func (r *BalanceRepo) Credit(_ context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error {
	return r.store.write(tx, func(d *state) error {
		k := balanceKey{merchantID, token}
		b, ok := d.balances[k]
		if !ok {
			b = domain.Balance{MerchantID: merchantID, Token: token, Amount: decimal.Zero, CreatedAt: at}
		}
		sum, err := domain.CheckedAdd(b.Amount, amount)
		if err != nil {
			return fmt.Errorf("credit balance %d/%s: %w", merchantID, token, err)
		}
		b.Amount = sum
		b.UpdatedAt = at
		d.balances[k] = b
		return nil
	})
}

func (r *BalanceRepo) SetAmount(_ context.Context, tx pgx.Tx, merchantID uint64, token domain.Token, amount decimal.Decimal, at time.Time) error {
	return r.store.write(tx, func(d *state) error {
		k := balanceKey{merchantID, token}
		b, ok := d.balances[k]
		if !ok {
			return fmt.Errorf("balance %d/%s not tracked", merchantID, token)
		}
		if amount.IsNegative() {
			return fmt.Errorf("balance %d/%s would go negative", merchantID, token)
		}
		b.Amount = amount
		b.UpdatedAt = at
		d.balances[k] = b
		return nil
	})
}

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ store *Store }

func NewAccountRepo(store *Store) *AccountRepo { return &AccountRepo{store: store} }

func (r *AccountRepo) Get(_ context.Context, merchantID uint64) (*domain.Account, error) {
	var out *domain.Account
	r.store.read(func(d *state) {
		if a, ok := d.accounts[merchantID]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r *AccountRepo) GetForUpdate(_ context.Context, tx pgx.Tx, merchantID uint64) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.write(tx, func(d *state) error {
		if a, ok := d.accounts[merchantID]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

func (r *AccountRepo) Upsert(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	return r.store.write(tx, func(d *state) error {
		d.accounts[a.MerchantID] = *a
		return nil
	})
}

// FeeRepo implements ports.FeeRepository.
type FeeRepo struct{ store *Store }

func NewFeeRepo(store *Store) *FeeRepo { return &FeeRepo{store: store} }

func (r *FeeRepo) Get(_ context.Context, token domain.Token) (*domain.FeeEntry, error) {
	var out *domain.FeeEntry
	r.store.read(func(d *state) {
		if f, ok := d.fees[token]; ok {
			out = &f
		}
	})
	return out, nil
}

func (r *FeeRepo) List(_ context.Context) ([]domain.FeeEntry, error) {
	out := []domain.FeeEntry{}
	r.store.read(func(d *state) {
		for _, f := range d.fees {
			out = append(out, f)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (r *FeeRepo) Set(_ context.Context, tx pgx.Tx, entry *domain.FeeEntry) error {
	return r.store.write(tx, func(d *state) error {
		d.fees[entry.Token] = *entry
		return nil
	})
}
