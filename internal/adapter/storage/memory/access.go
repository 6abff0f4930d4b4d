package memory

import (
	"context"
	"fmt"
	"sort"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// RoleRepo implements ports.RoleRepository.
type RoleRepo struct{ store *Store }

func NewRoleRepo(store *Store) *RoleRepo { return &RoleRepo{store: store} }

func (r *RoleRepo) HasRole(_ context.Context, principal domain.Principal, role domain.Role) (bool, error) {
	var ok bool
	r.store.read(func(d *state) {
		_, ok = d.roles[roleKey{principal, role}]
	})
	return ok, nil
}

func (r *RoleRepo) ListByPrincipal(_ context.Context, principal domain.Principal) ([]domain.RoleAssignment, error) {
	out := []domain.RoleAssignment{}
	r.store.read(func(d *state) {
		for k, a := range d.roles {
			if k.principal == principal {
				out = append(out, a)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

func (r *RoleRepo) Grant(_ context.Context, tx pgx.Tx, a *domain.RoleAssignment) (bool, error) {
	var added bool
	err := r.store.write(tx, func(d *state) error {
		k := roleKey{a.Principal, a.Role}
		if _, ok := d.roles[k]; ok {
			return nil
		}
		d.roles[k] = *a
		added = true
		return nil
	})
	return added, err
}

func (r *RoleRepo) Revoke(_ context.Context, tx pgx.Tx, principal domain.Principal, role domain.Role) (bool, error) {
	var removed bool
	err := r.store.write(tx, func(d *state) error {
		k := roleKey{principal, role}
		if _, ok := d.roles[k]; ok {
			delete(d.roles, k)
			removed = true
		}
		return nil
	})
	return removed, err
}

// CounterRepo implements ports.CounterRepository.
type CounterRepo struct{ store *Store }

func NewCounterRepo(store *Store) *CounterRepo { return &CounterRepo{store: store} }

func (r *CounterRepo) Next(_ context.Context, tx pgx.Tx, name domain.Counter) (uint64, error) {
	var v uint64
	err := r.store.write(tx, func(d *state) error {
		d.counters[name]++
		v = d.counters[name]
		return nil
	})
	return v, err
}

func (r *CounterRepo) Current(_ context.Context, name domain.Counter) (uint64, error) {
	var v uint64
	r.store.read(func(d *state) { v = d.counters[name] })
	return v, nil
}

// MerchantRepo implements ports.MerchantRepository. Addresses are unique.
type MerchantRepo struct{ store *Store }

func NewMerchantRepo(store *Store) *MerchantRepo { return &MerchantRepo{store: store} }

func (r *MerchantRepo) Create(_ context.Context, tx pgx.Tx, m *domain.Merchant) error {
	return r.store.write(tx, func(d *state) error {
		if _, ok := d.merchants[m.ID]; ok {
			return fmt.Errorf("merchant %d: %w", m.ID, ports.ErrConflict)
		}
		if addressTaken(d, m.Address, 0) {
			return fmt.Errorf("merchant address %s: %w", m.Address, ports.ErrConflict)
		}
		d.merchants[m.ID] = *m
		return nil
	})
}

func (r *MerchantRepo) GetByID(_ context.Context, id uint64) (*domain.Merchant, error) {
	var out *domain.Merchant
	r.store.read(func(d *state) {
		if m, ok := d.merchants[id]; ok {
			out = &m
		}
	})
	return out, nil
}

func (r *MerchantRepo) GetByAddress(_ context.Context, address domain.Principal) (*domain.Merchant, error) {
	var out *domain.Merchant
	r.store.read(func(d *state) {
		for _, m := range d.merchants {
			if m.Address == address {
				out = &m
				return
			}
		}
	})
	return out, nil
}

func (r *MerchantRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uint64) (*domain.Merchant, error) {
	var out *domain.Merchant
	err := r.store.write(tx, func(d *state) error {
		if m, ok := d.merchants[id]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r *MerchantRepo) Update(_ context.Context, tx pgx.Tx, m *domain.Merchant) error {
	return r.store.write(tx, func(d *state) error {
		if _, ok := d.merchants[m.ID]; !ok {
			return fmt.Errorf("merchant %d not found", m.ID)
		}
		if addressTaken(d, m.Address, m.ID) {
			return fmt.Errorf("merchant address %s: %w", m.Address, ports.ErrConflict)
		}
		d.merchants[m.ID] = *m
		return nil
	})
}

func addressTaken(d *state, address domain.Principal, except uint64) bool {
	for id, m := range d.merchants {
		if id != except && m.Address == address {
			return true
		}
	}
	return false
}
