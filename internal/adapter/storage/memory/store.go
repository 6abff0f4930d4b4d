// Package memory is an in-process implementation of the ledger repositories.
// Transactions are serialized: Begin holds the store until Commit or Rollback.
// A transaction writes to its own copy of the tables, which Commit publishes;
// readers outside it see only committed state.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTxDone      = errors.New("memory: transaction already closed")
	ErrForeignTx   = errors.New("memory: transaction does not belong to this store")
	errUnsupported = errors.New("memory: not supported")
)

type roleKey struct {
	principal domain.Principal
	role      domain.Role
}

type balanceKey struct {
	merchantID uint64
	token      domain.Token
}

type state struct {
	counters  map[domain.Counter]uint64
	roles     map[roleKey]domain.RoleAssignment
	merchants map[uint64]domain.Merchant
	invoices  map[uint64]domain.Invoice
	balances  map[balanceKey]domain.Balance
	accounts  map[uint64]domain.Account
	fees      map[domain.Token]domain.FeeEntry
}

func newState() state {
	return state{
		counters:  make(map[domain.Counter]uint64),
		roles:     make(map[roleKey]domain.RoleAssignment),
		merchants: make(map[uint64]domain.Merchant),
		invoices:  make(map[uint64]domain.Invoice),
		balances:  make(map[balanceKey]domain.Balance),
		accounts:  make(map[uint64]domain.Account),
		fees:      make(map[domain.Token]domain.FeeEntry),
	}
}

// clone copies every table. Records are stored by value and their pointer
// fields are replaced, never mutated, so a shallow copy per map is enough.
func (s state) clone() state {
	return state{
		counters:  maps.Clone(s.counters),
		roles:     maps.Clone(s.roles),
		merchants: maps.Clone(s.merchants),
		invoices:  maps.Clone(s.invoices),
		balances:  maps.Clone(s.balances),
		accounts:  maps.Clone(s.accounts),
		fees:      maps.Clone(s.fees),
	}
}

// Store holds the ledger tables. The zero value is not usable; call NewStore.
type Store struct {
	txMu sync.Mutex // held by the open transaction

	mu     sync.RWMutex
	data   state
	events []domain.Event
}

func NewStore() *Store {
	return &Store{data: newState()}
}

// Begin implements ports.DBTransactor. It blocks until the previous
// transaction finishes.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()

	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()

	return &Tx{store: s, work: work}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// write runs fn against the working copy of tx, after checking tx is the
// open transaction of s.
func (s *Store) write(tx pgx.Tx, fn func(d *state) error) error {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return ErrForeignTx
	}
	if t.done {
		return ErrTxDone
	}
	return fn(&t.work)
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

// Tx is an open memory transaction. Only Commit and Rollback are meaningful;
// the SQL methods exist to satisfy pgx.Tx and always fail.
type Tx struct {
	store *Store
	work  state
	done  bool
}

// Commit publishes the working copy.
func (t *Tx) Commit(context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.data = t.work
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

// Rollback drops the working copy. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.work = state{}
	t.store.txMu.Unlock()
	return nil
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) { return nil, errUnsupported }

func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}

func (t *Tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errUnsupported
}

func (t *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errUnsupported }

func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{} }

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(...any) error { return errUnsupported }
