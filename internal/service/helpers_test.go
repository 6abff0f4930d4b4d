package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/internal/core/ports/mocks"
	"merchant-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	commitErr error
	committed bool
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

type ledgerTestDeps struct {
	roles      *mocks.MockRoleRepository
	counters   *mocks.MockCounterRepository
	merchants  *mocks.MockMerchantRepository
	invoices   *mocks.MockInvoiceRepository
	balances   *mocks.MockBalanceRepository
	accounts   *mocks.MockAccountRepository
	fees       *mocks.MockFeeRepository
	transactor *mocks.MockDBTransactor
	authn      *mocks.MockAuthenticator
	transferer *mocks.MockTokenTransferer
	events     *mocks.MockEventSink
	checker    *mocks.MockRoleChecker
	clock      *mocks.MockClock
	tx         *mockTx
	ctrl       *gomock.Controller
}

func newLedgerTestDeps(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		roles:      mocks.NewMockRoleRepository(ctrl),
		counters:   mocks.NewMockCounterRepository(ctrl),
		merchants:  mocks.NewMockMerchantRepository(ctrl),
		invoices:   mocks.NewMockInvoiceRepository(ctrl),
		balances:   mocks.NewMockBalanceRepository(ctrl),
		accounts:   mocks.NewMockAccountRepository(ctrl),
		fees:       mocks.NewMockFeeRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		authn:      mocks.NewMockAuthenticator(ctrl),
		transferer: mocks.NewMockTokenTransferer(ctrl),
		events:     mocks.NewMockEventSink(ctrl),
		checker:    mocks.NewMockRoleChecker(ctrl),
		clock:      mocks.NewMockClock(ctrl),
		tx:         &mockTx{},
		ctrl:       ctrl,
	}
	d.clock.EXPECT().Now().Return(testNow).AnyTimes()
	return d
}

func (d *ledgerTestDeps) deps() Deps {
	return Deps{
		Roles:      d.roles,
		Counters:   d.counters,
		Merchants:  d.merchants,
		Invoices:   d.invoices,
		Balances:   d.balances,
		Accounts:   d.accounts,
		Fees:       d.fees,
		Transactor: d.transactor,
		Authn:      d.authn,
		Transferer: d.transferer,
		Events:     d.events,
		Clock:      d.clock,
	}
}

// expectAuth accepts p as the authenticated caller.
func (d *ledgerTestDeps) expectAuth(ctx context.Context, p domain.Principal) {
	d.authn.EXPECT().RequireAuth(ctx, p).Return(nil)
}

func (d *ledgerTestDeps) expectBegin(ctx context.Context) {
	d.transactor.EXPECT().Begin(ctx).Return(d.tx, nil)
}

// expectRoles answers HasRole on the checker mock from the given set.
func (d *ledgerTestDeps) expectRoles(p domain.Principal, held ...domain.Role) {
	d.checker.EXPECT().HasRole(gomock.Any(), p, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ domain.Principal, r domain.Role) (bool, error) {
			for _, h := range held {
				if h == r {
					return true, nil
				}
			}
			return false, nil
		}).AnyTimes()
}

func newPrincipal() domain.Principal {
	return domain.Principal(keypair.MustRandom().Address())
}

func newCreditToken() domain.Token {
	return domain.Token("USDC:" + keypair.MustRandom().Address())
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperror.KindOf(err), "unexpected error: %v", err)
}

// decimalEq matches decimals by value rather than representation.
type decimalEq struct{ want decimal.Decimal }

func eqDecimal(d decimal.Decimal) gomock.Matcher { return decimalEq{want: d} }

func (m decimalEq) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string { return "decimal equal to " + m.want.String() }

// transferMatcher matches a TransferRequest field by field.
type transferMatcher struct{ want ports.TransferRequest }

func eqTransfer(token domain.Token, from, to domain.Principal, amount decimal.Decimal) gomock.Matcher {
	return transferMatcher{want: ports.TransferRequest{Token: token, From: from, To: to, Amount: amount}}
}

func (m transferMatcher) Matches(x any) bool {
	req, ok := x.(ports.TransferRequest)
	return ok &&
		req.Token == m.want.Token &&
		req.From == m.want.From &&
		req.To == m.want.To &&
		req.Amount.Equal(m.want.Amount)
}

func (m transferMatcher) String() string {
	return fmt.Sprintf("transfer %s %s from %s to %s", m.want.Amount, m.want.Token, m.want.From, m.want.To)
}
