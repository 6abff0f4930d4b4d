package postgres

import (
	"context"
	"testing"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var balanceCols = []string{"merchant_id", "token", "amount", "created_at", "updated_at"}

func TestBalanceRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := testTime()

	mock.ExpectQuery("SELECT .+ FROM balances WHERE merchant_id .+ AND token").
		WithArgs(uint64(1), "native").
		WillReturnRows(pgxmock.NewRows(balanceCols).AddRow(uint64(1), domain.NativeToken, "0", now, now))
	mock.ExpectQuery("SELECT .+ FROM balances WHERE merchant_id .+ AND token").
		WithArgs(uint64(1), "native").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.Get(context.Background(), 1, domain.NativeToken)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.IsZero())

	got, err = repo.Get(context.Background(), 1, domain.NativeToken)
	require.NoError(t, err)
	assert.Nil(t, got, "untracked token reads as nil")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_ListByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := testTime()
	usdc := domain.Token("USDC:" + newTestPrincipal().String())

	mock.ExpectQuery("SELECT .+ FROM balances WHERE merchant_id .+ ORDER BY token").
		WithArgs(uint64(3)).
		WillReturnRows(pgxmock.NewRows(balanceCols).
			AddRow(uint64(3), domain.NativeToken, "10", now, now).
			AddRow(uint64(3), usdc, "2500", now, now))

	got, err := repo.ListByMerchant(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Amount.Equal(decimal.NewFromInt(2500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_Writes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := testTime()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO balances .+ DO NOTHING").
		WithArgs(uint64(1), "native", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO balances .+ DO UPDATE SET amount = balances.amount").
		WithArgs(uint64(1), "native", "975", now, domain.MaxAmount.String()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs("575", now, uint64(1), "native").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE balances SET amount").
		WithArgs("1", now, uint64(2), "native").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	added, err := repo.Track(ctx, tx, 1, domain.NativeToken, now)
	require.NoError(t, err)
	assert.True(t, added)

	require.NoError(t, repo.Credit(ctx, tx, 1, domain.NativeToken, decimal.NewFromInt(975), now))
	require.NoError(t, repo.SetAmount(ctx, tx, 1, domain.NativeToken, decimal.NewFromInt(575), now))
	assert.Error(t, repo.SetAmount(ctx, tx, 2, domain.NativeToken, decimal.NewFromInt(1), now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceRepo_CreditOverflow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBalanceRepo(mock)
	now := testTime()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO balances .+ ON CONFLICT .+ WHERE balances.amount").
		WithArgs(uint64(1), "native", "1", now, domain.MaxAmount.String()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = repo.Credit(ctx, tx, 1, domain.NativeToken, decimal.NewFromInt(1), now)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
