package postgres

import (
	"context"
	"testing"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterRepo_Next(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCounterRepo(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_counters .+ ON CONFLICT .+ RETURNING value").
		WithArgs("invoice_id").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(uint64(1)))
	mock.ExpectQuery("INSERT INTO ledger_counters .+ ON CONFLICT .+ RETURNING value").
		WithArgs("invoice_id").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(uint64(2)))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	first, err := repo.Next(ctx, tx, domain.CounterInvoiceID)
	require.NoError(t, err)
	second, err := repo.Next(ctx, tx, domain.CounterInvoiceID)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterRepo_Current(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewCounterRepo(mock)

	mock.ExpectQuery("SELECT value FROM ledger_counters").
		WithArgs("initialized").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT value FROM ledger_counters").
		WithArgs("merchant_id").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(uint64(12)))

	v, err := repo.Current(context.Background(), domain.CounterInitialized)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = repo.Current(context.Background(), domain.CounterMerchantID)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}
