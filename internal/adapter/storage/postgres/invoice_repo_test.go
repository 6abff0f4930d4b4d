package postgres

import (
	"context"
	"testing"
	"time"

	"merchant-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceCols = []string{"id", "merchant_id", "description", "amount", "token", "status", "payer", "date_created", "date_paid"}

func newTestInvoice(id uint64) *domain.Invoice {
	return &domain.Invoice{
		ID:          id,
		MerchantID:  1,
		Description: "coffee beans",
		Amount:      decimal.RequireFromString("170141183460469231731687303715884105727"),
		Token:       domain.NativeToken,
		Status:      domain.InvoiceStatusPending,
		DateCreated: testTime(),
	}
}

func pendingInvoiceRow(rows *pgxmock.Rows, inv *domain.Invoice) *pgxmock.Rows {
	return rows.AddRow(inv.ID, inv.MerchantID, inv.Description, inv.Amount.String(), inv.Token,
		inv.Status, (*string)(nil), inv.DateCreated, (*time.Time)(nil))
}

func TestInvoiceRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock)
	inv := newTestInvoice(1)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO invoices").
		WithArgs(inv.ID, inv.MerchantID, inv.Description, "170141183460469231731687303715884105727",
			"native", "PENDING", (*string)(nil), inv.DateCreated, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	assert.NoError(t, repo.Create(ctx, tx, inv))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock)
	inv := newTestInvoice(7)

	mock.ExpectQuery("SELECT .+ FROM invoices WHERE id").
		WithArgs(inv.ID).
		WillReturnRows(pendingInvoiceRow(pgxmock.NewRows(invoiceCols), inv))
	mock.ExpectQuery("SELECT .+ FROM invoices WHERE id").
		WithArgs(uint64(8)).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, inv.Amount.Equal(got.Amount))
	assert.Equal(t, domain.InvoiceStatusPending, got.Status)
	assert.Nil(t, got.Payer)
	assert.Nil(t, got.DatePaid)

	missing, err := repo.GetByID(context.Background(), 8)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_ForUpdateAndUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock)
	inv := newTestInvoice(2)
	payer := newTestPrincipal()
	paidAt := testTime()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM invoices WHERE id .+ FOR UPDATE").
		WithArgs(inv.ID).
		WillReturnRows(pendingInvoiceRow(pgxmock.NewRows(invoiceCols), inv))
	payerStr := payer.String()
	mock.ExpectExec("UPDATE invoices SET status").
		WithArgs("PAID", &payerStr, &paidAt, inv.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	got, err := repo.GetByIDForUpdate(ctx, tx, inv.ID)
	require.NoError(t, err)
	require.NoError(t, got.MarkPaid(payer, paidAt))
	require.NoError(t, repo.UpdateStatus(ctx, tx, got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepo_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewInvoiceRepo(mock)
	first, second := newTestInvoice(1), newTestInvoice(2)
	payer := newTestPrincipal().String()
	paidAt := testTime()

	rows := pendingInvoiceRow(pgxmock.NewRows(invoiceCols), first).
		AddRow(second.ID, second.MerchantID, second.Description, "42", second.Token,
			domain.InvoiceStatusPaid, &payer, second.DateCreated, &paidAt)
	mock.ExpectQuery("SELECT .+ FROM invoices ORDER BY id ASC").WillReturnRows(rows)

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].ID)
	assert.Equal(t, uint64(2), got[1].ID)
	assert.True(t, got[1].Amount.Equal(decimal.NewFromInt(42)))
	require.NotNil(t, got[1].Payer)
	assert.Equal(t, payer, got[1].Payer.String())
	require.NotNil(t, got[1].DatePaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
