package service

import (
	"context"
	"errors"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// InvoiceServiceImpl implements ports.InvoiceService.
type InvoiceServiceImpl struct {
	deps    Deps
	roles   ports.RoleChecker
	custody domain.Principal
	log     zerolog.Logger
}

// NewInvoiceService creates a new InvoiceServiceImpl. Settlements are paid
// out of the custody address.
func NewInvoiceService(deps Deps, roles ports.RoleChecker, custody domain.Principal, log zerolog.Logger) *InvoiceServiceImpl {
	return &InvoiceServiceImpl{deps: deps, roles: roles, custody: custody, log: log}
}

// CreateInvoice opens a Pending invoice for a registered merchant.
func (s *InvoiceServiceImpl) CreateInvoice(ctx context.Context, req ports.CreateInvoiceRequest) (*domain.Invoice, error) {
	if err := s.deps.Authn.RequireAuth(ctx, req.MerchantAddress); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositive(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := req.Token.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	merchant, err := s.deps.Merchants.GetByAddress(ctx, req.MerchantAddress)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotAuthorized()
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	id, err := s.deps.Counters.Next(ctx, dbTx, domain.CounterInvoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("next invoice id: %w", err))
	}

	invoice := &domain.Invoice{
		ID:          id,
		MerchantID:  merchant.ID,
		Description: req.Description,
		Amount:      req.Amount,
		Token:       req.Token,
		Status:      domain.InvoiceStatusPending,
		DateCreated: s.deps.Clock.Now(),
	}
	if err := s.deps.Invoices.Create(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create invoice: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventInvoiceCreated, domain.InvoiceCreatedPayload{
		InvoiceID:       invoice.ID,
		MerchantAddress: merchant.Address,
		Amount:          invoice.Amount,
		Token:           invoice.Token,
	})

	s.log.Info().
		Uint64("invoice_id", invoice.ID).
		Uint64("merchant_id", merchant.ID).
		Str("amount", invoice.Amount.String()).
		Str("token", invoice.Token.String()).
		Msg("invoice created")

	return invoice, nil
}

// GetInvoice returns the invoice with the given id.
func (s *InvoiceServiceImpl) GetInvoice(ctx context.Context, id uint64) (*domain.Invoice, error) {
	inv, err := s.deps.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get invoice: %w", err))
	}
	if inv == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	return inv, nil
}

// GetInvoices scans all invoices in id order and keeps those matching every
// predicate set in query.
func (s *InvoiceServiceImpl) GetInvoices(ctx context.Context, query ports.InvoiceQuery) ([]domain.Invoice, error) {
	filter := domain.InvoiceFilter{
		Status:    query.Status,
		MinAmount: query.MinAmount,
		MaxAmount: query.MaxAmount,
	}

	if query.Merchant != nil {
		merchant, err := s.deps.Merchants.GetByAddress(ctx, *query.Merchant)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("resolve merchant: %w", err))
		}
		if merchant == nil {
			return []domain.Invoice{}, nil
		}
		filter.MerchantID = &merchant.ID
	}

	all, err := s.deps.Invoices.ListAll(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list invoices: %w", err))
	}
	return domain.FilterInvoices(all, filter), nil
}

// PayInvoiceAdmin settles a Pending invoice: the fee is deducted, the rest is
// transferred from custody to the merchant and credited to its account.
func (s *InvoiceServiceImpl) PayInvoiceAdmin(ctx context.Context, caller domain.Principal, id uint64) (*domain.Invoice, error) {
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin, domain.RoleManager); err != nil {
		return nil, err
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.deps.Invoices.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	if !invoice.CanTransitionTo(domain.InvoiceStatusPaid) {
		return nil, apperror.ErrInvalidInvoiceStatus()
	}

	// Unset fee means zero
	feeEntry, err := s.deps.Fees.Get(ctx, invoice.Token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get fee: %w", err))
	}
	fee := domain.FeeFor(feeEntry)

	merchantAmount, err := domain.NetOfFee(invoice.Amount, fee)
	if err != nil {
		return nil, apperror.ErrInvalidFeeConfiguration()
	}

	merchant, err := lookupMerchant(ctx, s.deps.Merchants, invoice.MerchantID)
	if err != nil {
		return nil, err
	}

	bal, err := s.deps.Balances.GetForUpdate(ctx, dbTx, merchant.ID, invoice.Token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal != nil {
		if _, err := domain.CheckedAdd(bal.Amount, merchantAmount); err != nil {
			return nil, apperror.ErrInvalidAmount()
		}
	}

	// Point of no return: nothing is written before the transfer succeeds.
	var reference string
	if merchantAmount.IsPositive() {
		receipt, err := s.deps.Transferer.Transfer(ctx, ports.TransferRequest{
			Token:  invoice.Token,
			From:   s.custody,
			To:     merchant.Address,
			Amount: merchantAmount,
		})
		if err != nil {
			return nil, apperror.ErrTransferFailed(err)
		}
		reference = receipt.Reference
	}

	now := s.deps.Clock.Now()
	if err := invoice.MarkPaid(caller, now); err != nil {
		return nil, apperror.ErrInvalidInvoiceStatus()
	}

	if err := s.deps.Invoices.UpdateStatus(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := s.deps.Balances.Credit(ctx, dbTx, merchant.ID, invoice.Token, merchantAmount, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).
			Uint64("invoice_id", invoice.ID).
			Str("reference", reference).
			Msg("settlement transferred but not committed")
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventInvoicePaid, domain.InvoicePaidPayload{
		InvoiceID:  invoice.ID,
		MerchantID: merchant.ID,
		Payer:      caller,
		Amount:     invoice.Amount,
		Fee:        fee,
		Token:      invoice.Token,
		Reference:  reference,
		Timestamp:  now,
	})

	s.log.Info().
		Uint64("invoice_id", invoice.ID).
		Uint64("merchant_id", merchant.ID).
		Str("amount", invoice.Amount.String()).
		Str("fee", fee.String()).
		Str("reference", reference).
		Msg("invoice paid")

	return invoice, nil
}

// CancelInvoice moves a Pending invoice to Cancelled.
func (s *InvoiceServiceImpl) CancelInvoice(ctx context.Context, caller domain.Principal, id uint64) (*domain.Invoice, error) {
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin, domain.RoleManager); err != nil {
		return nil, err
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.deps.Invoices.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	if err := invoice.Cancel(); err != nil {
		if errors.Is(err, domain.ErrInvoiceNotPending) {
			return nil, apperror.ErrInvalidInvoiceStatus()
		}
		return nil, apperror.InternalError(err)
	}

	if err := s.deps.Invoices.UpdateStatus(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventInvoiceCancelled, domain.InvoiceCancelledPayload{
		InvoiceID:   invoice.ID,
		MerchantID:  invoice.MerchantID,
		CancelledBy: caller,
		Timestamp:   s.deps.Clock.Now(),
	})

	s.log.Info().Uint64("invoice_id", invoice.ID).Msg("invoice cancelled")
	return invoice, nil
}
