package service

import (
	"context"
	"fmt"

	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FeeServiceImpl implements ports.FeeService.
type FeeServiceImpl struct {
	deps  Deps
	roles ports.RoleChecker
	log   zerolog.Logger
}

// NewFeeService creates a new FeeServiceImpl.
func NewFeeService(deps Deps, roles ports.RoleChecker, log zerolog.Logger) *FeeServiceImpl {
	return &FeeServiceImpl{deps: deps, roles: roles, log: log}
}

// SetFee sets the settlement fee for token. Admin only.
func (s *FeeServiceImpl) SetFee(ctx context.Context, caller domain.Principal, token domain.Token, fee decimal.Decimal) (*domain.FeeEntry, error) {
	if err := token.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := domain.ValidateNonNegative(fee); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin); err != nil {
		return nil, err
	}

	entry := &domain.FeeEntry{
		Token:     token,
		Fee:       fee,
		UpdatedBy: caller,
		UpdatedAt: s.deps.Clock.Now(),
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.deps.Fees.Set(ctx, dbTx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("set fee: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.deps.Events.Publish(ctx, domain.EventFeeUpdated, domain.FeeUpdatedPayload{
		Token:     token,
		Fee:       fee,
		UpdatedBy: caller,
	})

	s.log.Info().Str("token", token.String()).Str("fee", fee.String()).Msg("fee updated")
	return entry, nil
}

// GetFee returns the fee for token and whether one was ever set.
func (s *FeeServiceImpl) GetFee(ctx context.Context, token domain.Token) (decimal.Decimal, bool, error) {
	entry, err := s.deps.Fees.Get(ctx, token)
	if err != nil {
		return decimal.Zero, false, apperror.InternalError(fmt.Errorf("get fee: %w", err))
	}
	return domain.FeeFor(entry), entry != nil, nil
}

// ListFees returns the whole fee schedule.
func (s *FeeServiceImpl) ListFees(ctx context.Context) ([]domain.FeeEntry, error) {
	fees, err := s.deps.Fees.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list fees: %w", err))
	}
	return fees, nil
}
