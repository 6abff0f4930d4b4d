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

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	deps  Deps
	roles ports.RoleChecker
	log   zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(deps Deps, roles ports.RoleChecker, log zerolog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{deps: deps, roles: roles, log: log}
}

// AddToken starts tracking token for the merchant's account. Tracking a
// token twice is a no-op.
func (s *AccountServiceImpl) AddToken(ctx context.Context, caller domain.Principal, merchantID uint64, token domain.Token) error {
	if err := token.Validate(); err != nil {
		return apperror.Validation(err.Error())
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return err
	}

	merchant, err := lookupMerchant(ctx, s.deps.Merchants, merchantID)
	if err != nil {
		return err
	}
	if !merchant.IsOwner(caller) && !merchant.IsManager(caller) {
		if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin, domain.RoleManager); err != nil {
			return err
		}
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	added, err := s.deps.Balances.Track(ctx, dbTx, merchantID, token, s.deps.Clock.Now())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("track token: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if added {
		s.deps.Events.Publish(ctx, domain.EventTokenAdded, domain.TokenAddedPayload{
			MerchantID: merchantID,
			Token:      token,
			AddedBy:    caller,
		})
		s.log.Info().Uint64("merchant_id", merchantID).Str("token", token.String()).Msg("token tracked")
	}
	return nil
}

// GetBalance returns the balance of a tracked token. Untracked tokens fail
// with TokenNotFound rather than reading as zero.
func (s *AccountServiceImpl) GetBalance(ctx context.Context, merchantID uint64, token domain.Token) (decimal.Decimal, error) {
	bal, err := s.deps.Balances.Get(ctx, merchantID, token)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if bal == nil {
		return decimal.Zero, apperror.ErrTokenNotFound()
	}
	return bal.Amount, nil
}

// GetBalances returns every tracked balance of the account.
func (s *AccountServiceImpl) GetBalances(ctx context.Context, merchantID uint64) ([]domain.Balance, error) {
	balances, err := s.deps.Balances.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list balances: %w", err))
	}
	if balances == nil {
		balances = []domain.Balance{}
	}
	return balances, nil
}

// GetAccount returns the account settings of a merchant with its balances.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, merchantID uint64) (*ports.AccountView, error) {
	merchant, err := lookupMerchant(ctx, s.deps.Merchants, merchantID)
	if err != nil {
		return nil, err
	}

	acct, err := s.deps.Accounts.Get(ctx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if acct == nil {
		acct = domain.DefaultAccount(merchantID)
	}

	balances, err := s.GetBalances(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	return &ports.AccountView{
		Account:  *acct,
		Merchant: *merchant,
		Balances: balances,
	}, nil
}

// Withdraw pays amount of token out of the merchant account.
// The balance is validated before the transfer and written only after it succeeds.
func (s *AccountServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Withdrawal, error) {
	if err := s.deps.Authn.RequireAuth(ctx, req.Caller); err != nil {
		return nil, err
	}
	if err := domain.ValidatePositive(req.Amount); err != nil {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := req.Token.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	merchant, err := lookupMerchant(ctx, s.deps.Merchants, req.MerchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsOwner(req.Caller) {
		return nil, apperror.ErrNotAuthorized()
	}

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.deps.Accounts.GetForUpdate(ctx, dbTx, req.MerchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		acct = domain.DefaultAccount(req.MerchantID)
	}
	if acct.Restricted {
		return nil, apperror.ErrAccountRestricted()
	}

	// Tracked check comes before any arithmetic
	bal, err := s.deps.Balances.GetForUpdate(ctx, dbTx, req.MerchantID, req.Token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if bal == nil {
		return nil, apperror.ErrTokenNotFound()
	}
	if req.Amount.GreaterThan(bal.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}
	remaining := bal.Amount.Sub(req.Amount)

	// Settlement already paid the merchant address; sending back to it would
	// debit the ledger without moving funds.
	to := acct.Destination(req.Caller)
	if to == merchant.Address {
		return nil, apperror.ErrNoWithdrawalAddress()
	}
	receipt, err := s.deps.Transferer.Transfer(ctx, ports.TransferRequest{
		Token:  req.Token,
		From:   merchant.Address,
		To:     to,
		Amount: req.Amount,
	})
	if err != nil {
		return nil, apperror.ErrTransferFailed(err)
	}

	now := s.deps.Clock.Now()
	if err := s.deps.Balances.SetAmount(ctx, dbTx, req.MerchantID, req.Token, remaining, now); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.log.Error().Err(err).
			Uint64("merchant_id", req.MerchantID).
			Str("reference", receipt.Reference).
			Msg("withdrawal transferred but not committed")
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	w := &domain.Withdrawal{
		MerchantID: req.MerchantID,
		Token:      req.Token,
		Amount:     req.Amount,
		Remaining:  remaining,
		From:       merchant.Address,
		To:         to,
		Reference:  receipt.Reference,
		CreatedAt:  now,
	}

	s.deps.Events.Publish(ctx, domain.EventWithdrawal, domain.WithdrawalPayload{
		MerchantID: w.MerchantID,
		Token:      w.Token,
		Amount:     w.Amount,
		To:         w.To,
		Reference:  w.Reference,
		Timestamp:  now,
	})

	s.log.Info().
		Uint64("merchant_id", w.MerchantID).
		Str("token", w.Token.String()).
		Str("amount", w.Amount.String()).
		Str("reference", w.Reference).
		Msg("withdrawal processed")

	return w, nil
}

// SetWithdrawalAddress registers where withdrawals are paid. Owner only.
func (s *AccountServiceImpl) SetWithdrawalAddress(ctx context.Context, caller domain.Principal, merchantID uint64, address domain.Principal) (*domain.Account, error) {
	if err := address.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	merchant, err := lookupMerchant(ctx, s.deps.Merchants, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsOwner(caller) {
		return nil, apperror.ErrNotAuthorized()
	}

	acct, err := s.updateAccount(ctx, merchantID, func(a *domain.Account) {
		a.WithdrawalAddress = &address
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint64("merchant_id", merchantID).Str("address", address.String()).Msg("withdrawal address set")
	return acct, nil
}

// SetRestricted blocks or unblocks withdrawals. Admin only.
func (s *AccountServiceImpl) SetRestricted(ctx context.Context, caller domain.Principal, merchantID uint64, restricted bool) (*domain.Account, error) {
	if err := s.deps.Authn.RequireAuth(ctx, caller); err != nil {
		return nil, err
	}
	if err := requireAnyRole(ctx, s.roles, caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := lookupMerchant(ctx, s.deps.Merchants, merchantID); err != nil {
		return nil, err
	}

	acct, err := s.updateAccount(ctx, merchantID, func(a *domain.Account) {
		a.Restricted = restricted
	})
	if err != nil {
		return nil, err
	}

	s.deps.Events.Publish(ctx, domain.EventAccountRestricted, domain.AccountRestrictedPayload{
		MerchantID: merchantID,
		Restricted: restricted,
		ChangedBy:  caller,
	})

	s.log.Info().Uint64("merchant_id", merchantID).Bool("restricted", restricted).Msg("account restriction changed")
	return acct, nil
}

func (s *AccountServiceImpl) updateAccount(ctx context.Context, merchantID uint64, mutate func(*domain.Account)) (*domain.Account, error) {
	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	acct, err := s.deps.Accounts.GetForUpdate(ctx, dbTx, merchantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if acct == nil {
		acct = domain.DefaultAccount(merchantID)
	}
	mutate(acct)
	acct.UpdatedAt = s.deps.Clock.Now()

	if err := s.deps.Accounts.Upsert(ctx, dbTx, acct); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return acct, nil
}
